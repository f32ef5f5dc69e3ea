package conc

import (
	"sct/action"
	"sct/id"
)

func (h *concHandle) Throw(err error) {
	h.request(
		action.Lookahead{Kind: action.WillThrow, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.Throw, Thread: h.tid}, nil, false, nil, nil
		},
	)
	panic(throwSignal{err: err})
}

// ThrowTo delivers synchronously when the target carries no
// outstanding mask; otherwise the sender blocks until the target
// unmasks.
func (h *concHandle) ThrowTo(target id.ID, err error) {
	h.request(
		action.Lookahead{Kind: action.WillThrowTo, Thread: target},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			tr, ok := h.rt.threads[target]
			if !ok || tr.status == statusDone {
				return action.ThreadAction{Kind: action.ThrowTo, Thread: target}, nil, false, nil, nil
			}
			if tr.masking != action.Unmasked {
				tr.throwWaiters = append(tr.throwWaiters, throwWaiter{from: h.tid, err: err})
				h.rt.newBlockedReason(h.tid, blockThrowTo)
				return action.ThreadAction{Kind: action.BlockedThrowTo, Thread: target}, nil, true, nil, nil
			}
			if tr.status == statusBlocked {
				// the target may still be registered in whatever wait
				// queue it blocked on (an mvar's waiter list, a tvar's
				// waiter set); it will not be woken through that queue
				// again, but the registration is left in place rather
				// than hunted down and removed, since the target is
				// about to unwind past its blocked operation entirely.
				h.rt.unblock(target)
			}
			tr.resume <- resumeMsg{kind: resumeThrow, err: err}
			return action.ThreadAction{Kind: action.ThrowTo, Thread: target}, nil, false, []id.ID{target}, nil
		},
	)
}

// Catch pushes a modelled handler frame, runs body, and recovers a
// throwSignal raised by body or anything it calls (including a nested
// Throw/ThrowTo delivery), running handler with the carried error.
// The handler frame is popped whether or not it caught anything.
func (h *concHandle) Catch(body func(), handler func(err error)) {
	h.request(
		action.Lookahead{Kind: action.WillCatching, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.Catching, Thread: h.tid}, nil, false, nil, nil
		},
	)
	defer h.request(
		action.Lookahead{Kind: action.WillPopCatching, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.PopCatching, Thread: h.tid}, nil, false, nil, nil
		},
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				sig, ok := r.(throwSignal)
				if !ok {
					panic(r)
				}
				handler(sig.err)
			}
		}()
		body()
	}()
}

// Mask sets the thread's masking state for the duration of body,
// restoring the previous state afterwards. Queued ThrowTo senders
// blocked on this thread's prior mask are given another chance once
// it is unmasked.
func (h *concHandle) Mask(state action.MaskingState, body func()) {
	prior := h.request(
		action.Lookahead{Kind: action.WillSetMasking, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			tr := h.rt.threads[h.tid]
			old := tr.masking
			tr.masking = state
			return action.ThreadAction{Kind: action.SetMasking, Thread: h.tid, MaskReason: action.MaskCall, Mask: state}, old, false, nil, nil
		},
	)
	defer h.request(
		action.Lookahead{Kind: action.WillResetMasking, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			tr := h.rt.threads[h.tid]
			tr.masking = prior.(action.MaskingState)
			var selfErr error
			if tr.masking == action.Unmasked && len(tr.throwWaiters) > 0 {
				w := tr.throwWaiters[0]
				tr.throwWaiters = tr.throwWaiters[1:]
				h.rt.unblock(w.from)
				h.rt.threads[w.from].delivered = &deliveredResult{
					act: action.ThreadAction{Kind: action.ThrowTo, Thread: h.tid},
				}
				selfErr = w.err
			}
			return action.ThreadAction{Kind: action.ResetMasking, Thread: h.tid, MaskReason: action.MaskCall, Mask: tr.masking}, nil, false, nil, selfErr
		},
	)
	body()
}
