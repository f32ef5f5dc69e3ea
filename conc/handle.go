package conc

import (
	"sct/action"
	"sct/id"
)

// concHandle is the per-thread implementation of Conc: every method
// packages its intended lookahead and effect, hands them to the
// dispatch loop, and blocks until granted its turn.
type concHandle struct {
	rt     *Runtime
	tid    id.ID
	resume chan resumeMsg

	numCapabilities int
}

// request reports lookahead to the dispatch loop and blocks until the
// runtime performs attempt and grants (or redirects) this turn.
func (h *concHandle) request(lookahead action.Lookahead, attempt attemptFn) any {
	h.rt.arrivals <- arrivalMsg{thread: h.tid, lookahead: lookahead, attempt: attempt}
	msg := <-h.resume
	if msg.kind == resumeThrow {
		panic(throwSignal{err: msg.err})
	}
	return msg.value
}

func (h *concHandle) MyThreadID() id.ID { return h.tid }

func (h *concHandle) Fork(f Child) id.ID {
	child := h.rt.idSrc.New(id.Thread, "")
	v := h.request(
		action.Lookahead{Kind: action.WillFork, Thread: child},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.rt.spawn(child, func(ch *concHandle) any {
				f(ch)
				return nil
			})
			return action.ThreadAction{Kind: action.Fork, Thread: child}, child, false, []id.ID{child}, nil
		},
	)
	return v.(id.ID)
}

func (h *concHandle) GetNumCapabilities() int {
	v := h.request(
		action.Lookahead{Kind: action.WillGetNumCapabilities, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			n := h.numCapabilities
			if n == 0 {
				n = 1
			}
			return action.ThreadAction{Kind: action.GetNumCapabilities, N: n}, n, false, nil, nil
		},
	)
	return v.(int)
}

func (h *concHandle) SetNumCapabilities(n int) {
	h.request(
		action.Lookahead{Kind: action.WillSetNumCapabilities, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.numCapabilities = n
			return action.ThreadAction{Kind: action.SetNumCapabilities, N: n}, nil, false, nil, nil
		},
	)
}

func (h *concHandle) Yield() {
	h.request(
		action.Lookahead{Kind: action.WillYield, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.Yield}, nil, false, nil, nil
		},
	)
}

func (h *concHandle) LiftIO(f func() any) any {
	return h.request(
		action.Lookahead{Kind: action.WillLiftIO, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.LiftIO}, f(), false, nil, nil
		},
	)
}
