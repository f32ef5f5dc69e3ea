package conc

import (
	"errors"

	"sct/action"
	"sct/id"
)

// ErrNestedSubconcurrency is returned by Subconcurrency when called
// from within another Subconcurrency block, or when other threads are
// alive besides the caller.
var ErrNestedSubconcurrency = errors.New("conc: subconcurrency nested or run with other live threads")

// Subconcurrency runs body to completion within the same dispatch loop,
// bracketed by Subconcurrency/StopSubconcurrency trace markers, and
// reports any thrown error instead of unwinding the caller's stack.
// It requires that the caller is the only live thread: nesting, or
// running it while other threads exist, fails immediately.
func (h *concHandle) Subconcurrency(body func(c Conc) any) (any, error) {
	err := h.request(
		action.Lookahead{Kind: action.WillSubconcurrency, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			if h.rt.subDepth > 0 || h.rt.otherLiveThreads(h.tid) {
				return action.ThreadAction{Kind: action.Subconcurrency, Thread: h.tid}, ErrNestedSubconcurrency, false, nil, nil
			}
			h.rt.subDepth++
			return action.ThreadAction{Kind: action.Subconcurrency, Thread: h.tid}, nil, false, nil, nil
		},
	)
	if e, ok := err.(error); ok && e != nil {
		return nil, e
	}

	var result any
	var caught error
	func() {
		defer func() {
			if r := recover(); r != nil {
				sig, ok := r.(throwSignal)
				if !ok {
					panic(r)
				}
				caught = sig.err
			}
		}()
		result = body(h)
	}()

	h.request(
		action.Lookahead{Kind: action.WillStopSubconcurrency, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.rt.subDepth--
			return action.ThreadAction{Kind: action.StopSubconcurrency, Thread: h.tid}, nil, false, nil, nil
		},
	)
	return result, caught
}

// otherLiveThreads reports whether any thread besides self is not yet
// statusDone.
func (rt *Runtime) otherLiveThreads(self id.ID) bool {
	for tid, tr := range rt.threads {
		if !tid.Equal(self) && tr.status != statusDone {
			return true
		}
	}
	return false
}
