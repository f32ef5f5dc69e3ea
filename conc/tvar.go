package conc

import (
	"golang.org/x/exp/maps"

	"sct/action"
	"sct/id"
	"sct/stm"
)

// stmOutcome carries either the transaction's pure result or the
// exception it threw back out to Atomically, since request only
// carries a single any value.
type stmOutcome struct {
	value any
	err   error
}

func (h *concHandle) Atomically(body func(tx *stm.Tx) any) any {
	v := h.request(
		action.Lookahead{Kind: action.WillSTM, Thread: h.tid},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			var result any
			res := stm.Run(h.rt.idSrc, func(tv id.ID) any { return h.rt.tvars[tv] }, func(tx *stm.Tx) {
				result = body(tx)
			})

			if res.Retried {
				tvars := maps.Keys(res.Reads)
				for _, tv := range tvars {
					h.rt.tvarWaiters[tv] = append(h.rt.tvarWaiters[tv], h.tid)
				}
				h.rt.threads[h.tid].stmWaitSet = tvars
				h.rt.newBlockedReason(h.tid, blockSTM)
				return action.ThreadAction{Kind: action.BlockedSTM, Trace: res.Trace}, nil, true, nil, nil
			}
			if res.Thrown != nil {
				return action.ThreadAction{Kind: action.STM, Trace: res.Trace}, stmOutcome{err: res.Thrown}, false, nil, nil
			}
			woken := h.rt.commitTVars(res.Writes)
			return action.ThreadAction{Kind: action.STM, Trace: res.Trace, Woken: woken}, stmOutcome{value: result}, false, nil, nil
		},
	)
	out := v.(stmOutcome)
	if out.err != nil {
		panic(throwSignal{err: out.err})
	}
	return out.value
}

// commitTVars publishes writes to the committed tvar store and wakes
// every thread blocked-retrying on any written tvar, clearing their
// registrations on tvars that were not written this commit.
func (rt *Runtime) commitTVars(writes map[id.ID]any) []id.ID {
	var woken []id.ID
	wokenSet := map[id.ID]bool{}
	for v, val := range writes {
		rt.tvars[v] = val
		for _, waiter := range rt.tvarWaiters[v] {
			if !wokenSet[waiter] {
				wokenSet[waiter] = true
				woken = append(woken, waiter)
				rt.unblock(waiter)
			}
		}
		delete(rt.tvarWaiters, v)
	}
	for _, w := range woken {
		for _, tv := range rt.threads[w].stmWaitSet {
			rt.tvarWaiters[tv] = removeID(rt.tvarWaiters[tv], w)
		}
		rt.threads[w].stmWaitSet = nil
	}
	return woken
}

func removeID(list []id.ID, target id.ID) []id.ID {
	out := list[:0]
	for _, v := range list {
		if !v.Equal(target) {
			out = append(out, v)
		}
	}
	return out
}
