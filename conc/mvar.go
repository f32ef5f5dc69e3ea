package conc

import (
	"sct/action"
	"sct/id"
)

func (rt *Runtime) mvar(mv id.ID) *mvarState {
	m, ok := rt.mvars[mv]
	if !ok {
		m = &mvarState{}
		rt.mvars[mv] = m
	}
	return m
}

func (h *concHandle) NewMVar(initial any, full bool) id.ID {
	mv := h.rt.idSrc.New(id.MVar, "")
	h.request(
		action.Lookahead{Kind: action.WillNewMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.rt.mvars[mv] = &mvarState{full: full, value: initial}
			return action.ThreadAction{Kind: action.NewMVar, MVar: mv}, nil, false, nil, nil
		},
	)
	return mv
}

// fillAndWake fills an empty mvar with value and, if a taker or
// readers are already queued, immediately completes their blocked
// operation via a deliveredResult rather than leaving them to
// re-derive it: a woken taker consumes the value synchronously (the
// mvar ends up empty again), woken readers all observe it without
// consuming (the mvar stays full).
func (rt *Runtime) fillAndWake(mv id.ID, value any) []id.ID {
	m := rt.mvar(mv)
	m.full = true
	m.value = value
	if len(m.takeWaiters) > 0 {
		taker := m.takeWaiters[0]
		m.takeWaiters = m.takeWaiters[1:]
		m.full = false
		m.value = nil
		rt.threads[taker].delivered = &deliveredResult{act: action.ThreadAction{Kind: action.TakeMVar, MVar: mv}, value: value}
		rt.unblock(taker)
		return []id.ID{taker}
	}
	if len(m.readWaiters) > 0 {
		woken := m.readWaiters
		m.readWaiters = nil
		for _, r := range woken {
			rt.threads[r].delivered = &deliveredResult{act: action.ThreadAction{Kind: action.ReadMVar, MVar: mv}, value: value}
			rt.unblock(r)
		}
		return woken
	}
	return nil
}

// drainAfterTake empties an mvar (the caller already recorded the
// value it took) and, if a putter is queued, immediately delivers its
// buffered value into the mvar on its behalf.
func (rt *Runtime) drainAfterTake(mv id.ID) []id.ID {
	m := rt.mvar(mv)
	m.full = false
	m.value = nil
	if len(m.putWaiters) == 0 {
		return nil
	}
	p := m.putWaiters[0]
	m.putWaiters = m.putWaiters[1:]
	m.full = true
	m.value = p.value
	rt.threads[p.thread].delivered = &deliveredResult{act: action.ThreadAction{Kind: action.PutMVar, MVar: mv}}
	rt.unblock(p.thread)
	return []id.ID{p.thread}
}

func (h *concHandle) PutMVar(mv id.ID, val any) {
	h.request(
		action.Lookahead{Kind: action.WillPutMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if m.full {
				m.putWaiters = append(m.putWaiters, putWaiter{thread: h.tid, value: val})
				h.rt.newBlockedReason(h.tid, blockMVar)
				return action.ThreadAction{Kind: action.BlockedPutMVar, MVar: mv}, nil, true, nil, nil
			}
			woken := h.rt.fillAndWake(mv, val)
			return action.ThreadAction{Kind: action.PutMVar, MVar: mv, Woken: woken}, nil, false, nil, nil
		},
	)
}

func (h *concHandle) TryPutMVar(mv id.ID, val any) bool {
	v := h.request(
		action.Lookahead{Kind: action.WillTryPutMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if m.full {
				return action.ThreadAction{Kind: action.TryPutMVar, MVar: mv, Success: false}, false, false, nil, nil
			}
			woken := h.rt.fillAndWake(mv, val)
			return action.ThreadAction{Kind: action.TryPutMVar, MVar: mv, Success: true, Woken: woken}, true, false, nil, nil
		},
	)
	return v.(bool)
}

func (h *concHandle) TakeMVar(mv id.ID) any {
	return h.request(
		action.Lookahead{Kind: action.WillTakeMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if !m.full {
				m.takeWaiters = append(m.takeWaiters, h.tid)
				h.rt.newBlockedReason(h.tid, blockMVar)
				return action.ThreadAction{Kind: action.BlockedTakeMVar, MVar: mv}, nil, true, nil, nil
			}
			taken := m.value
			woken := h.rt.drainAfterTake(mv)
			return action.ThreadAction{Kind: action.TakeMVar, MVar: mv, Woken: woken}, taken, false, nil, nil
		},
	)
}

func (h *concHandle) TryTakeMVar(mv id.ID) (any, bool) {
	v := h.request(
		action.Lookahead{Kind: action.WillTryTakeMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if !m.full {
				return action.ThreadAction{Kind: action.TryTakeMVar, MVar: mv, Success: false}, [2]any{nil, false}, false, nil, nil
			}
			taken := m.value
			woken := h.rt.drainAfterTake(mv)
			return action.ThreadAction{Kind: action.TryTakeMVar, MVar: mv, Success: true, Woken: woken}, [2]any{taken, true}, false, nil, nil
		},
	)
	pair := v.([2]any)
	return pair[0], pair[1].(bool)
}

func (h *concHandle) ReadMVar(mv id.ID) any {
	return h.request(
		action.Lookahead{Kind: action.WillReadMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if !m.full {
				m.readWaiters = append(m.readWaiters, h.tid)
				h.rt.newBlockedReason(h.tid, blockMVar)
				return action.ThreadAction{Kind: action.BlockedReadMVar, MVar: mv}, nil, true, nil, nil
			}
			return action.ThreadAction{Kind: action.ReadMVar, MVar: mv}, m.value, false, nil, nil
		},
	)
}

func (h *concHandle) TryReadMVar(mv id.ID) (any, bool) {
	v := h.request(
		action.Lookahead{Kind: action.WillTryReadMVar, MVar: mv},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			m := h.rt.mvar(mv)
			if !m.full {
				return action.ThreadAction{Kind: action.TryReadMVar, MVar: mv, Success: false}, [2]any{nil, false}, false, nil, nil
			}
			return action.ThreadAction{Kind: action.TryReadMVar, MVar: mv, Success: true}, [2]any{m.value, true}, false, nil, nil
		},
	)
	pair := v.([2]any)
	return pair[0], pair[1].(bool)
}
