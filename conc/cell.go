package conc

import (
	"sct/action"
	"sct/id"
)

func (h *concHandle) NewCRef(initial any) id.ID {
	cell := h.rt.idSrc.New(id.CRef, "")
	h.request(
		action.Lookahead{Kind: action.WillNewCRef, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.rt.store.Init(cell, initial)
			return action.ThreadAction{Kind: action.NewCRef, Cell: cell}, nil, false, nil, nil
		},
	)
	return cell
}

func (h *concHandle) ReadCRef(cell id.ID) any {
	return h.request(
		action.Lookahead{Kind: action.WillReadCRef, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			v := h.rt.store.Read(h.tid, cell)
			return action.ThreadAction{Kind: action.ReadCRef, Cell: cell}, v, false, nil, nil
		},
	)
}

func (h *concHandle) WriteCRef(cell id.ID, val any) {
	h.request(
		action.Lookahead{Kind: action.WillWriteCRef, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			h.rt.store.Write(h.tid, cell, val)
			return action.ThreadAction{Kind: action.WriteCRef, Cell: cell}, nil, false, nil, nil
		},
	)
}

func (h *concHandle) ModCRef(cell id.ID, f func(any) any) any {
	return h.request(
		action.Lookahead{Kind: action.WillModCRef, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			v := h.rt.store.Modify(h.tid, cell, f)
			return action.ThreadAction{Kind: action.ModCRef, Cell: cell}, v, false, nil, nil
		},
	)
}

func (h *concHandle) ReadCRefCAS(cell id.ID) (any, uint64) {
	v := h.request(
		action.Lookahead{Kind: action.WillReadCRefCAS, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			value, ticket := h.rt.store.ReadForCAS(h.tid, cell)
			return action.ThreadAction{Kind: action.ReadCRefCAS, Cell: cell}, [2]any{value, ticket}, false, nil, nil
		},
	)
	pair := v.([2]any)
	return pair[0], pair[1].(uint64)
}

func (h *concHandle) CasCRef(cell id.ID, ticket uint64, newVal any) bool {
	v := h.request(
		action.Lookahead{Kind: action.WillCasCRef, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			ok := h.rt.store.CAS(h.tid, cell, ticket, newVal)
			return action.ThreadAction{Kind: action.CasCRef, Cell: cell, Success: ok}, ok, false, nil, nil
		},
	)
	return v.(bool)
}

func (h *concHandle) ModCRefCAS(cell id.ID, f func(any) any) any {
	return h.request(
		action.Lookahead{Kind: action.WillModCRefCAS, Cell: cell},
		func() (action.ThreadAction, any, bool, []id.ID, error) {
			for {
				value, ticket := h.rt.store.ReadForCAS(h.tid, cell)
				newVal := f(value)
				if h.rt.store.CAS(h.tid, cell, ticket, newVal) {
					return action.ThreadAction{Kind: action.ModCRefCAS, Cell: cell}, newVal, false, nil, nil
				}
			}
		},
	)
}
