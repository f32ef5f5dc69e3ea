package dpor

import (
	"sct/conc"
	"sct/id"
	"sct/memory"
	"sct/schedule"
)

// Run is one execution the explorer produced: its outcome, its trace,
// and whether the active bound rejects it. Rejected runs are still
// fully explored and still feed race detection — conservative
// inclusion only removes them from the user-facing result list.
type Run struct {
	Result   schedule.Result[any]
	Trace    schedule.Trace
	Rejected bool
}

// Explore runs program repeatedly under bound, starting from a fresh
// prefix tree, until every backtracking point has been visited, and
// returns every run produced (including bound-rejected ones, flagged
// via Rejected).
func Explore(program conc.Program, memType memory.Type, bound Bound) []Run {
	root := newRoot()
	var runs []Run

	for {
		forced, ok := nextPrefix(root)
		if !ok {
			break
		}

		sched := NewScheduler(root, forced)
		rt := conc.New(id.NewSource(), memType)
		result, trace := rt.Run(program, sched, nil)

		integrate(root, trace)
		runs = append(runs, Run{Result: result, Trace: trace, Rejected: !bound.BoundOk(trace)})
		computeBacktracks(root, trace, bound)
	}

	return runs
}

// Scheduler drives one execution: it replays a forced prefix
// decided by the explorer, then falls through to the current tree
// node's own backtracking set once the prefix is exhausted. It is
// exported so sct/scheduler can re-export it as DPORScheduler, since
// its state is intrinsically tied to the explorer's tree and belongs
// next to it rather than duplicated.
type Scheduler struct {
	forced []id.ID
	cursor *Node
}

// NewScheduler builds a Scheduler that forces the given prefix against
// cursor's tree before falling through to its backtracking set.
// Callers outside this package construct one against the root they got
// from a prior Explore-managed tree only if they are driving the tree
// themselves; Explore is the normal entry point.
func NewScheduler(cursor *Node, forced []id.ID) *Scheduler {
	return &Scheduler{forced: forced, cursor: cursor}
}

func (s *Scheduler) Choose(prefix schedule.Trace, prior *id.ID, runnable []schedule.Runnable, state any) (id.ID, bool, any) {
	if len(s.forced) > 0 {
		t := s.forced[0]
		s.forced = s.forced[1:]
		if s.cursor != nil {
			s.cursor = childOf(s.cursor, t)
		}
		return t, true, state
	}

	runset := map[id.ID]bool{}
	for _, r := range runnable {
		runset[r.Thread] = true
	}

	if s.cursor != nil {
		avail := availableBacktracks(s.cursor)
		filtered := map[id.ID]bool{}
		for t := range avail {
			if runset[t] {
				filtered[t] = true
			}
		}
		if t, ok := pickThread(filtered); ok {
			s.cursor.Payload().done[t] = true
			s.cursor = childOf(s.cursor, t)
			return t, true, state
		}
	}

	t, ok := pickThread(runset)
	if !ok {
		return id.ID{}, false, state
	}
	if s.cursor != nil {
		s.cursor = childOf(s.cursor, t)
	}
	return t, true, state
}

// nextPrefix walks the tree depth-first in pre-order (a node before its
// children, children in the order they were created) looking for the
// first node with an untried backtracking thread, marks that thread
// done there, and returns the sequence of thread ids from the root
// through that new branch. A tree with no children yet returns an
// empty forced sequence — the bootstrap run that seeds the tree.
func nextPrefix(root *Node) ([]id.ID, bool) {
	if len(root.Children()) == 0 {
		return nil, true
	}

	var result []id.ID
	found := false
	var walk func(n *Node, path []id.ID) bool
	walk = func(n *Node, path []id.ID) bool {
		if t, ok := pickThread(availableBacktracks(n)); ok {
			n.Payload().done[t] = true
			result = append(append([]id.ID{}, path...), t)
			found = true
			return true
		}
		for _, c := range n.Children() {
			if walk(c, append(path, c.Payload().thread)) {
				return true
			}
		}
		return false
	}
	walk(root, nil)
	return result, found
}

// integrate extends the tree with any new nodes trace requires and
// records the action observed at each.
func integrate(root *Node, trace schedule.Trace) {
	cur := root
	for _, step := range trace {
		cur = childOrNew(cur, step.Decision.Thread)
		cur.Payload().action = step.Action
	}
}

// computeBacktracks runs race detection plus the bound's own policy
// over trace, then records the resulting candidates on the tree nodes
// that precede each corresponding step.
func computeBacktracks(root *Node, trace schedule.Trace, bound Bound) {
	cands := raceCandidates(trace)
	bound.BacktrackPolicy(trace, cands)

	path := make([]*Node, 0, len(trace)+1)
	path = append(path, root)
	cur := root
	for _, step := range trace {
		cur = childOf(cur, step.Decision.Thread)
		path = append(path, cur)
	}

	for i, threads := range cands {
		if i >= len(path) {
			continue
		}
		nd := path[i].Payload()
		for t := range threads {
			nd.backtrack[t] = true
		}
	}
}
