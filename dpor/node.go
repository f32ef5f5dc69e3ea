package dpor

import (
	"sct/action"
	"sct/id"
	"sct/tree"
)

// nodeData is the payload of one DPOR tree node: the decision that
// reached it (thread, zero value at the root), the action it observed
// and the backtracking/done/sleep bookkeeping used by the descent
// loop. Sleep sets are tracked but never populated: dropping the
// sleep-set optimisation costs some redundant re-exploration of
// already-independent branches, never a missed schedule, so it is
// left as a resolved Open Question rather than implemented.
type nodeData struct {
	thread id.ID
	action action.ThreadAction

	backtrack map[id.ID]bool
	done      map[id.ID]bool
	sleep     map[id.ID]bool
}

// Node is one point in the persistent tree of tried prefixes.
type Node = tree.Tree[*nodeData]

func newNodeData(t id.ID) *nodeData {
	return &nodeData{thread: t, backtrack: map[id.ID]bool{}, done: map[id.ID]bool{}, sleep: map[id.ID]bool{}}
}

func newRoot() *Node {
	return tree.New(newNodeData(id.ID{}), func(a, b *nodeData) bool { return a.thread.Equal(b.thread) })
}

func childOf(n *Node, t id.ID) *Node {
	return n.GetChild(&nodeData{thread: t})
}

func childOrNew(n *Node, t id.ID) *Node {
	if c := childOf(n, t); c != nil {
		return c
	}
	return n.AddChild(newNodeData(t))
}

// availableBacktracks returns the backtrack threads not yet done or
// asleep at n.
func availableBacktracks(n *Node) map[id.ID]bool {
	nd := n.Payload()
	out := map[id.ID]bool{}
	for t := range nd.backtrack {
		if nd.done[t] || nd.sleep[t] {
			continue
		}
		out[t] = true
	}
	return out
}

// pickThread applies the "lowest id, preferring real threads over
// commit pseudo-threads" priority rule used both by descent and by
// the DPOR scheduler.
func pickThread(candidates map[id.ID]bool) (id.ID, bool) {
	var best, bestCommit *id.ID
	for t := range candidates {
		t := t
		if t.IsCommitPseudoThread() {
			if bestCommit == nil || t.Less(*bestCommit) {
				bestCommit = &t
			}
			continue
		}
		if best == nil || t.Less(*best) {
			best = &t
		}
	}
	if best != nil {
		return *best, true
	}
	if bestCommit != nil {
		return *bestCommit, true
	}
	return id.ID{}, false
}
