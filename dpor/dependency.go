// Package dpor implements the bounded dynamic partial-order reduction
// explorer: a persistent tree of tried prefixes with per-node
// backtracking/done/sleep sets, race detection over pairs of trace
// steps, and pluggable bounds that both cap exploration and add
// additional backtracking points of their own.
package dpor

import (
	"sct/action"
	"sct/id"
	"sct/schedule"
	"sct/stm"
)

// dependent reports whether the action ai performed by thread ti and
// the action aj performed by thread tj can be reordered without
// changing either's outcome. Same-thread pairs are never dependent
// here: a schedule cannot reorder a single thread's own steps.
func dependent(ti id.ID, ai action.ThreadAction, tj id.ID, aj action.ThreadAction) bool {
	if ti.Equal(tj) {
		return false
	}
	if ai.Kind == action.Killed || aj.Kind == action.Killed {
		return false
	}

	if ai.Kind == action.ThrowTo && ai.Thread.Equal(tj) {
		return true
	}
	if aj.Kind == action.ThrowTo && aj.Thread.Equal(ti) {
		return true
	}
	if ai.Kind == action.Fork && ai.Thread.Equal(tj) {
		return true
	}
	if aj.Kind == action.Fork && aj.Thread.Equal(ti) {
		return true
	}

	if isSTM(ai.Kind) && isSTM(aj.Kind) {
		return stmDependent(ai.Trace, aj.Trace)
	}
	if isSTM(ai.Kind) || isSTM(aj.Kind) {
		return false
	}

	ti1 := action.SimplifyAction(ai)
	tj1 := action.SimplifyAction(aj)
	return typeDependent(ti1, tj1)
}

func isSTM(k action.Kind) bool {
	return k == action.STM || k == action.BlockedSTM
}

// stmDependent implements "two transactions are dependent iff their
// tvar-sets intersect and at least one writes".
func stmDependent(a, b stm.TTrace) bool {
	aVars := toSet(stm.TvarsOf(a))
	bWrites := stm.WritesOf(b)
	for _, v := range bWrites {
		if aVars[v] {
			return true
		}
	}
	aWrites := stm.WritesOf(a)
	bVars := toSet(stm.TvarsOf(b))
	for _, v := range aWrites {
		if bVars[v] {
			return true
		}
	}
	return false
}

func toSet(ids []id.ID) map[id.ID]bool {
	out := make(map[id.ID]bool, len(ids))
	for _, v := range ids {
		out[v] = true
	}
	return out
}

// typeDependent implements the cell/mvar dependency rules over the
// coarse Type classification: different scopes (or different cells/
// mvars within the same scope) are always independent; same-scope
// pairs are dependent unless both are plain unsynchronised reads.
func typeDependent(a, b action.Type) bool {
	if !scopeMatches(a, b) {
		return false
	}
	if isCellClass(a.Class) {
		if a.Class == action.UnsynchronisedRead && b.Class == action.UnsynchronisedRead {
			return false
		}
		return true
	}
	if isMVarClass(a.Class) {
		return true
	}
	// Unsynchronised/SynchronisedOther with no cell/mvar scope (fork
	// bookkeeping, yield, lift, masking, stop): treated independent
	// unless caught by the special cases above.
	return false
}

func scopeMatches(a, b action.Type) bool {
	if isCellClass(a.Class) && isCellClass(b.Class) {
		return a.Cell.Equal(b.Cell)
	}
	if isMVarClass(a.Class) && isMVarClass(b.Class) {
		return a.MVar.Equal(b.MVar)
	}
	return false
}

func isCellClass(c action.TypeClass) bool {
	switch c {
	case action.UnsynchronisedRead, action.UnsynchronisedWrite,
		action.PartiallySynchronisedCommit, action.PartiallySynchronisedWrite, action.PartiallySynchronisedModify,
		action.SynchronisedModify:
		return true
	default:
		return false
	}
}

func isMVarClass(c action.TypeClass) bool {
	return c == action.SynchronisedRead || c == action.SynchronisedWrite
}

// raceCandidates scans a trace pairwise per §4.3's race detection rule
// and returns, for each index i, the set of thread ids that should be
// added to the backtracking set at i. Besides later steps of the trace,
// each thread runnable at i whose lookahead conflicts with step i is a
// candidate too, so that a thread which never got to act is still tried.
func raceCandidates(trace schedule.Trace) map[int]map[id.ID]bool {
	out := map[int]map[id.ID]bool{}
	for i, si := range trace {
		ti := si.Decision.Thread
		for j := i + 1; j < len(trace); j++ {
			sj := trace[j]
			tj := sj.Decision.Thread
			if ti.Equal(tj) {
				continue
			}
			if !dependent(ti, si.Action, tj, sj.Action) {
				continue
			}
			if !runnableAt(si.Runnable, tj) {
				continue
			}
			if out[i] == nil {
				out[i] = map[id.ID]bool{}
			}
			out[i][tj] = true
		}
		ai := action.SimplifyAction(si.Action)
		for _, r := range si.Runnable {
			la := r.Lookahead
			if !r.Thread.Equal(ti) && (typeDependent(ai, action.SimplifyLookahead(la)) ||
				(la.Kind == action.WillCommitCRef && isCellClass(ai.Class)) ||
				(la.Kind == action.WillSTM && isSTM(si.Action.Kind))) {
				if out[i] == nil {
					out[i] = map[id.ID]bool{}
				}
				out[i][r.Thread] = true
			}
		}
	}
	return out
}

func runnableAt(runnable []schedule.Runnable, t id.ID) bool {
	for _, r := range runnable {
		if r.Thread.Equal(t) {
			return true
		}
	}
	return false
}
