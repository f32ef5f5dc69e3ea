package dpor

import (
	"sct/action"
	"sct/id"
	"sct/schedule"
)

// Bound caps exploration (BoundOk) and contributes its own
// backtracking points on top of the ones race detection finds
// (BacktrackPolicy mutates cands in place; index i maps to the
// backtrack set of the node reached just before trace[i] runs).
type Bound interface {
	BoundOk(trace schedule.Trace) bool
	BacktrackPolicy(trace schedule.Trace, cands map[int]map[id.ID]bool)
}

type noBound struct{}

// NoBound accepts every trace and adds no extra backtracking points;
// it only terminates for programs that themselves terminate on every
// schedule.
func NoBound() Bound { return noBound{} }

func (noBound) BoundOk(schedule.Trace) bool { return true }
func (noBound) BacktrackPolicy(schedule.Trace, map[int]map[id.ID]bool) {}

// isCountedSwitch reports whether step is a preemptive switch to a real
// (non-commit-pseudo-thread) thread that was not immediately preceded
// by a Yield — the only kind of switch the preemption bound counts.
func isCountedSwitch(trace schedule.Trace, i int) bool {
	step := trace[i]
	if step.Decision.Kind != schedule.SwitchTo {
		return false
	}
	if step.Decision.Thread.IsCommitPseudoThread() {
		return false
	}
	if i > 0 && trace[i-1].Action.Kind == action.Yield {
		return false
	}
	return true
}

// PreemptionBound caps the number of counted preemptive switches at K
// and, for every backtracking point race detection adds at index i,
// also adds one at the nearest earlier index where the running thread
// changed (a Start/SwitchTo decision on a real thread), so that the
// preemption is considered from both sides of the boundary.
type PreemptionBound struct{ K int }

func (b PreemptionBound) BoundOk(trace schedule.Trace) bool {
	n := 0
	for i := range trace {
		if isCountedSwitch(trace, i) {
			n++
		}
	}
	return n <= b.K
}

func (b PreemptionBound) BacktrackPolicy(trace schedule.Trace, cands map[int]map[id.ID]bool) {
	for i, threads := range cands {
		j := nearestThreadChange(trace, i)
		if j < 0 {
			continue
		}
		if cands[j] == nil {
			cands[j] = map[id.ID]bool{}
		}
		for t := range threads {
			cands[j][t] = true
		}
	}
}

func nearestThreadChange(trace schedule.Trace, i int) int {
	for j := i - 1; j >= 0; j-- {
		if trace[j].Decision.Thread.IsCommitPseudoThread() {
			continue
		}
		if trace[j].Decision.Kind != schedule.Continue {
			return j
		}
	}
	return -1
}

// FairBound caps the spread between the highest and lowest per-thread
// Yield count observed in the trace. At every index whose action
// releases another thread, it adds every thread runnable at that
// index (other than the one that just ran) to the backtracking set
// there.
type FairBound struct{ K int }

func (b FairBound) BoundOk(trace schedule.Trace) bool {
	counts := map[id.ID]int{}
	seed := func(t id.ID) {
		if _, ok := counts[t]; !ok {
			counts[t] = 0
		}
	}
	for _, step := range trace {
		seed(step.Decision.Thread)
		for _, r := range step.Runnable {
			seed(r.Thread)
		}
		if step.Action.Kind == action.Yield {
			counts[step.Decision.Thread]++
		}
	}
	if len(counts) == 0 {
		return true
	}
	min, max := 0, 0
	first := true
	for _, c := range counts {
		if first {
			min, max = c, c
			first = false
			continue
		}
		if c < min {
			min = c
		}
		if c > max {
			max = c
		}
	}
	return max-min <= b.K
}

func (b FairBound) BacktrackPolicy(trace schedule.Trace, cands map[int]map[id.ID]bool) {
	for i, step := range trace {
		if !releases(step.Action) {
			continue
		}
		for _, r := range step.Runnable {
			if r.Thread.Equal(step.Decision.Thread) {
				continue
			}
			if cands[i] == nil {
				cands[i] = map[id.ID]bool{}
			}
			cands[i][r.Thread] = true
		}
	}
}

func releases(a action.ThreadAction) bool {
	switch a.Kind {
	case action.Fork, action.Yield,
		action.PutMVar, action.TryPutMVar, action.ReadMVar, action.TryReadMVar, action.TakeMVar, action.TryTakeMVar,
		action.STM, action.BlockedSTM,
		action.Throw, action.ThrowTo, action.BlockedThrowTo,
		action.SetMasking, action.ResetMasking,
		action.Stop:
		return true
	default:
		return false
	}
}

// LengthBound caps the number of steps in a trace at K. Its
// backtracking policy ("if the chosen thread is not runnable, add all
// runnable threads") never fires here: the runtime's Scheduler
// contract only ever offers already-runnable candidates to choose
// from, so a chosen-but-unrunnable thread cannot occur.
type LengthBound struct{ K int }

func (b LengthBound) BoundOk(trace schedule.Trace) bool { return len(trace) < b.K }
func (b LengthBound) BacktrackPolicy(schedule.Trace, map[int]map[id.ID]bool) {}

// Compose combines bounds by conjunction on BoundOk and union on
// backtracking policy.
func Compose(bounds ...Bound) Bound { return composite(bounds) }

type composite []Bound

func (c composite) BoundOk(trace schedule.Trace) bool {
	for _, b := range c {
		if !b.BoundOk(trace) {
			return false
		}
	}
	return true
}

func (c composite) BacktrackPolicy(trace schedule.Trace, cands map[int]map[id.ID]bool) {
	for _, b := range c {
		b.BacktrackPolicy(trace, cands)
	}
}
