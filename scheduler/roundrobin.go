package scheduler

import (
	"sct/id"
	"sct/schedule"
)

// RoundRobin picks the lowest runnable thread id strictly greater than
// prior, wrapping around to the lowest runnable id if none is
// greater. It carries no state of its own beyond what prior already
// gives it.
type RoundRobin struct{}

func (RoundRobin) Choose(prefix schedule.Trace, prior *id.ID, runnable []schedule.Runnable, state any) (id.ID, bool, any) {
	if len(runnable) == 0 {
		return id.ID{}, false, state
	}
	if prior == nil {
		return lowest(runnable), true, state
	}

	var next *id.ID
	for _, r := range runnable {
		t := r.Thread
		if !t.Less(*prior) && !t.Equal(*prior) && (next == nil || t.Less(*next)) {
			t := t
			next = &t
		}
	}
	if next != nil {
		return *next, true, state
	}
	return lowest(runnable), true, state
}

func lowest(runnable []schedule.Runnable) id.ID {
	best := runnable[0].Thread
	for _, r := range runnable[1:] {
		if r.Thread.Less(best) {
			best = r.Thread
		}
	}
	return best
}
