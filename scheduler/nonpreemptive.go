package scheduler

import (
	"sct/id"
	"sct/schedule"
)

// NonPreemptive wraps another Scheduler, keeping the prior thread
// running for as long as it stays runnable and only consulting the
// wrapped scheduler once it blocks or finishes.
type NonPreemptive struct {
	Wrapped schedule.Scheduler
}

func (n NonPreemptive) Choose(prefix schedule.Trace, prior *id.ID, runnable []schedule.Runnable, state any) (id.ID, bool, any) {
	if prior != nil {
		for _, r := range runnable {
			if r.Thread.Equal(*prior) {
				return *prior, true, state
			}
		}
	}
	return n.Wrapped.Choose(prefix, prior, runnable, state)
}
