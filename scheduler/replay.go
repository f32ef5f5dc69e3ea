package scheduler

import (
	"sct/id"
	"sct/schedule"
)

// Replay reproduces the decision sequence of a previously recorded
// Trace exactly, one thread id per Choose call. Once the recorded
// decisions are exhausted it falls back to picking the lowest
// runnable thread id, so a full trace's replay simply runs the
// program to the same completion the original run reached; a partial
// or stale trace produces a defined, deterministic continuation
// rather than an abort.
type Replay struct {
	decisions []id.ID
	pos       int

	// Err is set once the recorded decisions run out, letting a
	// caller distinguish "replayed to the end of the recording" from
	// an ordinary run for logging purposes.
	Err error
}

// NewReplay builds a Replay scheduler from the thread-id sequence of
// a Trace's decisions, in order.
func NewReplay(trace schedule.Trace) *Replay {
	decisions := make([]id.ID, len(trace))
	for i, step := range trace {
		decisions[i] = step.Decision.Thread
	}
	return &Replay{decisions: decisions}
}

func (r *Replay) Choose(prefix schedule.Trace, prior *id.ID, runnable []schedule.Runnable, state any) (id.ID, bool, any) {
	if r.pos < len(r.decisions) {
		t := r.decisions[r.pos]
		r.pos++
		for _, rn := range runnable {
			if rn.Thread.Equal(t) {
				return t, true, state
			}
		}
		// the recorded thread is no longer runnable at this point:
		// the program or the memory model must have diverged from the
		// recording. Fall through to the default rather than replay a
		// thread the runtime never offered.
	}
	if r.Err == nil {
		r.Err = RunEndedError
	}
	if len(runnable) == 0 {
		return id.ID{}, false, state
	}
	return lowest(runnable), true, state
}
