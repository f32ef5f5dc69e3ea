// Package scheduler collects the built-in schedule.Scheduler
// implementations: uniform-random, round-robin, a non-preemptive
// wrapper around either, the DPOR-driven scheduler used by the
// explorer, and a replay scheduler for reproducing a recorded trace.
package scheduler

import "errors"

// RunEndedError and NoRunsError name the sentinel-error trio the
// teacher package uses for scheduler exhaustion. NoEventError has no
// counterpart here: this engine's Scheduler always receives its full
// runnable set up front rather than pulling events from a queue that
// can run dry independently of the run itself.
var (
	RunEndedError = errors.New("scheduler: the run has ended")
	NoRunsError   = errors.New("scheduler: no available new runs to be started")
)
