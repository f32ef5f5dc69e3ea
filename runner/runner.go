// Package runner drives the two ways of exercising a program against
// the concurrency runtime — the exhaustive, DPOR-guided systematic
// loop and the fixed-iteration random loop — behind one Run type, and
// deduplicates their results for ResultsSet.
package runner

import (
	"log/slog"
	"reflect"

	"sct/conc"
	"sct/dpor"
	"sct/id"
	"sct/memory"
	"sct/schedule"
	"sct/scheduler"

	"golang.org/x/exp/slices"
)

// Run is one execution's outcome, trace, and whether the active bound
// rejects it. Random runs are never Rejected: spec.md's Randomly way
// takes no bound, only a sample count.
type Run struct {
	Result   schedule.Result[any]
	Trace    schedule.Trace
	Rejected bool
}

// RunSystematic explores program exhaustively under bound and memType,
// logging each completed run's outcome at debug level.
func RunSystematic(program conc.Program, memType memory.Type, bound dpor.Bound) []Run {
	explored := dpor.Explore(program, memType, bound)
	out := make([]Run, len(explored))
	for i, r := range explored {
		slog.Debug("systematic run completed",
			"index", i, "failure", r.Result.Failure, "rejected", r.Rejected, "steps", len(r.Trace))
		out[i] = Run{Result: r.Result, Trace: r.Trace, Rejected: r.Rejected}
	}
	slog.Info("systematic exploration finished", "runs", len(out))
	return out
}

// RunRandom executes program iterations times under memType, each time
// scheduled by a fresh seed derived from seed so that the sequence of
// per-run seeds — and hence the whole batch — is reproducible.
func RunRandom(program conc.Program, memType memory.Type, seed int64, iterations int) []Run {
	out := make([]Run, 0, iterations)
	for i := 0; i < iterations; i++ {
		rt := conc.New(id.NewSource(), memType)
		sched := scheduler.NewRandom(seed + int64(i))
		result, trace := rt.Run(program, sched, nil)
		slog.Debug("random run completed", "index", i, "failure", result.Failure, "steps", len(trace))
		out = append(out, Run{Result: result, Trace: trace})
	}
	slog.Info("random exploration finished", "runs", len(out))
	return out
}

// ResultsSet deduplicates the results of runs, discarding rejected
// ones and traces, and returns each distinct Result exactly once in
// first-seen order. Equality is structural (reflect.DeepEqual over
// Failure and Value) rather than the teacher's tree-of-global-states
// walk: a flat Result has no per-node path to accrete incrementally,
// so the tree shape buys nothing here that a linear seen-list doesn't
// already give at this scale.
func ResultsSet(runs []Run) []schedule.Result[any] {
	var out []schedule.Result[any]
	for _, r := range runs {
		if r.Rejected {
			continue
		}
		if slices.ContainsFunc(out, func(seen schedule.Result[any]) bool {
			return reflect.DeepEqual(seen, r.Result)
		}) {
			continue
		}
		out = append(out, r.Result)
	}
	return out
}
