// Package sct is a systematic concurrency testing engine: an abstract
// concurrency runtime paired with a relaxed-memory model and a
// bounded dynamic-partial-order-reduction explorer, driven through
// RunSCT and ResultsSet.
package sct

import (
	"log"
	"log/slog"
	"reflect"

	"sct/conc"
	"sct/dpor"
	"sct/memory"
	"sct/runner"
	"sct/schedule"
)

// MemType selects the memory model applied to unsynchronised cell
// operations during a run.
type MemType = memory.Type

const (
	SequentialConsistency = memory.SequentialConsistency
	TotalStoreOrder       = memory.TotalStoreOrder
	PartialStoreOrder     = memory.PartialStoreOrder
)

// Bound caps a systematic exploration. See NoBound, PreemptionBound,
// FairBound, LengthBound and ComposeBounds.
type Bound = dpor.Bound

func NoBound() Bound              { return dpor.NoBound() }
func PreemptionBound(k int) Bound { return dpor.PreemptionBound{K: k} }
func FairBound(k int) Bound       { return dpor.FairBound{K: k} }
func LengthBound(k int) Bound     { return dpor.LengthBound{K: k} }

// ComposeBounds combines bounds by conjunction on acceptance and union
// on the backtracking points each contributes.
func ComposeBounds(bounds ...Bound) Bound { return dpor.Compose(bounds...) }

// Way selects between exhaustive DPOR-guided exploration and a fixed
// number of randomly-scheduled runs. Build one with Systematically or
// Randomly; the zero Way is not usable.
type Way struct {
	systematic bool
	bound      Bound
	seed       int64
	iterations int
}

// Systematically explores every schedule bound admits, guided by
// dynamic partial-order reduction.
func Systematically(bound Bound) Way {
	return Way{systematic: true, bound: bound}
}

// Randomly executes iterations runs, each scheduled by a fresh seed
// derived from seed, without any exhaustiveness guarantee.
func Randomly(seed int64, iterations int) Way {
	return Way{seed: seed, iterations: iterations}
}

// RunnerOption configures ambient concerns of a RunSCT/ResultsSet call
// that fall outside its operational semantics.
type RunnerOption interface {
	apply(*runConfig)
}

type runConfig struct {
	logger *slog.Logger
}

type loggerOption struct{ logger *slog.Logger }

func (o loggerOption) apply(c *runConfig) { c.logger = o.logger }

// WithLogger routes this call's exploration-progress logging through
// logger instead of slog's process-wide default.
func WithLogger(logger *slog.Logger) RunnerOption { return loggerOption{logger: logger} }

func applyOptions(opts []RunnerOption) runConfig {
	var cfg runConfig
	for _, o := range opts {
		o.apply(&cfg)
	}
	return cfg
}

// Run is one execution's outcome under the requested Way: a decoded
// value of the caller's result type or one of the Failure cases, plus
// its trace and whether the active bound rejected it.
type Run[T any] struct {
	Result   schedule.Result[T]
	Trace    schedule.Trace
	Rejected bool
}

// RunSCT drives program, written against the sct/conc.Conc capability
// set, through way's exploration strategy under memType and returns
// every run produced.
//
// program must be non-nil and way must have been built by
// Systematically or Randomly, never the zero Way: both are programmer
// errors rather than run-time outcomes of the exploration, so
// violations panic via log.Panicf instead of surfacing as a Failure.
func RunSCT[T any](program func(conc.Conc) T, memType MemType, way Way, opts ...RunnerOption) []Run[T] {
	raw := explore(program, memType, way, opts)
	out := make([]Run[T], len(raw))
	for i, r := range raw {
		out[i] = Run[T]{Result: decode[T](r.Result), Trace: r.Trace, Rejected: r.Rejected}
	}
	return out
}

// ResultsSet is RunSCT with traces discarded and results deduplicated:
// each distinct outcome appears once, in first-seen order, and
// bound-rejected runs are excluded entirely.
func ResultsSet[T any](program func(conc.Conc) T, memType MemType, way Way, opts ...RunnerOption) []schedule.Result[T] {
	raw := explore(program, memType, way, opts)
	deduped := runner.ResultsSet(raw)
	out := make([]schedule.Result[T], len(deduped))
	for i, r := range deduped {
		out[i] = decode[T](r)
	}
	return out
}

func explore[T any](program func(conc.Conc) T, memType MemType, way Way, opts []RunnerOption) []runner.Run {
	if program == nil {
		log.Panicf("sct: RunSCT/ResultsSet called with a nil program")
	}

	cfg := applyOptions(opts)
	if cfg.logger != nil {
		prev := slog.Default()
		slog.SetDefault(cfg.logger)
		defer slog.SetDefault(prev)
	}

	wrapped := func(c conc.Conc) any { return program(c) }

	switch {
	case way.systematic:
		return runner.RunSystematic(wrapped, memType, way.bound)
	case way.iterations > 0:
		return runner.RunRandom(wrapped, memType, way.seed, way.iterations)
	default:
		log.Panicf("sct: RunSCT/ResultsSet called with the zero Way; use Systematically or Randomly")
		return nil
	}
}

// decode narrows a schedule.Result[any] produced by the untyped
// runner back into the caller's declared result type.
func decode[T any](r schedule.Result[any]) schedule.Result[T] {
	if !r.IsOk() {
		return schedule.Err[T](r.Failure)
	}
	if r.Value == nil {
		var zero T
		return schedule.Ok(zero)
	}
	if v, ok := r.Value.(T); ok {
		return schedule.Ok(v)
	}
	log.Panicf("sct: program result %v (%s) is not assignable to the requested result type", r.Value, reflect.TypeOf(r.Value))
	panic("unreachable")
}
