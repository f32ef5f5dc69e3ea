package runner

import (
	"testing"

	"sct/conc"
	"sct/dpor"
	"sct/memory"
	"sct/schedule"
)

func TestRunSystematicExploresAllInterleavings(t *testing.T) {
	program := func(c conc.Conc) any {
		mv := c.NewMVar(nil, false)
		c.Fork(func(c conc.Conc) { c.PutMVar(mv, 1) })
		c.Fork(func(c conc.Conc) { c.PutMVar(mv, 2) })
		return c.TakeMVar(mv)
	}
	runs := RunSystematic(program, memory.SequentialConsistency, dpor.NoBound())
	if len(runs) == 0 {
		t.Fatalf("expected at least one run")
	}
	seen := map[int]bool{}
	for _, r := range runs {
		if r.Rejected || !r.Result.IsOk() {
			continue
		}
		seen[r.Result.Value.(int)] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected both puts to win somewhere, got %v", seen)
	}
}

func TestRunRandomProducesRequestedIterations(t *testing.T) {
	program := func(c conc.Conc) any { return 42 }
	runs := RunRandom(program, memory.SequentialConsistency, 7, 5)
	if len(runs) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if !r.Result.IsOk() || r.Result.Value.(int) != 42 {
			t.Fatalf("expected ok result 42, got %+v", r.Result)
		}
	}
}

func TestRunRandomIsReproducibleForFixedSeed(t *testing.T) {
	program := func(c conc.Conc) any {
		mv := c.NewMVar(nil, false)
		c.Fork(func(c conc.Conc) { c.PutMVar(mv, 1) })
		c.Fork(func(c conc.Conc) { c.PutMVar(mv, 2) })
		return c.TakeMVar(mv)
	}
	a := RunRandom(program, memory.SequentialConsistency, 99, 20)
	b := RunRandom(program, memory.SequentialConsistency, 99, 20)
	if len(a) != len(b) {
		t.Fatalf("expected equal run counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Result.Value != b[i].Result.Value {
			t.Fatalf("run %d diverged between identical seeds: %v vs %v", i, a[i].Result.Value, b[i].Result.Value)
		}
	}
}

func TestResultsSetDeduplicatesAndDropsRejected(t *testing.T) {
	runs := []Run{
		{Result: schedule.Ok[any](1)},
		{Result: schedule.Ok[any](1)},
		{Result: schedule.Ok[any](2)},
		{Result: schedule.Ok[any](3), Rejected: true},
	}
	set := ResultsSet(runs)
	if len(set) != 2 {
		t.Fatalf("expected 2 distinct results, got %d: %+v", len(set), set)
	}
}
