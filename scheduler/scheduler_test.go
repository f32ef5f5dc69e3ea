package scheduler

import (
	"testing"

	"sct/id"
	"sct/schedule"
)

func runnableFrom(ids ...id.ID) []schedule.Runnable {
	out := make([]schedule.Runnable, len(ids))
	for i, t := range ids {
		out[i] = schedule.Runnable{Thread: t}
	}
	return out
}

func TestRandomPicksAmongRunnable(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")
	runnable := runnableFrom(a, b)

	sched := NewRandom(1)
	seen := map[id.ID]bool{}
	for i := 0; i < 50; i++ {
		chosen, ok, _ := sched.Choose(nil, nil, runnable, nil)
		if !ok {
			t.Fatalf("expected ok")
		}
		seen[chosen] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("expected both threads to be chosen across repeated calls, got %v", seen)
	}
}

func TestRandomAbortsWithNoRunnable(t *testing.T) {
	sched := NewRandom(1)
	_, ok, _ := sched.Choose(nil, nil, nil, nil)
	if ok {
		t.Fatalf("expected no choice with an empty runnable set")
	}
}

func TestRoundRobinWrapsAround(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")
	c := src.New(id.Thread, "c")
	runnable := runnableFrom(a, b, c)

	sched := RoundRobin{}
	chosen, _, _ := sched.Choose(nil, &c, runnable, nil)
	if !chosen.Equal(a) {
		t.Fatalf("expected wraparound to lowest id, got %v", chosen)
	}

	chosen, _, _ = sched.Choose(nil, &a, runnable, nil)
	if !chosen.Equal(b) {
		t.Fatalf("expected next id above prior, got %v", chosen)
	}
}

func TestRoundRobinSkipsUnrunnablePrior(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")
	c := src.New(id.Thread, "c")
	runnable := runnableFrom(a, c)

	sched := RoundRobin{}
	chosen, _, _ := sched.Choose(nil, &b, runnable, nil)
	if !chosen.Equal(c) {
		t.Fatalf("expected the next runnable id above prior, got %v", chosen)
	}
}

func TestNonPreemptiveKeepsPriorWhileRunnable(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")
	runnable := runnableFrom(a, b)

	sched := NonPreemptive{Wrapped: RoundRobin{}}
	chosen, _, _ := sched.Choose(nil, &b, runnable, nil)
	if !chosen.Equal(b) {
		t.Fatalf("expected prior thread to be kept, got %v", chosen)
	}
}

func TestNonPreemptiveDelegatesWhenPriorBlocked(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")
	c := src.New(id.Thread, "c")
	runnable := runnableFrom(a, c)

	sched := NonPreemptive{Wrapped: RoundRobin{}}
	chosen, ok, _ := sched.Choose(nil, &b, runnable, nil)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !chosen.Equal(c) {
		t.Fatalf("expected delegate to pick the next runnable id above prior, got %v", chosen)
	}
}

func TestReplayReproducesRecordedDecisions(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")

	trace := schedule.Trace{
		{Decision: schedule.Decision{Kind: schedule.Start, Thread: a}},
		{Decision: schedule.Decision{Kind: schedule.SwitchTo, Thread: b}},
	}
	sched := NewReplay(trace)

	chosen, ok, _ := sched.Choose(nil, nil, runnableFrom(a, b), nil)
	if !ok || !chosen.Equal(a) {
		t.Fatalf("expected first recorded decision a, got %v ok=%v", chosen, ok)
	}
	chosen, ok, _ = sched.Choose(nil, &a, runnableFrom(a, b), nil)
	if !ok || !chosen.Equal(b) {
		t.Fatalf("expected second recorded decision b, got %v ok=%v", chosen, ok)
	}
	if sched.Err != nil {
		t.Fatalf("expected no error while recorded decisions remain, got %v", sched.Err)
	}
}

func TestReplayFallsBackAfterExhaustion(t *testing.T) {
	src := id.NewSource()
	a := src.New(id.Thread, "a")
	b := src.New(id.Thread, "b")

	trace := schedule.Trace{
		{Decision: schedule.Decision{Kind: schedule.Start, Thread: a}},
	}
	sched := NewReplay(trace)
	sched.Choose(nil, nil, runnableFrom(a, b), nil)

	chosen, ok, _ := sched.Choose(nil, &a, runnableFrom(a, b), nil)
	if !ok {
		t.Fatalf("expected a fallback choice once the recording is exhausted")
	}
	if !chosen.Equal(a) {
		t.Fatalf("expected fallback to lowest runnable id, got %v", chosen)
	}
	if sched.Err != RunEndedError {
		t.Fatalf("expected Err to be set to RunEndedError, got %v", sched.Err)
	}
}
