package schedule

import (
	"strings"
	"testing"

	"sct/action"
	"sct/id"
)

func TestRenderBasicSequence(t *testing.T) {
	src := id.NewSource()
	worker := src.New(id.Thread, "worker")

	tr := Trace{
		{Decision: Decision{Kind: Start, Thread: id.InitialThreadID}, Action: action.ThreadAction{Kind: action.Fork, Thread: worker}},
		{Decision: Decision{Kind: SwitchTo, Thread: worker}, Action: action.ThreadAction{Kind: action.Stop}},
		{Decision: Decision{Kind: Continue}, Action: action.ThreadAction{Kind: action.Stop}},
	}

	out := Render(tr)
	if !strings.HasPrefix(out, "S0-P1--") {
		t.Errorf("unexpected render prefix: %q", out)
	}
	if !strings.Contains(out, "worker") {
		t.Errorf("expected the key to name the worker thread: %q", out)
	}
}

func TestFailureStrings(t *testing.T) {
	cases := map[Failure]string{
		Abort:                 "[abort]",
		Deadlock:              "[deadlock]",
		STMDeadlock:           "[stm-deadlock]",
		UncaughtException:     "[exception]",
		IllegalSubconcurrency: "[illegal-subconcurrency]",
		InternalError:         "[internal-error]",
	}
	for f, want := range cases {
		if got := f.String(); got != want {
			t.Errorf("Failure(%d).String() = %q, want %q", f, got, want)
		}
	}
}

func TestResultOk(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.Value != 42 {
		t.Errorf("expected Ok result carrying 42, got %+v", r)
	}
	e := Err[int](Deadlock)
	if e.IsOk() {
		t.Errorf("expected Err result to not be ok")
	}
}
