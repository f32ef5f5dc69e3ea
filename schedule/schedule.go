// Package schedule defines the run-wide data model shared by the
// runtime, the schedulers and the DPOR explorer: scheduling
// Decisions, the Trace they produce, the Failure taxonomy, and the
// informational trace renderer.
package schedule

import (
	"bytes"
	"fmt"
	"sort"
	"text/tabwriter"

	"sct/action"
	"sct/id"
)

// DecisionKind tags a Decision.
type DecisionKind int

const (
	// Start records that the previous thread blocked or there was no
	// previous thread (the very first step of a run).
	Start DecisionKind = iota
	// Continue records that the same thread was scheduled again.
	Continue
	// SwitchTo records a preemption to a different runnable thread.
	SwitchTo
)

func (k DecisionKind) String() string {
	switch k {
	case Start:
		return "Start"
	case Continue:
		return "Continue"
	case SwitchTo:
		return "SwitchTo"
	default:
		return "Unknown"
	}
}

// Decision records which thread was scheduled and how, relative to
// the previously scheduled thread.
type Decision struct {
	Kind   DecisionKind
	Thread id.ID // the scheduled thread, set for every kind including Continue
}

// Runnable pairs a live thread with the Lookahead of its next step,
// as computed by the runtime before the scheduler chooses among them.
type Runnable struct {
	Thread    id.ID
	Lookahead action.Lookahead
}

// Step is one entry of a Trace: the decision that selected a thread,
// the full runnable set (with lookaheads) at that point, and the
// action the chosen thread actually performed.
type Step struct {
	Decision Decision
	Runnable []Runnable
	Action   action.ThreadAction
}

// Trace is the ordered sequence of steps produced by one execution.
type Trace []Step

// Failure is the taxonomy of ways a run can end without producing a
// value.
type Failure int

const (
	// OK is the zero value: the run completed with a value, not a
	// Failure. RunSCT callers should check this before formatting.
	OK Failure = iota
	InternalError
	Abort
	Deadlock
	STMDeadlock
	UncaughtException
	IllegalSubconcurrency
)

func (f Failure) String() string {
	switch f {
	case OK:
		return "ok"
	case InternalError:
		return "[internal-error]"
	case Abort:
		return "[abort]"
	case Deadlock:
		return "[deadlock]"
	case STMDeadlock:
		return "[stm-deadlock]"
	case UncaughtException:
		return "[exception]"
	case IllegalSubconcurrency:
		return "[illegal-subconcurrency]"
	default:
		return "[unknown-failure]"
	}
}

// Result is the outcome of one execution: either a value (Failure ==
// OK) or one of the Failure cases.
type Result[T any] struct {
	Failure Failure
	Value   T
}

func Ok[T any](v T) Result[T]        { return Result[T]{Failure: OK, Value: v} }
func Err[T any](f Failure) Result[T] { return Result[T]{Failure: f} }

func (r Result[T]) IsOk() bool { return r.Failure == OK }

// Scheduler chooses which runnable thread steps next given the trace
// so far, the previously scheduled thread (nil if none), and the
// current runnable set with lookaheads. Returning ok == false aborts
// the run. State is opaque to the runtime and threaded back in on the
// next call.
type Scheduler interface {
	Choose(prefix Trace, prior *id.ID, runnable []Runnable, state any) (chosen id.ID, ok bool, newState any)
}

// Render produces the informational, per-step trace rendering
// described in the specification: one short token per step (Sx- to
// start thread x, Px- to preempt to x, - to continue, C- to commit),
// followed by a key of named non-initial threads in ascending id
// order.
func Render(t Trace) string {
	var buf bytes.Buffer
	names := map[id.ID]bool{}
	for _, step := range t {
		switch step.Decision.Kind {
		case Start:
			if step.Decision.Thread.IsCommitPseudoThread() {
				fmt.Fprint(&buf, "C-")
			} else {
				fmt.Fprintf(&buf, "S%d-", step.Decision.Thread.Num())
			}
		case SwitchTo:
			if step.Decision.Thread.IsCommitPseudoThread() {
				fmt.Fprint(&buf, "C-")
			} else {
				fmt.Fprintf(&buf, "P%d-", step.Decision.Thread.Num())
			}
		case Continue:
			fmt.Fprint(&buf, "-")
		}
		if step.Decision.Kind != Continue && !step.Decision.Thread.IsCommitPseudoThread() &&
			!step.Decision.Thread.Equal(id.InitialThreadID) {
			names[step.Decision.Thread] = true
		}
	}

	if len(names) == 0 {
		return buf.String()
	}

	ordered := make([]id.ID, 0, len(names))
	for tid := range names {
		ordered = append(ordered, tid)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Less(ordered[j]) })

	buf.WriteString("\n")
	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	for _, tid := range ordered {
		fmt.Fprintf(tw, "%d:\t%s\n", tid.Num(), tid.Name())
	}
	tw.Flush()
	return buf.String()
}
