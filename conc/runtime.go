package conc

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"sct/action"
	"sct/id"
	"sct/memory"
	"sct/schedule"
)

type threadStatus int

const (
	statusRunnable threadStatus = iota
	statusBlocked
	statusDone
)

type blockReason int

const (
	blockNone blockReason = iota
	blockMVar
	blockSTM
	blockThrowTo
)

type resumeKind int

const (
	resumeProceed resumeKind = iota
	resumeThrow
)

type resumeMsg struct {
	kind  resumeKind
	value any
	err   error
}

// attemptFn performs the effect of a previously reported lookahead
// against the runtime's stores. blocked reports that the precondition
// failed and the thread made no progress. awaitExtra names any other
// threads whose next arrival the dispatch loop must also wait for as
// a direct consequence of this step (a freshly forked child, or a
// ThrowTo target that was just interrupted).
// selfThrow, when non-nil, tells the dispatch loop to deliver an
// exception to the acting thread itself instead of the normal resume
// value — used when unmasking immediately delivers a queued ThrowTo.
type attemptFn func() (act action.ThreadAction, value any, blocked bool, awaitExtra []id.ID, selfThrow error)

type arrivalMsg struct {
	thread    id.ID
	lookahead action.Lookahead
	attempt   attemptFn
	killed    bool // set when the thread died from an uncaught exception; bypasses scheduling entirely
}

// deliveredResult is set on a thread by whichever other thread's
// attempt completed its blocked operation on its behalf (e.g. a put
// handing its value straight to a queued taker). The dispatch
// loop consumes it instead of re-invoking the thread's own attempt.
type deliveredResult struct {
	act   action.ThreadAction
	value any
}

type throwWaiter struct {
	from id.ID
	err  error
}

type threadRecord struct {
	id           id.ID
	status       threadStatus
	blockedOn    blockReason
	resume       chan resumeMsg
	masking      action.MaskingState
	throwWaiters []throwWaiter
	stmWaitSet   []id.ID // tvars this thread is blocked-retrying on
	delivered    *deliveredResult
}

type putWaiter struct {
	thread id.ID
	value  any
}

type mvarState struct {
	full        bool
	value       any
	putWaiters  []putWaiter
	takeWaiters []id.ID
	readWaiters []id.ID
}

// Runtime is the mock implementation of Conc that the exploration
// engine drives: one goroutine per logical thread, coordinated by a
// single dispatch loop so that only one goroutine ever executes user
// code at a time.
type Runtime struct {
	idSrc *id.Source
	store *memory.Store

	tvars       map[id.ID]any
	tvarWaiters map[id.ID][]id.ID

	mvars   map[id.ID]*mvarState
	threads map[id.ID]*threadRecord

	arrivals chan arrivalMsg
	pending  map[id.ID]arrivalMsg

	// commitThreads assigns a stable pseudo-thread identity to each
	// eligible commit Target for the lifetime of this run, so that DPOR
	// sees the same thread id for "commit this writer's buffer" across
	// every scheduling point at which it remains eligible.
	commitThreads map[memory.Target]id.ID
	commitTargets map[id.ID]memory.Target

	subDepth int
}

// New creates a Runtime backed by a fresh cell store using memType.
func New(idSrc *id.Source, memType memory.Type) *Runtime {
	return &Runtime{
		idSrc:         idSrc,
		store:         memory.New(memType),
		tvars:         map[id.ID]any{},
		tvarWaiters:   map[id.ID][]id.ID{},
		mvars:         map[id.ID]*mvarState{},
		threads:       map[id.ID]*threadRecord{},
		arrivals:      make(chan arrivalMsg),
		pending:       map[id.ID]arrivalMsg{},
		commitThreads: map[memory.Target]id.ID{},
		commitTargets: map[id.ID]memory.Target{},
	}
}

// commitThreadFor returns the pseudo-thread identity representing
// target's buffer, allocating one the first time target becomes
// eligible and reusing it for as long as PendingCommits keeps
// reporting the same (writer, cell) pair.
func (rt *Runtime) commitThreadFor(target memory.Target) id.ID {
	if tid, ok := rt.commitThreads[target]; ok {
		return tid
	}
	tid := rt.idSrc.NewCommitPseudoThread(target.Writer.Name())
	rt.commitThreads[target] = tid
	rt.commitTargets[tid] = target
	return tid
}

// spawn creates the thread record and launches its goroutine, which
// runs body against a *concHandle bound to this thread before the
// goroutine starts, avoiding any concurrent read of the thread table.
func (rt *Runtime) spawn(tid id.ID, body func(h *concHandle) any) {
	resume := make(chan resumeMsg)
	rt.threads[tid] = &threadRecord{id: tid, status: statusRunnable, resume: resume, masking: action.Unmasked}
	h := &concHandle{rt: rt, tid: tid, resume: resume}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				sig, ok := r.(throwSignal)
				if !ok {
					panic(r)
				}
				rt.arrivals <- arrivalMsg{thread: tid, killed: true, attempt: func() (action.ThreadAction, any, bool, []id.ID, error) {
					return action.ThreadAction{Kind: action.Killed, Thread: tid}, sig.err, false, nil, nil
				}}
				return
			}
		}()
		result := body(h)
		rt.arrivals <- arrivalMsg{thread: tid, lookahead: action.Lookahead{Kind: action.WillStop, Thread: tid}, attempt: func() (action.ThreadAction, any, bool, []id.ID, error) {
			return action.ThreadAction{Kind: action.Stop}, result, false, nil, nil
		}}
	}()
}

// Run drives one execution of program under sched, starting from
// schedState, and returns the outcome paired with the trace produced.
func (rt *Runtime) Run(program Program, sched schedule.Scheduler, schedState any) (schedule.Result[any], schedule.Trace) {
	rt.spawn(id.InitialThreadID, func(h *concHandle) any {
		return program(h)
	})
	first := <-rt.arrivals
	rt.pending[first.thread] = first

	var trace schedule.Trace
	var prior *id.ID

	for {
		runnable := rt.runnableList()
		if len(runnable) == 0 {
			return rt.finalize(trace)
		}

		decisionThread, ok, newState := sched.Choose(trace, prior, runnable, schedState)
		schedState = newState
		if !ok {
			return schedule.Err[any](schedule.Abort), trace
		}

		if decisionThread.IsCommitPseudoThread() {
			if !rt.stepCommit(decisionThread, runnable, &trace, &prior) {
				return schedule.Err[any](schedule.InternalError), trace
			}
			continue
		}

		arr, known := rt.pending[decisionThread]
		if !known || rt.threads[decisionThread].status != statusRunnable {
			return schedule.Err[any](schedule.InternalError), trace
		}

		var act action.ThreadAction
		var value any
		var blocked bool
		var extra []id.ID
		var selfThrow error
		if d := rt.threads[decisionThread].delivered; d != nil {
			act, value = d.act, d.value
			rt.threads[decisionThread].delivered = nil
		} else {
			act, value, blocked, extra, selfThrow = arr.attempt()
		}

		kind := schedule.Continue
		if prior == nil || !prior.Equal(decisionThread) {
			kind = schedule.Start
			for _, r := range runnable {
				if prior != nil && r.Thread.Equal(*prior) {
					kind = schedule.SwitchTo
				}
			}
		}
		step := schedule.Step{
			Decision: schedule.Decision{Kind: kind, Thread: decisionThread},
			Runnable: runnable,
			Action:   act,
		}
		trace = append(trace, step)
		t := decisionThread
		prior = &t

		if blocked {
			continue
		}

		delete(rt.pending, decisionThread)

		if act.Kind == action.Stop || act.Kind == action.Killed {
			rt.threads[decisionThread].status = statusDone
			if decisionThread.Equal(id.InitialThreadID) {
				if act.Kind == action.Killed {
					return schedule.Err[any](schedule.UncaughtException), trace
				}
				return schedule.Ok(value), trace
			}
			continue
		}

		if selfThrow != nil {
			rt.threads[decisionThread].resume <- resumeMsg{kind: resumeThrow, err: selfThrow}
		} else {
			rt.threads[decisionThread].resume <- resumeMsg{kind: resumeProceed, value: value}
		}
		awaitCount := 1 + len(extra)
		for i := 0; i < awaitCount; i++ {
			next := <-rt.arrivals
			if next.killed {
				rt.threads[next.thread].status = statusDone
				if next.thread.Equal(id.InitialThreadID) {
					return schedule.Err[any](schedule.UncaughtException), trace
				}
				continue
			}
			rt.pending[next.thread] = next
		}
	}
}

// stepCommit performs a commit pseudo-thread's step directly: unlike a
// real thread it has no goroutine to resume, so publishing the buffer
// head and recording the trace step is the entirety of its action.
func (rt *Runtime) stepCommit(tid id.ID, runnable []schedule.Runnable, trace *schedule.Trace, prior **id.ID) bool {
	target, known := rt.commitTargets[tid]
	if !known {
		return false
	}
	cell, ok := rt.store.Commit(target)
	if !ok {
		return false
	}

	kind := schedule.Continue
	if *prior == nil || !(*prior).Equal(tid) {
		kind = schedule.Start
		for _, r := range runnable {
			if *prior != nil && r.Thread.Equal(**prior) {
				kind = schedule.SwitchTo
			}
		}
	}
	step := schedule.Step{
		Decision: schedule.Decision{Kind: kind, Thread: tid},
		Runnable: runnable,
		Action:   action.ThreadAction{Kind: action.CommitCRef, Thread: target.Writer, Cell: cell},
	}
	*trace = append(*trace, step)
	t := tid
	*prior = &t
	return true
}

func (rt *Runtime) runnableList() []schedule.Runnable {
	var out []schedule.Runnable
	ids := maps.Keys(rt.pending)
	slices.SortFunc(ids, func(a, b id.ID) bool { return a.Less(b) })
	for _, tid := range ids {
		if rt.threads[tid].status != statusRunnable {
			continue
		}
		out = append(out, schedule.Runnable{Thread: tid, Lookahead: rt.pending[tid].lookahead})
	}

	targets := rt.store.PendingCommits()
	commits := make([]schedule.Runnable, 0, len(targets))
	for _, target := range targets {
		tid := rt.commitThreadFor(target)
		commits = append(commits, schedule.Runnable{
			Thread:    tid,
			Lookahead: action.Lookahead{Kind: action.WillCommitCRef, Thread: target.Writer, Cell: target.Cell},
		})
	}
	slices.SortFunc(commits, func(a, b schedule.Runnable) bool { return a.Thread.Less(b.Thread) })
	out = append(out, commits...)
	return out
}

func (rt *Runtime) finalize(trace schedule.Trace) (schedule.Result[any], schedule.Trace) {
	anyBlocked := false
	anySTMOnly := true
	for _, tr := range rt.threads {
		if tr.status == statusBlocked {
			anyBlocked = true
			if tr.blockedOn != blockSTM {
				anySTMOnly = false
			}
		}
	}
	if !anyBlocked {
		// every thread finished without the initial thread ever emitting
		// Stop: only possible if the initial thread was killed, already
		// handled at the point of death. Treat as an internal error.
		return schedule.Err[any](schedule.InternalError), trace
	}
	if anySTMOnly {
		return schedule.Err[any](schedule.STMDeadlock), trace
	}
	return schedule.Err[any](schedule.Deadlock), trace
}

func (rt *Runtime) newBlockedReason(tid id.ID, reason blockReason) {
	rt.threads[tid].status = statusBlocked
	rt.threads[tid].blockedOn = reason
}

func (rt *Runtime) unblock(tid id.ID) {
	rt.threads[tid].status = statusRunnable
	rt.threads[tid].blockedOn = blockNone
}
