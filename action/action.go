// Package action defines the action algebra: the tagged enumeration
// of every scheduling-relevant event a thread can emit (ThreadAction),
// its lookahead form (Lookahead, describing an about-to-happen action
// without committing to its outcome), and the coarse classification
// (ActionType) the DPOR explorer uses to test dependency.
package action

import (
	"fmt"

	"sct/id"
	"sct/stm"
)

// Kind tags a ThreadAction. Names follow the data model of the
// specification directly.
type Kind int

const (
	Fork Kind = iota
	MyThreadID
	GetNumCapabilities
	SetNumCapabilities
	Yield

	NewCRef
	ReadCRef
	ReadCRefCAS
	ModCRef
	ModCRefCAS
	WriteCRef
	CasCRef
	CommitCRef

	NewMVar
	PutMVar
	BlockedPutMVar
	TryPutMVar
	ReadMVar
	TryReadMVar
	BlockedReadMVar
	TakeMVar
	BlockedTakeMVar
	TryTakeMVar

	STM
	BlockedSTM

	Catching
	PopCatching
	Throw
	ThrowTo
	BlockedThrowTo
	Killed
	SetMasking
	ResetMasking

	LiftIO

	Return
	Stop

	Subconcurrency
	StopSubconcurrency
)

var kindNames = map[Kind]string{
	Fork: "Fork", MyThreadID: "MyThreadId", GetNumCapabilities: "GetNumCapabilities",
	SetNumCapabilities: "SetNumCapabilities", Yield: "Yield",
	NewCRef: "NewCRef", ReadCRef: "ReadCRef", ReadCRefCAS: "ReadCRefCas", ModCRef: "ModCRef",
	ModCRefCAS: "ModCRefCas", WriteCRef: "WriteCRef", CasCRef: "CasCRef", CommitCRef: "CommitCRef",
	NewMVar: "NewMVar", PutMVar: "PutMVar", BlockedPutMVar: "BlockedPutMVar", TryPutMVar: "TryPutMVar",
	ReadMVar: "ReadMVar", TryReadMVar: "TryReadMVar", BlockedReadMVar: "BlockedReadMVar",
	TakeMVar: "TakeMVar", BlockedTakeMVar: "BlockedTakeMVar", TryTakeMVar: "TryTakeMVar",
	STM: "STM", BlockedSTM: "BlockedSTM",
	Catching: "Catching", PopCatching: "PopCatching", Throw: "Throw", ThrowTo: "ThrowTo",
	BlockedThrowTo: "BlockedThrowTo", Killed: "Killed", SetMasking: "SetMasking", ResetMasking: "ResetMasking",
	LiftIO: "LiftIO", Return: "Return", Stop: "Stop",
	Subconcurrency: "Subconcurrency", StopSubconcurrency: "StopSubconcurrency",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MaskingState is the thread's current exception-masking level.
type MaskingState int

const (
	Unmasked MaskingState = iota
	MaskedInterruptible
	MaskedUninterruptible
)

// MaskReason distinguishes why a masking change happened, purely for
// trace readability; it carries no semantic weight in dependency.
type MaskReason int

const (
	MaskCall MaskReason = iota
	OnHandlerEntry
	OnHandlerExit
)

// ThreadAction is one step recorded in a Trace. Only the fields
// relevant to Kind are meaningful; the rest are zero.
type ThreadAction struct {
	Kind Kind

	Thread id.ID // ThrowTo/BlockedThrowTo target, CommitCRef writer
	Cell   id.ID // cell-touching kinds
	MVar   id.ID // blocking-variable kinds

	N int // GetNumCapabilities/SetNumCapabilities

	Success bool // CasCRef, TryPutMVar, TryReadMVar, TryTakeMVar

	Woken []id.ID // threads woken by this step

	Trace stm.TTrace // STM / BlockedSTM

	MaskReason MaskReason
	Mask       MaskingState
}

func (a ThreadAction) String() string {
	return a.Kind.String()
}

// IsBlocked reports whether a records that the thread made no state
// change in this step because its precondition failed.
func (a ThreadAction) IsBlocked() bool {
	switch a.Kind {
	case BlockedPutMVar, BlockedReadMVar, BlockedTakeMVar, BlockedSTM, BlockedThrowTo:
		return true
	default:
		return false
	}
}

// LKind tags a Lookahead: the description of what a thread is about
// to do, without committing to blocking/success outcomes.
type LKind int

const (
	WillFork LKind = iota
	WillMyThreadID
	WillGetNumCapabilities
	WillSetNumCapabilities
	WillYield

	WillNewCRef
	WillReadCRef
	WillReadCRefCAS
	WillModCRef
	WillModCRefCAS
	WillWriteCRef
	WillCasCRef
	WillCommitCRef

	WillNewMVar
	WillPutMVar
	WillTryPutMVar
	WillReadMVar
	WillTryReadMVar
	WillTakeMVar
	WillTryTakeMVar

	WillSTM

	WillCatching
	WillPopCatching
	WillThrow
	WillThrowTo
	WillSetMasking
	WillResetMasking

	WillLiftIO

	WillReturn
	WillStop

	WillSubconcurrency
	WillStopSubconcurrency
)

var lKindNames = map[LKind]string{
	WillFork: "WillFork", WillMyThreadID: "WillMyThreadId", WillGetNumCapabilities: "WillGetNumCapabilities",
	WillSetNumCapabilities: "WillSetNumCapabilities", WillYield: "WillYield",
	WillNewCRef: "WillNewCRef", WillReadCRef: "WillReadCRef", WillReadCRefCAS: "WillReadCRefCas",
	WillModCRef: "WillModCRef", WillModCRefCAS: "WillModCRefCas", WillWriteCRef: "WillWriteCRef",
	WillCasCRef: "WillCasCRef", WillCommitCRef: "WillCommitCRef",
	WillNewMVar: "WillNewMVar", WillPutMVar: "WillPutMVar", WillTryPutMVar: "WillTryPutMVar",
	WillReadMVar: "WillReadMVar", WillTryReadMVar: "WillTryReadMVar",
	WillTakeMVar: "WillTakeMVar", WillTryTakeMVar: "WillTryTakeMVar",
	WillSTM: "WillSTM",
	WillCatching: "WillCatching", WillPopCatching: "WillPopCatching", WillThrow: "WillThrow",
	WillThrowTo: "WillThrowTo", WillSetMasking: "WillSetMasking", WillResetMasking: "WillResetMasking",
	WillLiftIO: "WillLiftIO", WillReturn: "WillReturn", WillStop: "WillStop",
	WillSubconcurrency: "WillSubconcurrency", WillStopSubconcurrency: "WillStopSubconcurrency",
}

func (k LKind) String() string {
	if s, ok := lKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LKind(%d)", int(k))
}

// Lookahead is what the runtime reports for a runnable thread before
// the scheduler commits to running it.
type Lookahead struct {
	Kind   LKind
	Thread id.ID
	Cell   id.ID
	MVar   id.ID
}

func (l Lookahead) String() string { return l.Kind.String() }

var rewindTable = map[Kind]LKind{
	Fork: WillFork, MyThreadID: WillMyThreadID, GetNumCapabilities: WillGetNumCapabilities,
	SetNumCapabilities: WillSetNumCapabilities, Yield: WillYield,

	NewCRef: WillNewCRef, ReadCRef: WillReadCRef, ReadCRefCAS: WillReadCRefCAS,
	ModCRef: WillModCRef, ModCRefCAS: WillModCRefCAS, WriteCRef: WillWriteCRef,
	CasCRef: WillCasCRef, CommitCRef: WillCommitCRef,

	NewMVar: WillNewMVar,
	PutMVar: WillPutMVar, BlockedPutMVar: WillPutMVar, TryPutMVar: WillTryPutMVar,
	ReadMVar: WillReadMVar, TryReadMVar: WillTryReadMVar, BlockedReadMVar: WillReadMVar,
	TakeMVar: WillTakeMVar, BlockedTakeMVar: WillTakeMVar, TryTakeMVar: WillTryTakeMVar,

	STM: WillSTM, BlockedSTM: WillSTM,

	Catching: WillCatching, PopCatching: WillPopCatching, Throw: WillThrow,
	ThrowTo: WillThrowTo, BlockedThrowTo: WillThrowTo,
	SetMasking: WillSetMasking, ResetMasking: WillResetMasking,

	LiftIO: WillLiftIO,
	Return: WillReturn, Stop: WillStop,

	Subconcurrency: WillSubconcurrency, StopSubconcurrency: WillStopSubconcurrency,
}

// Rewind computes the Lookahead a ThreadAction would have been
// reported as, before it committed to an outcome. Every ThreadAction
// except Killed rewinds to a Lookahead; Killed reports ok=false since
// a thread never intends to be killed.
func Rewind(a ThreadAction) (Lookahead, bool) {
	if a.Kind == Killed {
		return Lookahead{}, false
	}
	lk, ok := rewindTable[a.Kind]
	if !ok {
		return Lookahead{}, false
	}
	return Lookahead{Kind: lk, Thread: a.Thread, Cell: a.Cell, MVar: a.MVar}, true
}

// Type is the coarse classification of an action used to test
// dependency between two steps of a trace.
type Type struct {
	Class TypeClass
	Cell  id.ID // set for the Cell-scoped classes
	MVar  id.ID // set for the MVar-scoped classes
}

type TypeClass int

const (
	UnsynchronisedRead TypeClass = iota
	UnsynchronisedWrite
	UnsynchronisedOther

	PartiallySynchronisedCommit
	PartiallySynchronisedWrite
	PartiallySynchronisedModify

	SynchronisedModify
	SynchronisedRead
	SynchronisedWrite
	SynchronisedOther
)

func (c TypeClass) String() string {
	switch c {
	case UnsynchronisedRead:
		return "UnsynchronisedRead"
	case UnsynchronisedWrite:
		return "UnsynchronisedWrite"
	case UnsynchronisedOther:
		return "UnsynchronisedOther"
	case PartiallySynchronisedCommit:
		return "PartiallySynchronisedCommit"
	case PartiallySynchronisedWrite:
		return "PartiallySynchronisedWrite"
	case PartiallySynchronisedModify:
		return "PartiallySynchronisedModify"
	case SynchronisedModify:
		return "SynchronisedModify"
	case SynchronisedRead:
		return "SynchronisedRead"
	case SynchronisedWrite:
		return "SynchronisedWrite"
	case SynchronisedOther:
		return "SynchronisedOther"
	default:
		return "Unknown"
	}
}

// SimplifyLookahead derives the coarse Type of a Lookahead.
func SimplifyLookahead(l Lookahead) Type {
	switch l.Kind {
	case WillReadCRef, WillReadCRefCAS:
		return Type{Class: UnsynchronisedRead, Cell: l.Cell}
	case WillWriteCRef:
		return Type{Class: UnsynchronisedWrite, Cell: l.Cell}
	case WillCommitCRef:
		return Type{Class: PartiallySynchronisedCommit, Cell: l.Cell}
	case WillModCRef:
		return Type{Class: PartiallySynchronisedModify, Cell: l.Cell}
	case WillCasCRef:
		return Type{Class: PartiallySynchronisedWrite, Cell: l.Cell}
	case WillModCRefCAS:
		return Type{Class: SynchronisedModify, Cell: l.Cell}
	case WillPutMVar, WillTryPutMVar, WillTakeMVar, WillTryTakeMVar:
		return Type{Class: SynchronisedWrite, MVar: l.MVar}
	case WillReadMVar, WillTryReadMVar:
		return Type{Class: SynchronisedRead, MVar: l.MVar}
	case WillNewMVar, WillSTM, WillThrowTo:
		return Type{Class: SynchronisedOther}
	default:
		return Type{Class: UnsynchronisedOther}
	}
}

// SimplifyAction derives the coarse Type of a ThreadAction. It is
// defined as SimplifyLookahead(Rewind(a)) for every action for which
// Rewind is defined, and directly for Killed (which has no
// lookahead): Killed is classified as UnsynchronisedOther, since by
// the time it is emitted the thread can no longer race with anything.
func SimplifyAction(a ThreadAction) Type {
	if a.Kind == Killed {
		return Type{Class: UnsynchronisedOther}
	}
	lk, ok := Rewind(a)
	if !ok {
		return Type{Class: UnsynchronisedOther}
	}
	return SimplifyLookahead(lk)
}
