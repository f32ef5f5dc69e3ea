// Package conc implements the concurrency runtime: a single-threaded
// interpreter that executes a user program's logical threads one
// primitive operation at a time, driven by a pluggable scheduler.
//
// Logical threads are backed by goroutines, but the runtime never
// relies on real parallelism: exactly one goroutine executes user
// code at any instant, the rest are parked on a private channel
// waiting for the dispatch loop to grant them their next turn.
package conc

import (
	"sct/action"
	"sct/id"
	"sct/stm"
)

// Program is a user computation run as the initial thread; its return
// value becomes the run's result on a normal Stop.
type Program func(c Conc) any

// Child is a user computation forked as a non-initial thread; its
// return value is discarded, matching the fire-and-forget semantics
// of Fork.
type Child func(c Conc)

// Conc is the capability set a user program is written against. The
// engine supplies Runtime's implementation; a real concurrent host
// could supply another.
type Conc interface {
	Fork(f Child) id.ID
	MyThreadID() id.ID
	GetNumCapabilities() int
	SetNumCapabilities(n int)
	Yield()
	LiftIO(f func() any) any

	NewCRef(initial any) id.ID
	ReadCRef(cell id.ID) any
	WriteCRef(cell id.ID, val any)
	ModCRef(cell id.ID, f func(any) any) any
	ReadCRefCAS(cell id.ID) (value any, ticket uint64)
	CasCRef(cell id.ID, ticket uint64, newVal any) bool
	ModCRefCAS(cell id.ID, f func(any) any) any

	NewMVar(initial any, full bool) id.ID
	PutMVar(mv id.ID, val any)
	TryPutMVar(mv id.ID, val any) bool
	ReadMVar(mv id.ID) any
	TryReadMVar(mv id.ID) (any, bool)
	TakeMVar(mv id.ID) any
	TryTakeMVar(mv id.ID) (any, bool)

	Atomically(body func(tx *stm.Tx) any) any

	Throw(err error)
	ThrowTo(target id.ID, err error)
	Catch(body func(), handler func(err error))
	Mask(state action.MaskingState, body func())

	Subconcurrency(body func(c Conc) any) (any, error)
}

// throwSignal is the panic sentinel carried through Go's real call
// stack for Throw/ThrowTo delivery, mirroring the retry/throw sentinel
// used by the transaction engine.
type throwSignal struct{ err error }
