// Package memory implements the relaxed-memory subsystem: mutable
// cells with sequentially-consistent, total-store-order or
// partial-store-order semantics, backed by per-writer or per-cell
// FIFO write buffers and explicit commit actions.
package memory

import "sct/id"

// Type selects the memory model applied to unsynchronised cell
// operations.
type Type int

const (
	SequentialConsistency Type = iota
	TotalStoreOrder
	PartialStoreOrder
)

func (t Type) String() string {
	switch t {
	case SequentialConsistency:
		return "SequentialConsistency"
	case TotalStoreOrder:
		return "TotalStoreOrder"
	case PartialStoreOrder:
		return "PartialStoreOrder"
	default:
		return "Unknown"
	}
}

type entry struct {
	cell  id.ID
	value any
}

// key identifies a write buffer. Under TSO only Writer is used (one
// buffer per writer, mixing all cells); under PSO both fields are
// used (one buffer per writer-cell pair).
type key struct {
	writer id.ID
	cell   id.ID
}

// Target names an eligible commit action: the (writer, cell) pair
// whose buffer head would be published. Under TSO Cell is the zero
// value — the pseudo-thread is per-writer, not per-cell.
type Target struct {
	Writer id.ID
	Cell   id.ID
}

// Store holds every cell's committed value plus, under TSO/PSO, the
// pending write buffers.
type Store struct {
	memType   Type
	committed map[id.ID]any
	buffers   map[key][]entry
	writers   map[id.ID]bool // every thread that has buffered a write; entries stay after its buffers drain
	gen       map[id.ID]uint64
}

// New creates an empty Store using the given memory model.
func New(memType Type) *Store {
	return &Store{
		memType:   memType,
		committed: map[id.ID]any{},
		buffers:   map[key][]entry{},
		writers:   map[id.ID]bool{},
		gen:       map[id.ID]uint64{},
	}
}

// Init publishes the initial value of a newly-allocated cell directly
// to the committed store; NewCRef is not itself buffered.
func (s *Store) Init(cell id.ID, initial any) {
	s.committed[cell] = initial
	s.gen[cell] = 0
}

// Read returns the value thread would observe: its own latest
// buffered write to cell if the memory model buffers per-thread
// visibility, otherwise the committed value.
func (s *Store) Read(thread, cell id.ID) any {
	switch s.memType {
	case SequentialConsistency:
		return s.committed[cell]
	case TotalStoreOrder:
		buf := s.buffers[key{writer: thread}]
		for i := len(buf) - 1; i >= 0; i-- {
			if buf[i].cell.Equal(cell) {
				return buf[i].value
			}
		}
		return s.committed[cell]
	case PartialStoreOrder:
		buf := s.buffers[key{writer: thread, cell: cell}]
		if len(buf) > 0 {
			return buf[len(buf)-1].value
		}
		return s.committed[cell]
	default:
		return s.committed[cell]
	}
}

// Write performs an unsynchronised write. Under SC it publishes
// immediately; under TSO/PSO it appends to the relevant buffer and
// becomes visible to other threads only once a commit action drains
// it.
func (s *Store) Write(thread, cell id.ID, val any) {
	switch s.memType {
	case SequentialConsistency:
		s.publish(cell, val)
	case TotalStoreOrder:
		k := key{writer: thread}
		s.buffers[k] = append(s.buffers[k], entry{cell: cell, value: val})
		s.writers[thread] = true
	case PartialStoreOrder:
		k := key{writer: thread, cell: cell}
		s.buffers[k] = append(s.buffers[k], entry{cell: cell, value: val})
		s.writers[thread] = true
	}
}

func (s *Store) publish(cell id.ID, val any) {
	s.committed[cell] = val
	s.gen[cell]++
}

// DrainCell flushes thread's own pending buffered writes to cell,
// publishing them to the committed store in FIFO order. Used by
// synchronised operations (modifyCRef, casCRef, modifyCRefCAS) which
// must observe an up to date value before acting.
func (s *Store) DrainCell(thread, cell id.ID) {
	switch s.memType {
	case TotalStoreOrder:
		k := key{writer: thread}
		buf := s.buffers[k]
		kept := buf[:0]
		for _, e := range buf {
			if e.cell.Equal(cell) {
				s.publish(e.cell, e.value)
			} else {
				kept = append(kept, e)
			}
		}
		s.buffers[k] = kept
	case PartialStoreOrder:
		k := key{writer: thread, cell: cell}
		for _, e := range s.buffers[k] {
			s.publish(e.cell, e.value)
		}
		delete(s.buffers, k)
	}
}

// PendingCommits lists every commit action currently eligible to be
// scheduled as a commit pseudo-thread step: under TSO, one entry per
// writer with a non-empty buffer; under PSO, one per (writer, cell)
// pair with a non-empty buffer; under SC, none.
func (s *Store) PendingCommits() []Target {
	var out []Target
	switch s.memType {
	case TotalStoreOrder:
		for w := range s.writers {
			if len(s.buffers[key{writer: w}]) > 0 {
				out = append(out, Target{Writer: w})
			}
		}
	case PartialStoreOrder:
		for k, buf := range s.buffers {
			if len(buf) > 0 {
				out = append(out, Target{Writer: k.writer, Cell: k.cell})
			}
		}
	}
	return out
}

// Commit performs one commit action for target: it pops and publishes
// the head of the relevant buffer, returning the cell that was
// published. ok is false if the buffer was already empty (the caller
// raced with itself; should not happen if PendingCommits was
// consulted first).
func (s *Store) Commit(target Target) (cell id.ID, ok bool) {
	switch s.memType {
	case TotalStoreOrder:
		k := key{writer: target.Writer}
		buf := s.buffers[k]
		if len(buf) == 0 {
			return id.ID{}, false
		}
		head := buf[0]
		s.buffers[k] = buf[1:]
		s.publish(head.cell, head.value)
		return head.cell, true
	case PartialStoreOrder:
		k := key{writer: target.Writer, cell: target.Cell}
		buf := s.buffers[k]
		if len(buf) == 0 {
			return id.ID{}, false
		}
		head := buf[0]
		s.buffers[k] = buf[1:]
		s.publish(head.cell, head.value)
		return head.cell, true
	default:
		return id.ID{}, false
	}
}

// ReadForCAS returns the value thread currently observes for cell,
// plus an opaque ticket capturing the cell's commit generation.
func (s *Store) ReadForCAS(thread, cell id.ID) (value any, ticket uint64) {
	return s.Read(thread, cell), s.gen[cell]
}

// CAS drains thread's own pending writes to cell (so a self-write
// since the read is visible), then succeeds iff no commit to cell has
// happened since the ticket was issued.
func (s *Store) CAS(thread, cell id.ID, ticket uint64, newVal any) bool {
	s.DrainCell(thread, cell)
	if s.gen[cell] != ticket {
		return false
	}
	s.publish(cell, newVal)
	return true
}

// Modify drains thread's own pending writes to cell, applies f to the
// resulting value, and publishes the result synchronously.
func (s *Store) Modify(thread, cell id.ID, f func(any) any) any {
	s.DrainCell(thread, cell)
	newVal := f(s.committed[cell])
	s.publish(cell, newVal)
	return newVal
}
