// Package id implements the four identifier families used throughout
// the engine: threads, mutable cells, blocking variables (MVar-like)
// and transactional variables (TVar-like).
//
// Every identifier is a (display name, integer) pair. Ordering and
// equality are defined purely by the integer; the name exists only to
// make traces readable. Identifiers are handed out by a Source, which
// keeps separate counters and name tables per family so that colliding
// user-supplied names are disambiguated deterministically.
package id

import (
	"fmt"

	"golang.org/x/exp/maps"
)

// Family distinguishes the four identifier namespaces. Integers are
// only unique and ordered within a single family.
type Family int

const (
	Thread Family = iota
	CRef
	MVar
	TVar
)

func (f Family) String() string {
	switch f {
	case Thread:
		return "Thread"
	case CRef:
		return "CRef"
	case MVar:
		return "MVar"
	case TVar:
		return "TVar"
	default:
		return "Unknown"
	}
}

// ID is a member of one of the four families: a display name plus a
// monotonically increasing integer within that family.
type ID struct {
	family Family
	name   string
	num    int64
}

// InitialThreadID is the identifier every Source allocates first when
// asked for the main thread: integer 0, name "main".
var InitialThreadID = ID{family: Thread, name: "main", num: 0}

func (i ID) Family() Family { return i.family }
func (i ID) Name() string   { return i.name }
func (i ID) Num() int64     { return i.num }

// Less orders identifiers of the same family by their integer only.
// Comparing identifiers from different families panics: it is a
// caller bug, not a run-time outcome, to compare across families.
func (i ID) Less(other ID) bool {
	if i.family != other.family {
		panic(fmt.Sprintf("id: compared %v identifier with %v identifier", i.family, other.family))
	}
	return i.num < other.num
}

func (i ID) Equal(other ID) bool {
	return i.family == other.family && i.num == other.num
}

func (i ID) String() string {
	if i.name != "" {
		return i.name
	}
	return fmt.Sprintf("%s-%d", i.family, i.num)
}

// IsCommitPseudoThread reports whether a Thread-family ID identifies a
// commit pseudo-thread (negative integers, see §4.2 of the spec).
func (i ID) IsCommitPseudoThread() bool {
	return i.family == Thread && i.num < 0
}

// Source allocates identifiers for all four families. The zero value
// is not usable; construct one with NewSource. A Source is scoped to
// exactly one execution: the runtime creates a fresh Source per run so
// that identifier allocation is a pure function of the sequence of
// allocation calls made during that run.
type Source struct {
	next      map[Family]int64
	nextComm  int64 // commit pseudo-thread ids count down from -1
	nameSeen  map[Family]map[string]int
}

// NewSource creates an identifier Source with the initial thread
// (integer 0, name "main") already allocated, matching the invariant
// that the initial thread is always allocated first.
func NewSource() *Source {
	s := &Source{
		next:     map[Family]int64{Thread: 1, CRef: 0, MVar: 0, TVar: 0},
		nextComm: -1,
		nameSeen: map[Family]map[string]int{
			Thread: {"main": 1},
			CRef:   {},
			MVar:   {},
			TVar:   {},
		},
	}
	return s
}

// New allocates a fresh identifier in the given family. If name is
// empty the identifier has no display name (it renders using its
// family and integer). If name collides with a previously allocated
// name in the same family, a numeric suffix is appended counting from
// 1: the first occurrence of a name keeps the bare name, later
// occurrences become "name-1", "name-2", and so on.
func (s *Source) New(family Family, name string) ID {
	num := s.next[family]
	s.next[family] = num + 1

	resolved := name
	if name != "" {
		seen := s.nameSeen[family]
		count := seen[name]
		seen[name] = count + 1
		if count > 0 {
			resolved = fmt.Sprintf("%s-%d", name, count)
		}
	}
	return ID{family: family, name: resolved, num: num}
}

// NewCommitPseudoThread allocates a Thread-family identifier for a
// commit pseudo-thread. These use negative integers so that they
// compare below every real thread (whose integers start at 0).
func (s *Source) NewCommitPseudoThread(name string) ID {
	num := s.nextComm
	s.nextComm--
	return ID{family: Thread, name: name, num: num}
}

// Snapshot returns the set of names allocated so far per family. The
// names within each family are in no particular order.
func (s *Source) Snapshot() map[Family][]string {
	out := make(map[Family][]string, len(s.nameSeen))
	for f, seen := range s.nameSeen {
		out[f] = maps.Keys(seen)
	}
	return out
}
