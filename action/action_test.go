package action

import (
	"testing"

	"sct/id"
)

func allNonKilledKinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames))
	for k := range kindNames {
		if k != Killed {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func TestRewindRoundTripsExceptKilled(t *testing.T) {
	src := id.NewSource()
	cell := src.New(id.CRef, "")
	mv := src.New(id.MVar, "")
	thread := src.New(id.Thread, "")

	for _, k := range allNonKilledKinds() {
		a := ThreadAction{Kind: k, Cell: cell, MVar: mv, Thread: thread}
		lk, ok := Rewind(a)
		if !ok {
			t.Errorf("expected Rewind to be defined for %v", k)
			continue
		}
		if SimplifyAction(a) != SimplifyLookahead(lk) {
			t.Errorf("kind %v: SimplifyAction(a) = %v, SimplifyLookahead(rewind(a)) = %v",
				k, SimplifyAction(a), SimplifyLookahead(lk))
		}
	}
}

func TestKilledHasNoLookahead(t *testing.T) {
	_, ok := Rewind(ThreadAction{Kind: Killed})
	if ok {
		t.Errorf("expected Killed to have no lookahead form")
	}
}

func TestSimplifyDistinguishesReadWrite(t *testing.T) {
	src := id.NewSource()
	cell := src.New(id.CRef, "")

	read := SimplifyAction(ThreadAction{Kind: ReadCRef, Cell: cell})
	write := SimplifyAction(ThreadAction{Kind: WriteCRef, Cell: cell})
	if read.Class == write.Class {
		t.Errorf("expected read and write to have distinct classes, both got %v", read.Class)
	}
}
