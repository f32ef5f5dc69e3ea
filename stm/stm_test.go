package stm

import (
	"errors"
	"testing"

	"sct/id"
)

func newStore() (map[id.ID]any, func(id.ID) any) {
	store := map[id.ID]any{}
	read := func(v id.ID) any { return store[v] }
	return store, read
}

func TestReadOwnWriteWithinAttempt(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()

	var v id.ID
	res := Run(src, read, func(tx *Tx) {
		v = tx.NewTVar(1)
		tx.WriteTVar(v, 2)
		got := tx.ReadTVar(v)
		if got != 2 {
			t.Errorf("expected to read own write of 2, got %v", got)
		}
	})
	if res.Retried || res.Thrown != nil {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	if res.Writes[v] != 2 {
		t.Errorf("expected committed write of 2, got %v", res.Writes[v])
	}
}

func TestRetryDiscardsWrites(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()
	v := src.New(id.TVar, "")

	res := Run(src, read, func(tx *Tx) {
		tx.WriteTVar(v, 42)
		tx.Retry()
	})
	if !res.Retried {
		t.Fatalf("expected transaction to retry, got %+v", res)
	}
	if len(res.Writes) != 0 {
		t.Errorf("expected no writes to survive a retry, got %v", res.Writes)
	}
}

func TestOrElseFallsThroughOnRetry(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()
	v := src.New(id.TVar, "")

	res := Run(src, read, func(tx *Tx) {
		tx.OrElse(func(tx *Tx) {
			tx.WriteTVar(v, 1)
			tx.Retry()
		}, func(tx *Tx) {
			tx.WriteTVar(v, 2)
		})
	})
	if res.Retried || res.Thrown != nil {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	if res.Writes[v] != 2 {
		t.Errorf("expected the right branch's write to win, got %v", res.Writes[v])
	}
}

func TestOrElseBothRetryPropagates(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()

	res := Run(src, read, func(tx *Tx) {
		tx.OrElse(func(tx *Tx) { tx.Retry() }, func(tx *Tx) { tx.Retry() })
	})
	if !res.Retried {
		t.Fatalf("expected the whole transaction to retry, got %+v", res)
	}
}

func TestCatchRollsBackBodyWrites(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()
	v := src.New(id.TVar, "")
	boom := errors.New("boom")

	res := Run(src, read, func(tx *Tx) {
		tx.Catch(func(tx *Tx) {
			tx.WriteTVar(v, 99)
			tx.Throw(boom)
		}, func(tx *Tx, err error) {
			tx.WriteTVar(v, 7)
		})
	})
	if res.Retried || res.Thrown != nil {
		t.Fatalf("unexpected outcome: %+v", res)
	}
	if res.Writes[v] != 7 {
		t.Errorf("expected only the handler's write to survive, got %v", res.Writes[v])
	}
}

func TestUncaughtThrowEscapes(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()
	boom := errors.New("boom")

	res := Run(src, read, func(tx *Tx) {
		tx.Throw(boom)
	})
	if !errors.Is(res.Thrown, boom) {
		t.Errorf("expected the throw to escape uncaught, got %v", res.Thrown)
	}
}

func TestTvarsOfCoversBothOrElseBranches(t *testing.T) {
	src := id.NewSource()
	_, read := newStore()
	a := src.New(id.TVar, "")
	b := src.New(id.TVar, "")

	res := Run(src, read, func(tx *Tx) {
		tx.OrElse(func(tx *Tx) {
			tx.ReadTVar(a)
			tx.Retry()
		}, func(tx *Tx) {
			tx.WriteTVar(b, 1)
		})
	})

	vars := TvarsOf(res.Trace)
	if len(vars) != 2 {
		t.Fatalf("expected both branches' tvars to be reported, got %v", vars)
	}
}
