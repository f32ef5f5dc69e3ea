package scheduler

import (
	"math/rand"

	"sct/id"
	"sct/schedule"

	"golang.org/x/exp/slices"
)

// Random picks uniformly from the runnable set on every call, using a
// per-scheduler *rand.Rand so that two Random values seeded alike
// reproduce the same sequence of choices.
type Random struct {
	rand *rand.Rand
}

// NewRandom builds a Random scheduler seeded from seed.
func NewRandom(seed int64) *Random {
	return &Random{rand: rand.New(rand.NewSource(seed))}
}

func (r *Random) Choose(prefix schedule.Trace, prior *id.ID, runnable []schedule.Runnable, state any) (id.ID, bool, any) {
	if len(runnable) == 0 {
		return id.ID{}, false, state
	}
	// sort first so that a fixed seed always picks the same thread
	// regardless of the runnable slice's incidental map-iteration order.
	sorted := append([]schedule.Runnable{}, runnable...)
	slices.SortFunc(sorted, func(a, b schedule.Runnable) bool { return a.Thread.Less(b.Thread) })
	return sorted[r.rand.Intn(len(sorted))].Thread, true, state
}
