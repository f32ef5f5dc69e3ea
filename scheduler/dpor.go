package scheduler

import "sct/dpor"

// DPORScheduler is the DPOR-driven scheduler described in spec.md
// §4.5: it consumes a forced prefix decided by the explorer, then
// picks the next registered backtracking point. Its implementation
// lives in sct/dpor next to the prefix tree it drives — its state is
// the tree cursor itself, so co-locating it there avoids threading
// unexported tree internals across a package boundary purely to
// satisfy this package's naming. Re-exported here for discoverability,
// matching spec.md's package map which lists all schedulers together.
type DPORScheduler = dpor.Scheduler

// NewDPORScheduler builds a DPORScheduler forcing the given prefix
// against cursor's node in an explorer-owned tree.
var NewDPORScheduler = dpor.NewScheduler
