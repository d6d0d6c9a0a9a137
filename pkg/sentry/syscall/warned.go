package syscall

import "sync"

// warnedSet tracks which unsupported syscall numbers have already logged
// at Warn, so that later occurrences demote to Debug (spec.md §4.1 step 5,
// §8 "first-warn-then-demote policy"). It is process-wide shared state
// (spec.md §5: "the core ... must lock any cross-process shared state it
// touches (e.g., the warned-syscalls set)"), so access is guarded by a
// single mutex rather than gVisor/Shadow's per-number atomic insert — a
// plain mutex is sufficient because the critical section is a single map
// lookup-or-insert, and spec.md only requires a single winner per number,
// not any particular cross-process ordering of the Warn itself.
type warnedSet struct {
	mu   sync.Mutex
	seen map[int64]struct{}
}

func newWarnedSet() *warnedSet {
	return &warnedSet{seen: make(map[int64]struct{})}
}

// observe records num as seen and reports whether this call is the first
// observation (true) or a repeat (false). Concurrent first observations
// of the same number race to acquire the lock; exactly one sees
// firstTime == true (spec.md §8: "concurrent first-occurrences must
// atomically elect a single winner that logs at Warn").
func (w *warnedSet) observe(num int64) (firstTime bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[num]; ok {
		return false
	}
	w.seen[num] = struct{}{}
	return true
}
