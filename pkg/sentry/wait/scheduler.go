package wait

import "sync"

// WakeReason is why a blocked thread was resumed (spec.md §4.4: "the
// earliest of (any atom becomes satisfied, deadline fires, a non-masked
// signal is delivered)").
type WakeReason int

const (
	WokeBySatisfiedAtom WakeReason = iota
	WokeByDeadline
	WokeBySignal
	WokeByProcessExit
)

// Waiter is a thread suspended on a Condition, identified by tid. Resume
// is invoked by the Scheduler exactly once, with the reason it woke.
type Waiter struct {
	Tid    int32
	Cond   Condition
	Resume func(WakeReason)
}

// Scheduler is a minimal, synchronous stand-in for the production
// per-host event scheduler (an external collaborator per spec.md §1). It
// is deliberately not the real scheduler: no virtual-time advancement, no
// cross-host ordering — just enough bookkeeping to let this package's own
// tests exercise the Blocked -> resume path end to end, and to give the
// real scheduler a concrete Go type to satisfy when wiring this engine in.
type Scheduler struct {
	mu      sync.Mutex
	waiters map[int32]*Waiter
}

// NewScheduler returns an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{waiters: make(map[int32]*Waiter)}
}

// Block registers w as suspended. Only one Condition may be outstanding
// per tid at a time; Block replaces any prior registration for the same
// tid (a thread can only be blocked on one syscall at once).
func (s *Scheduler) Block(w *Waiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters[w.Tid] = w
}

// Wake resumes the waiter for tid, if any, with the given reason. It is a
// no-op if tid is not currently blocked (e.g. it raced and was already
// woken by a different atom).
func (s *Scheduler) Wake(tid int32, reason WakeReason) {
	s.mu.Lock()
	w, ok := s.waiters[tid]
	if ok {
		delete(s.waiters, tid)
	}
	s.mu.Unlock()
	if ok {
		w.Resume(reason)
	}
}

// Discard removes tid's registration without invoking Resume, used when a
// process exits out from under a blocked thread (spec.md §5 "Cancellation
// and timeouts": "by process exit (unblock and discard)").
func (s *Scheduler) Discard(tid int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.waiters, tid)
}

// Blocked reports whether tid currently has an outstanding registration.
func (s *Scheduler) Blocked(tid int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.waiters[tid]
	return ok
}
