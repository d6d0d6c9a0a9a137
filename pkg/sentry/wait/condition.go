// Package wait defines the disjunction-of-atoms wait condition a handler
// attaches to a Blocked result (spec.md §3 "Wait conditions", §4.4), and a
// minimal in-memory scheduler adapter good enough to drive this core's own
// tests. The production event scheduler that actually advances virtual
// time and owns cross-host ordering is an external collaborator
// (spec.md §1); this package only implements the adapter's input contract.
package wait

import (
	"time"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

// AtomKind discriminates the variants of a single wait atom.
type AtomKind int

const (
	AtomFileReadiness AtomKind = iota
	AtomFutexWord
	AtomTimer
	AtomChildExit
	AtomSignal
)

// Atom is one disjunct of a Condition (spec.md §3).
type Atom struct {
	Kind AtomKind

	// AtomFileReadiness
	Handle descriptor.Handle
	Mask   descriptor.Readiness

	// AtomFutexWord
	FutexAddr     uintptr
	FutexExpected uint32

	// AtomTimer
	Deadline time.Time

	// AtomChildExit: Pid == 0 means "any child in the process's wait
	// group," matching wait4(-1, ...).
	Pid int32

	// AtomSignal
	SignalSet uint64
}

// FileReady builds a readiness atom.
func FileReady(h descriptor.Handle, mask descriptor.Readiness) Atom {
	return Atom{Kind: AtomFileReadiness, Handle: h, Mask: mask}
}

// FutexWord builds a futex-word atom.
func FutexWord(addr uintptr, expected uint32) Atom {
	return Atom{Kind: AtomFutexWord, FutexAddr: addr, FutexExpected: expected}
}

// Timer builds a timer-deadline atom.
func Timer(deadline time.Time) Atom {
	return Atom{Kind: AtomTimer, Deadline: deadline}
}

// ChildExit builds a child-exit atom; pid == 0 means any child.
func ChildExit(pid int32) Atom {
	return Atom{Kind: AtomChildExit, Pid: pid}
}

// Signal builds a pending-signal atom.
func Signal(set uint64) Atom {
	return Atom{Kind: AtomSignal, SignalSet: set}
}

// Condition is a disjunction of Atoms plus an optional absolute deadline
// that is ANDed with the disjunction (spec.md §3: "A timeout is a separate
// deadline ANDed with the disjunction").
type Condition struct {
	Atoms    []Atom
	Deadline *time.Time

	// RestartOnSignal mirrors SA_RESTART: if true and the thread is woken
	// by a non-masked signal rather than a satisfied atom or the deadline,
	// the syscall should be transparently restarted rather than return
	// EINTR (spec.md §4.4).
	RestartOnSignal bool
}

// Any builds a Condition over the given atoms with no deadline.
func Any(atoms ...Atom) Condition {
	return Condition{Atoms: atoms}
}

// WithDeadline attaches an absolute deadline to c.
func (c Condition) WithDeadline(d time.Time) Condition {
	c.Deadline = &d
	return c
}

// WithRestart marks c as SA_RESTART-eligible.
func (c Condition) WithRestart() Condition {
	c.RestartOnSignal = true
	return c
}
