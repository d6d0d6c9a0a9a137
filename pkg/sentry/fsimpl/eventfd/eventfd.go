// Package eventfd implements the EventFd FileObject variant (spec.md
// §3): a 64-bit counter with either semaphore or accumulator read
// semantics, matching eventfd(2) and driving spec.md §8 scenario 3.
package eventfd

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

// EventFd is the FileObject behind an eventfd(2) descriptor.
type EventFd struct {
	mu        sync.Mutex
	value     uint64
	semaphore bool // EFD_SEMAPHORE
	closed    bool
}

// New builds an EventFd with the given initial counter value and flags
// (EFD_SEMAPHORE, EFD_NONBLOCK — nonblocking behavior is enforced by the
// handler layer via the descriptor's Flags, not here).
func New(initval uint64, semaphore bool) *EventFd {
	return &EventFd{value: initval, semaphore: semaphore}
}

func (e *EventFd) Kind() string { return "eventfd" }

// Read implements the 8-byte eventfd(2) read contract: returns EAGAIN if
// the counter is currently zero, otherwise writes either 1 (semaphore
// mode, decrementing by 1) or the full counter value (accumulator mode,
// resetting to 0) into p.
func (e *EventFd) Read(p []byte) (int, error) {
	if len(p) < 8 {
		return 0, unix.EINVAL
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, unix.EBADF
	}
	if e.value == 0 {
		return 0, unix.EAGAIN
	}
	var out uint64
	if e.semaphore {
		out = 1
		e.value--
	} else {
		out = e.value
		e.value = 0
	}
	binary.LittleEndian.PutUint64(p, out)
	return 8, nil
}

// Write implements the 8-byte eventfd(2) write contract: adds the
// little-endian u64 in p to the counter, saturating at (2^64 - 2) per
// the kernel's overflow-avoidance convention (writing a value that would
// overflow blocks in Linux; this engine instead returns EAGAIN, matching
// a nonblocking fd since blocking is modeled at the handler layer).
func (e *EventFd) Write(p []byte) (int, error) {
	if len(p) < 8 {
		return 0, unix.EINVAL
	}
	add := binary.LittleEndian.Uint64(p)
	if add == ^uint64(0) {
		return 0, unix.EINVAL
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, unix.EBADF
	}
	const maxCounter = ^uint64(0) - 1
	if e.value > maxCounter-add {
		return 0, unix.EAGAIN
	}
	e.value += add
	return 8, nil
}

func (e *EventFd) Readiness(mask descriptor.Readiness) descriptor.Readiness {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ready descriptor.Readiness
	if mask&descriptor.ReadinessIn != 0 && e.value > 0 {
		ready |= descriptor.ReadinessIn
	}
	if mask&descriptor.ReadinessOut != 0 && e.value < ^uint64(0)-1 {
		ready |= descriptor.ReadinessOut
	}
	return ready
}

func (e *EventFd) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *EventFd) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, unix.ENOTTY }

func (e *EventFd) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }
