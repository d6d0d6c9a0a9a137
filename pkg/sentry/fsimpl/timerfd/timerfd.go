// Package timerfd implements the TimerFd FileObject variant (spec.md
// §3, §4.3): armed/disarmed state, next expiry against the simulator's
// virtual clock, a repeat interval, and an accumulated expiration
// counter that a read drains and zeroes — the same drain-and-zero
// contract as eventfd's accumulator mode, but driven by virtual time
// instead of writes.
package timerfd

import (
	"encoding/binary"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
)

// TimerFd is the FileObject behind a timerfd_create(2) descriptor.
type TimerFd struct {
	mu sync.Mutex

	clock kernel.Clock

	armed    bool
	expiry   time.Time
	interval time.Duration

	expirations uint64
	closed      bool
}

// New creates a disarmed TimerFd reading virtual time from clock.
func New(clock kernel.Clock) *TimerFd {
	return &TimerFd{clock: clock}
}

func (t *TimerFd) Kind() string { return "timerfd" }

// Settime arms (or disarms, if value is zero) the timer the way
// timerfd_settime(2) does: value is the absolute first expiry on the
// virtual clock (the handler resolves relative values before calling),
// interval is the repeat period (zero means one-shot).
func (t *TimerFd) Settime(value time.Time, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value.IsZero() {
		t.armed = false
		return
	}
	t.armed = true
	t.expiry = value
	t.interval = interval
}

// Gettime reports the current arm state: whether armed, the remaining
// time until the next expiry (clamped to zero if already past), and the
// configured interval.
func (t *TimerFd) Gettime() (armed bool, remaining, interval time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return false, 0, 0
	}
	now := t.clock.Now()
	remaining = t.expiry.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, t.interval
}

// tick advances expirations past the current virtual time, rearming
// for the next interval if periodic. Callers must hold t.mu.
func (t *TimerFd) tick() {
	if !t.armed {
		return
	}
	now := t.clock.Now()
	if now.Before(t.expiry) {
		return
	}
	t.expirations++
	if t.interval <= 0 {
		t.armed = false
		return
	}
	// Catch up on every period that has already elapsed, so a late read
	// counts each missed expiration and the next expiry lands after now.
	t.expiry = t.expiry.Add(t.interval)
	for !t.expiry.After(now) {
		t.expirations++
		t.expiry = t.expiry.Add(t.interval)
	}
}

func (t *TimerFd) Read(p []byte) (int, error) {
	if len(p) < 8 {
		return 0, unix.EINVAL
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, unix.EBADF
	}
	t.tick()
	if t.expirations == 0 {
		return 0, unix.EAGAIN
	}
	binary.LittleEndian.PutUint64(p, t.expirations)
	t.expirations = 0
	return 8, nil
}

func (t *TimerFd) Write([]byte) (int, error) { return 0, unix.EINVAL }

func (t *TimerFd) Readiness(mask descriptor.Readiness) descriptor.Readiness {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tick()
	if mask&descriptor.ReadinessIn != 0 && t.expirations > 0 {
		return descriptor.ReadinessIn
	}
	return 0
}

func (t *TimerFd) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *TimerFd) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, unix.ENOTTY }

func (t *TimerFd) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }
