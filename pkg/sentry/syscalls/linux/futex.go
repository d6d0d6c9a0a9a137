// Futex family handlers (spec.md §4.3 "Futex"): wired to package futex
// for the guest-word comparison and wake-queue bookkeeping, and to the
// general wait.Condition model for the actual Blocked/resume handshake
// the scheduler drives (spec.md §1 external collaborator).
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/futex"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

const (
	futexWait       = 0
	futexWake       = 1
	futexRequeue    = 3
	futexWaitBitset = 9
	futexWakeBitset = 10
)

// Futex implements futex(2) across the WAIT/WAKE/REQUEUE/WAIT_BITSET/
// WAKE_BITSET operations; any other op this engine doesn't model
// returns ENOSYS rather than silently no-opping, so an unhandled op is
// visible in a trace instead of masquerading as success.
func Futex(ctx *syscall.Context, uaddrReg kernel.Addr, op int32, val uint32, val2OrTimeoutAddr kernel.Addr, uaddr2 kernel.Addr, val3 uint32) (kernel.Reg, error) {
	addr := uintptr(uaddrReg)
	tab := futexTable(ctx)

	switch op & 0x7f {
	case futexWait:
		return futexDoWait(ctx, tab, addr, val, ^uint32(0))
	case futexWaitBitset:
		return futexDoWait(ctx, tab, addr, val, val3)
	case futexWake:
		n := tab.Wake(addr, int(val), ^uint32(0))
		return kernel.FromInt(n), nil
	case futexWakeBitset:
		n := tab.Wake(addr, int(val), val3)
		return kernel.FromInt(n), nil
	case futexRequeue:
		n := tab.Requeue(addr, uintptr(uaddr2), int(val), int(uint32(val2OrTimeoutAddr)))
		return kernel.FromInt(n), nil
	default:
		return 0, syscall.Errno(unix.ENOSYS)
	}
}

func futexDoWait(ctx *syscall.Context, tab *futex.Table, addr uintptr, expected, bitset uint32) (kernel.Reg, error) {
	if ctx.Thread.WasBlocked() {
		return 0, nil
	}
	if _, err := tab.Wait(addr, expected, bitset, ctx.Thread.Memory(), ctx.Thread.ID()); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, syscall.ErrBlocked(wait.Any(wait.FutexWord(addr, expected)))
}
