// Eventfd handlers (spec.md §3 "EventFd", §8 scenario 3), wired to
// package fsimpl/eventfd for the counter/semaphore state machine.
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/eventfd"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
)

// Eventfd implements eventfd(2).
func Eventfd(ctx *syscall.Context, initval uint32, flags int32) (kernel.Reg, error) {
	return Eventfd2(ctx, initval, flags)
}

// Eventfd2 implements eventfd2(2): EFD_SEMAPHORE selects decrement-by-one
// read semantics over the default drain-to-zero accumulator (spec.md §3
// "64-bit counter with semaphore or accumulator semantics").
func Eventfd2(ctx *syscall.Context, initval uint32, flags int32) (kernel.Reg, error) {
	e := eventfd.New(uint64(initval), flags&unix.EFD_SEMAPHORE != 0)
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: e, Flags: descriptor.Flags{
		CloseOnExec: flags&unix.EFD_CLOEXEC != 0,
		NonBlocking: flags&unix.EFD_NONBLOCK != 0,
	}})
	return kernel.FromInt(int(h)), nil
}
