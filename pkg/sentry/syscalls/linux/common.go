// Package linux wires the handler registry (spec.md §4.1, §9) the way
// httese-gvisor's pkg/sentry/syscalls/linux/vfs2.Override builds
// linux.AMD64.Table, generalized from "one syscall table variant
// overriding another" to "every family's handlers registered in one
// place" (spec.md §4.3's per-family handler contracts).
package linux

import (
	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/futex"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
)

// descriptors fetches the calling process's descriptor table, panicking
// if the capability wasn't wired correctly — the same
// invariant-violation-is-fatal policy spec.md §7 applies to a
// shim-only syscall reaching the dispatcher also applies here: a
// Process without a *descriptor.Table is a construction bug, not a
// guest-facing error.
func descriptors(ctx *syscall.Context) *descriptor.Table {
	raw := ctx.Process.Descriptors()
	tab, ok := raw.(*descriptor.Table)
	if !ok {
		panic("process capability did not return a *descriptor.Table")
	}
	return tab
}

// getFile resolves fd to its FileObject or returns EBADF, the lookup
// every handler that takes an fd argument starts with.
func getFile(ctx *syscall.Context, fd int32) (descriptor.FileObject, error) {
	d, err := descriptors(ctx).Get(descriptor.Handle(fd))
	if err != nil {
		return nil, err
	}
	return d.File, nil
}

// copyInBytes reads n bytes from the guest address addr via the
// thread's memory capability.
func copyInBytes(ctx *syscall.Context, addr kernel.Addr, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := ctx.Thread.Memory().CopyIn(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// futexTable fetches the calling process's futex table, panicking if the
// capability wasn't wired correctly (same policy as descriptors).
func futexTable(ctx *syscall.Context) *futex.Table {
	raw := ctx.Process.FutexTable()
	tab, ok := raw.(*futex.Table)
	if !ok {
		panic("process capability did not return a *futex.Table")
	}
	return tab
}

// copyOutBytes writes p to the guest address addr via the thread's
// memory capability, returning the number of bytes actually copied.
func copyOutBytes(ctx *syscall.Context, addr kernel.Addr, p []byte) (int, error) {
	return ctx.Thread.Memory().CopyOut(addr, p)
}
