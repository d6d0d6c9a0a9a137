// Memory family handlers (spec.md §4.3 "Memory"): thin pass-throughs to
// the per-process MemoryManager capability (spec.md §1: "allocations are
// serviced by the simulator's memory manager"), which is an external
// collaborator this core only declares the interface for.
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
)

func memoryManager(ctx *syscall.Context) (kernel.MemoryManager, error) {
	mm := ctx.Process.MemoryManager()
	if mm == nil {
		return nil, unix.ENOMEM
	}
	return mm, nil
}

// Brk implements brk(2): newBrk == 0 queries the current break.
func Brk(ctx *syscall.Context, newBrk kernel.Addr) (kernel.Reg, error) {
	mm, err := memoryManager(ctx)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	addr, err := mm.Brk(newBrk)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromAddr(addr), nil
}

// Mmap implements mmap(2).
func Mmap(ctx *syscall.Context, hint kernel.Addr, length uint64, prot, flags int32, fd int32, offset int64) (kernel.Reg, error) {
	mm, err := memoryManager(ctx)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	addr, err := mm.MMap(hint, length, prot, flags, fd, offset)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromAddr(addr), nil
}

// Mprotect implements mprotect(2).
func Mprotect(ctx *syscall.Context, addr kernel.Addr, length uint64, prot int32) (kernel.Reg, error) {
	mm, err := memoryManager(ctx)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	if err := mm.MProtect(addr, length, prot); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// Mremap implements mremap(2).
func Mremap(ctx *syscall.Context, oldAddr kernel.Addr, oldSize, newSize uint64, flags int32) (kernel.Reg, error) {
	mm, err := memoryManager(ctx)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	addr, err := mm.MRemap(oldAddr, oldSize, newSize, flags)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromAddr(addr), nil
}

// Munmap implements munmap(2).
func Munmap(ctx *syscall.Context, addr kernel.Addr, length uint64) (kernel.Reg, error) {
	mm, err := memoryManager(ctx)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	if err := mm.MUnmap(addr, length); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}
