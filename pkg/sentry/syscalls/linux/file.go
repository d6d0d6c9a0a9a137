// File/FS family handlers (spec.md §4.3 "File/FS"). Paths are not
// resolved against a real filesystem — spec.md §4.3 allows this family
// to be "modelled as stand-ins or delegated to the host via Native when
// the path is outside the simulated filesystem" — so open/openat model
// only the simulated in-memory case; anything this engine doesn't
// recognize as simulated is expected to have already been routed
// Native by the registry rather than reach these handlers.
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/pipe"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/regular"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// Close implements close(2).
func Close(ctx *syscall.Context, fd int32) (kernel.Reg, error) {
	if err := descriptors(ctx).Close(descriptor.Handle(fd)); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// Read implements read(2): EAGAIN on a nonblocking empty source stays
// Failed(EAGAIN) when the descriptor carries O_NONBLOCK (spec.md §4.3,
// §8 scenario 2's pipe2(O_NONBLOCK) case), otherwise it becomes
// Blocked(readiness) so the scheduler resumes this call once the
// FileObject is readable.
func Read(ctx *syscall.Context, fd int32, bufAddr kernel.Addr, count uint64) (kernel.Reg, error) {
	d, err := descriptors(ctx).Get(descriptor.Handle(fd))
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	buf := make([]byte, count)
	n, err := d.File.Read(buf)
	if err != nil {
		if errno, ok := err.(unix.Errno); ok && errno == unix.EAGAIN {
			if d.Flags.NonBlocking {
				return 0, syscall.Errno(unix.EAGAIN)
			}
			return 0, syscall.ErrBlocked(readCondition(fd, d.File))
		}
		return 0, syscall.Errno(err.(unix.Errno))
	}
	if _, err := copyOutBytes(ctx, bufAddr, buf[:n]); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return kernel.FromInt(n), nil
}

// Write implements write(2), the Blocked-on-writability counterpart of
// Read, with the same O_NONBLOCK-stays-EAGAIN carve-out.
func Write(ctx *syscall.Context, fd int32, bufAddr kernel.Addr, count uint64) (kernel.Reg, error) {
	d, err := descriptors(ctx).Get(descriptor.Handle(fd))
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	buf, err := copyInBytes(ctx, bufAddr, int(count))
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	n, err := d.File.Write(buf)
	if err != nil {
		if errno, ok := err.(unix.Errno); ok && errno == unix.EAGAIN {
			if d.Flags.NonBlocking {
				return 0, syscall.Errno(unix.EAGAIN)
			}
			return 0, syscall.ErrBlocked(writeCondition(fd, d.File))
		}
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromInt(n), nil
}

// Pread64 implements pread64(2): a Read without mutating the file
// offset. The regular-file stand-in is the only FileObject variant with
// a meaningful offset; other kinds simply ignore the position argument,
// matching Linux's ESPIPE-free behavior for pipes under pread.
func Pread64(ctx *syscall.Context, fd int32, bufAddr kernel.Addr, count uint64, offset int64) (kernel.Reg, error) {
	d, err := descriptors(ctx).Get(descriptor.Handle(fd))
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	rf, ok := d.File.(*regular.File)
	if !ok {
		return Read(ctx, fd, bufAddr, count)
	}
	dup := rf.Dup()
	if _, err := dup.Seek(offset, unix.SEEK_SET); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	buf := make([]byte, count)
	n, err := dup.Read(buf)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	if _, err := copyOutBytes(ctx, bufAddr, buf[:n]); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return kernel.FromInt(n), nil
}

// Lseek implements lseek(2) for the regular-file stand-in; any other
// FileObject kind is ESPIPE, matching Linux for pipes/sockets/fifos.
func Lseek(ctx *syscall.Context, fd int32, offset int64, whence int32) (kernel.Reg, error) {
	f, err := getFile(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	rf, ok := f.(*regular.File)
	if !ok {
		return 0, syscall.Errno(unix.ESPIPE)
	}
	newOff, err := rf.Seek(offset, whence)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromInt64(newOff), nil
}

// Ftruncate implements ftruncate(2) for the regular-file stand-in.
func Ftruncate(ctx *syscall.Context, fd int32, length int64) (kernel.Reg, error) {
	f, err := getFile(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	rf, ok := f.(*regular.File)
	if !ok {
		return 0, syscall.Errno(unix.EINVAL)
	}
	if err := rf.Truncate(length); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// Dup implements dup(2).
func Dup(ctx *syscall.Context, fd int32) (kernel.Reg, error) {
	h, err := descriptors(ctx).Dup(descriptor.Handle(fd), 0)
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromInt(int(h)), nil
}

// Dup2 implements dup2(2).
func Dup2(ctx *syscall.Context, oldFd, newFd int32) (kernel.Reg, error) {
	if err := descriptors(ctx).DupTo(descriptor.Handle(oldFd), descriptor.Handle(newFd)); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromInt(int(newFd)), nil
}

// Dup3 implements dup3(2); this engine ignores the flags argument
// (O_CLOEXEC), so the new descriptor follows the descriptor table's
// DupTo contract: CloseOnExec is reset and NonBlocking carries over.
func Dup3(ctx *syscall.Context, oldFd, newFd int32, flags int32) (kernel.Reg, error) {
	return Dup2(ctx, oldFd, newFd)
}

// Open implements open(2): the simulated filesystem has no path
// namespace of its own (spec.md §4.3 allows this family to be "modelled
// as stand-ins"), so every open returns a fresh in-memory regular file
// rather than resolving pathAddr against shared state.
func Open(ctx *syscall.Context, pathAddr kernel.Addr, flags int32, mode uint32) (kernel.Reg, error) {
	f := regular.New(flags)
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: f, Flags: descriptor.Flags{
		CloseOnExec: flags&unix.O_CLOEXEC != 0,
		NonBlocking: flags&unix.O_NONBLOCK != 0,
	}})
	return kernel.FromInt(int(h)), nil
}

// Openat implements openat(2); dirFd is ignored since paths are not
// resolved against a real directory tree here.
func Openat(ctx *syscall.Context, dirFd int32, pathAddr kernel.Addr, flags int32, mode uint32) (kernel.Reg, error) {
	return Open(ctx, pathAddr, flags, mode)
}

// Pipe implements pipe(2): allocates the connected read/write descriptor
// pair and writes them to the two-element fd array at fdsAddr.
func Pipe(ctx *syscall.Context, fdsAddr kernel.Addr) (kernel.Reg, error) {
	return Pipe2(ctx, fdsAddr, 0)
}

// Pipe2 implements pipe2(2), honoring O_NONBLOCK/O_CLOEXEC on both ends.
func Pipe2(ctx *syscall.Context, fdsAddr kernel.Addr, flags int32) (kernel.Reg, error) {
	r, w := pipe.New()
	pipeFlags := descriptor.Flags{
		CloseOnExec: flags&unix.O_CLOEXEC != 0,
		NonBlocking: flags&unix.O_NONBLOCK != 0,
	}
	rh := descriptors(ctx).Allocate(&descriptor.Descriptor{File: r, Flags: pipeFlags})
	wh := descriptors(ctx).Allocate(&descriptor.Descriptor{File: w, Flags: pipeFlags})
	buf := make([]byte, 8)
	putU32(buf[0:4], uint32(rh))
	putU32(buf[4:8], uint32(wh))
	if _, err := copyOutBytes(ctx, fdsAddr, buf); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return 0, nil
}

// Fcntl implements the fcntl(2) subset this engine models directly:
// F_DUPFD[_CLOEXEC], F_GETFD/F_SETFD (close-on-exec), F_GETFL/F_SETFL
// (O_NONBLOCK, read/written on the descriptor's table-owned Flags rather
// than the FileObject). Anything else is delegated to the FileObject's
// own Fcntl, matching the polymorphic capability set spec.md §3
// describes.
func Fcntl(ctx *syscall.Context, fd int32, cmd int32, arg uint64) (kernel.Reg, error) {
	tab := descriptors(ctx)
	d, err := tab.Get(descriptor.Handle(fd))
	if err != nil {
		return 0, syscall.Errno(unix.EBADF)
	}
	switch cmd {
	case unix.F_DUPFD:
		h, derr := tab.Dup(descriptor.Handle(fd), descriptor.Handle(arg))
		if derr != nil {
			return 0, syscall.Errno(derr.(unix.Errno))
		}
		return kernel.FromInt(int(h)), nil
	case unix.F_DUPFD_CLOEXEC:
		h, derr := tab.Dup(descriptor.Handle(fd), descriptor.Handle(arg))
		if derr != nil {
			return 0, syscall.Errno(derr.(unix.Errno))
		}
		if nd, gerr := tab.Get(h); gerr == nil {
			nd.Flags.CloseOnExec = true
		}
		return kernel.FromInt(int(h)), nil
	case unix.F_GETFD:
		if d.Flags.CloseOnExec {
			return kernel.FromInt(unix.FD_CLOEXEC), nil
		}
		return 0, nil
	case unix.F_SETFD:
		d.Flags.CloseOnExec = arg&unix.FD_CLOEXEC != 0
		return 0, nil
	case unix.F_GETFL:
		if d.Flags.NonBlocking {
			return kernel.FromInt(unix.O_NONBLOCK), nil
		}
		return 0, nil
	case unix.F_SETFL:
		d.Flags.NonBlocking = arg&unix.O_NONBLOCK != 0
		return 0, nil
	default:
		v, ferr := d.File.Fcntl(cmd, uintptr(arg))
		if ferr != nil {
			return 0, syscall.Errno(ferr.(unix.Errno))
		}
		return kernel.FromInt64(int64(v)), nil
	}
}

func readCondition(fd int32, f descriptor.FileObject) wait.Condition {
	return wait.Any(wait.FileReady(descriptor.Handle(fd), descriptor.ReadinessIn))
}

func writeCondition(fd int32, f descriptor.FileObject) wait.Condition {
	return wait.Any(wait.FileReady(descriptor.Handle(fd), descriptor.ReadinessOut))
}
