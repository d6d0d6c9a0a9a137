// Epoll family handlers (spec.md §4.3 "Epoll"), wired to the ready-list
// model in package fsimpl/epoll rather than the host's real epoll(7).
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/epoll"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// sizeofEpollEvent is sizeof(struct epoll_event): this struct is
// __attribute__((packed)) on every Linux arch, so events(4)+data(8)
// leaves no padding.
const sizeofEpollEvent = 12

func encodeEpollEvent(e epoll.Event) []byte {
	buf := make([]byte, sizeofEpollEvent)
	putU32(buf[0:4], uint32(e.Ready))
	putU64(buf[4:12], e.UserData)
	return buf
}

func decodeEpollEvent(buf []byte) (mask descriptor.Readiness, userData uint64) {
	return descriptor.Readiness(getU32(buf[0:4])), getU64(buf[4:12])
}

func putU32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
func getU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func epollAt(ctx *syscall.Context, fd int32) (*epoll.EpollSet, error) {
	f, err := getFile(ctx, fd)
	if err != nil {
		return nil, err
	}
	e, ok := f.(*epoll.EpollSet)
	if !ok {
		return nil, unix.EINVAL
	}
	return e, nil
}

// EpollCreate implements epoll_create(2)/epoll_create1(2); size/flags are
// ignored the way the real implementation ignores size and this engine
// doesn't model CLOEXEC propagation at this layer.
func EpollCreate(ctx *syscall.Context, sizeOrFlags int32) (kernel.Reg, error) {
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: epoll.New()})
	return kernel.FromInt(int(h)), nil
}

// EpollCtl implements epoll_ctl(2): add/mod/del a watch, decoding the
// epoll_event at evAddr for EPOLL_CTL_ADD/MOD.
func EpollCtl(ctx *syscall.Context, epfd int32, op int32, fd int32, evAddr kernel.Addr) (kernel.Reg, error) {
	e, err := epollAt(ctx, epfd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	watched, err := getFile(ctx, fd)
	if err != nil && op != unix.EPOLL_CTL_DEL {
		return 0, syscall.Errno(toErrno(err))
	}

	switch op {
	case unix.EPOLL_CTL_ADD:
		buf, ferr := copyInBytes(ctx, evAddr, sizeofEpollEvent)
		if ferr != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
		mask, data := decodeEpollEvent(buf)
		if aerr := e.Add(descriptor.Handle(fd), watched, mask, data); aerr != nil {
			return 0, syscall.Errno(aerr.(unix.Errno))
		}
	case unix.EPOLL_CTL_MOD:
		buf, ferr := copyInBytes(ctx, evAddr, sizeofEpollEvent)
		if ferr != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
		mask, data := decodeEpollEvent(buf)
		if merr := e.Mod(descriptor.Handle(fd), mask, data); merr != nil {
			return 0, syscall.Errno(merr.(unix.Errno))
		}
	case unix.EPOLL_CTL_DEL:
		if derr := e.Del(descriptor.Handle(fd)); derr != nil {
			return 0, syscall.Errno(derr.(unix.Errno))
		}
	default:
		return 0, syscall.Errno(unix.EINVAL)
	}
	return 0, nil
}

// epollWaitCondition builds a Blocked condition covering every currently
// watched descriptor, so the scheduler re-enters this dispatch as soon as
// any one of them becomes ready.
func epollWaitCondition(e *epoll.EpollSet) wait.Condition {
	watches := e.WatchList()
	atoms := make([]wait.Atom, len(watches))
	for i, w := range watches {
		atoms[i] = wait.FileReady(w.Handle, w.Mask)
	}
	return wait.Any(atoms...)
}

// EpollWait implements epoll_wait(2): Blocked on an empty result set
// unless timeoutMs == 0 (poll, don't block), matching spec.md §4.3's
// "Blocked on empty readiness unless a zero timeout requests a poll."
func EpollWait(ctx *syscall.Context, epfd int32, eventsAddr kernel.Addr, maxEvents int32, timeoutMs int32) (kernel.Reg, error) {
	e, err := epollAt(ctx, epfd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	events := e.Poll(int(maxEvents))
	if len(events) == 0 && timeoutMs != 0 && !ctx.Thread.WasBlocked() {
		return 0, syscall.ErrBlocked(epollWaitCondition(e))
	}
	for i, ev := range events {
		if _, werr := copyOutBytes(ctx, eventsAddr+kernel.Addr(i*sizeofEpollEvent), encodeEpollEvent(ev)); werr != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
	}
	return kernel.FromInt(len(events)), nil
}

// EpollPwait implements epoll_pwait(2)/epoll_pwait2(2): identical to
// EpollWait, except the mask at sigmaskAddr temporarily replaces the
// thread's signal mask for the wait's duration, restored as soon as the
// wait resolves either way (spec.md §4.3 "pwait restores signal mask
// atomically for the wait duration"). The swap happens once, on first
// entry, and the prior mask is stashed on the thread capability so the
// Blocked/resume round trip restores the right value even though this
// function is re-entered fresh on resumption (spec.md §4.1 step 2).
func EpollPwait(ctx *syscall.Context, epfd int32, eventsAddr kernel.Addr, maxEvents int32, timeoutMs int32, sigmaskAddr kernel.Addr, sigsetSize uint64) (kernel.Reg, error) {
	if !ctx.Thread.WasBlocked() && sigmaskAddr != 0 {
		buf, err := copyInBytes(ctx, sigmaskAddr, 8)
		if err != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
		ctx.Thread.SetSavedSignalMask(ctx.Thread.SignalMask(), true)
		ctx.Thread.SetSignalMask(getU64(buf))
	}

	e, err := epollAt(ctx, epfd)
	if err != nil {
		restoreSignalMask(ctx)
		return 0, syscall.Errno(toErrno(err))
	}
	events := e.Poll(int(maxEvents))
	if len(events) == 0 && timeoutMs != 0 && !ctx.Thread.WasBlocked() {
		return 0, syscall.ErrBlocked(epollWaitCondition(e))
	}
	restoreSignalMask(ctx)
	for i, ev := range events {
		if _, werr := copyOutBytes(ctx, eventsAddr+kernel.Addr(i*sizeofEpollEvent), encodeEpollEvent(ev)); werr != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
	}
	return kernel.FromInt(len(events)), nil
}

func restoreSignalMask(ctx *syscall.Context) {
	if old, ok := ctx.Thread.SavedSignalMask(); ok {
		ctx.Thread.SetSignalMask(old)
		ctx.Thread.SetSavedSignalMask(0, false)
	}
}
