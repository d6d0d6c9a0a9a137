// Timer family handlers (spec.md §4.3 "Timers"): timerfd_create/
// settime/gettime wired to fsimpl/timerfd, plus nanosleep/
// clock_nanosleep modeled as a Blocked(Timer(deadline)) condition rather
// than an actual sleep, since virtual time only advances through the
// external scheduler (spec.md §1).
package linux

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/timerfd"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// sizeofTimespec is sizeof(struct timespec) on a 64-bit Linux target.
const sizeofTimespec = 16

func encodeTimespec(d time.Duration) []byte {
	buf := make([]byte, sizeofTimespec)
	sec := int64(d / time.Second)
	nsec := int64(d % time.Second)
	putI64(buf[0:8], sec)
	putI64(buf[8:16], nsec)
	return buf
}

func decodeTimespec(buf []byte) time.Duration {
	sec := getI64(buf[0:8])
	nsec := getI64(buf[8:16])
	return time.Duration(sec)*time.Second + time.Duration(nsec)
}

func putI64(b []byte, v int64) { putU64(b, uint64(v)) }
func getI64(b []byte) int64    { return int64(getU64(b)) }

func timerAt(ctx *syscall.Context, fd int32) (*timerfd.TimerFd, error) {
	f, err := getFile(ctx, fd)
	if err != nil {
		return nil, err
	}
	tf, ok := f.(*timerfd.TimerFd)
	if !ok {
		return nil, unix.EINVAL
	}
	return tf, nil
}

// TimerfdCreate implements timerfd_create(2): clockid is accepted but
// ignored since this engine has a single virtual clock (spec.md glossary
// "Virtual time"), not separate REALTIME/MONOTONIC/BOOTTIME sources.
func TimerfdCreate(ctx *syscall.Context, clockID int32, flags int32) (kernel.Reg, error) {
	tf := timerfd.New(ctx.Host.Clock())
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: tf})
	return kernel.FromInt(int(h)), nil
}

// TimerfdSettime implements timerfd_settime(2): decodes the itimerspec
// at newValueAddr (it_interval then it_value, each a timespec) and arms
// or disarms the timer accordingly.
func TimerfdSettime(ctx *syscall.Context, fd int32, flags int32, newValueAddr kernel.Addr, oldValueAddr kernel.Addr) (kernel.Reg, error) {
	tf, err := timerAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	buf, cerr := copyInBytes(ctx, newValueAddr, 2*sizeofTimespec)
	if cerr != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	interval := decodeTimespec(buf[0:sizeofTimespec])
	value := decodeTimespec(buf[sizeofTimespec : 2*sizeofTimespec])

	var absolute time.Time
	if value != 0 {
		if flags&unix.TFD_TIMER_ABSTIME != 0 {
			absolute = time.Unix(0, 0).Add(value)
		} else {
			absolute = ctx.Host.Clock().Now().Add(value)
		}
	}
	tf.Settime(absolute, interval)
	return 0, nil
}

// TimerfdGettime implements timerfd_gettime(2): encodes the remaining
// time and interval back into an itimerspec at curValueAddr.
func TimerfdGettime(ctx *syscall.Context, fd int32, curValueAddr kernel.Addr) (kernel.Reg, error) {
	tf, err := timerAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	_, remaining, interval := tf.Gettime()
	out := make([]byte, 2*sizeofTimespec)
	copy(out[0:sizeofTimespec], encodeTimespec(interval))
	copy(out[sizeofTimespec:2*sizeofTimespec], encodeTimespec(remaining))
	if _, werr := copyOutBytes(ctx, curValueAddr, out); werr != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return 0, nil
}

// Nanosleep implements nanosleep(2): Blocked(Timer(deadline)) on first
// entry, Ok(0) on the resumption the scheduler delivers once virtual
// time reaches the deadline (spec.md §4.4's restart/resumption model
// applied to a sleep rather than an I/O wait).
func Nanosleep(ctx *syscall.Context, reqAddr kernel.Addr, remAddr kernel.Addr) (kernel.Reg, error) {
	if ctx.Thread.WasBlocked() {
		return 0, nil
	}
	buf, err := copyInBytes(ctx, reqAddr, sizeofTimespec)
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	dur := decodeTimespec(buf)
	deadline := ctx.Host.Clock().Now().Add(dur)
	return 0, syscall.ErrBlocked(wait.Any(wait.Timer(deadline)).WithRestart())
}

// ClockNanosleep implements clock_nanosleep(2): same Blocked(Timer(...))
// model as Nanosleep, with TIMER_ABSTIME honored against the virtual
// clock's epoch.
func ClockNanosleep(ctx *syscall.Context, clockID int32, flags int32, reqAddr kernel.Addr, remAddr kernel.Addr) (kernel.Reg, error) {
	if ctx.Thread.WasBlocked() {
		return 0, nil
	}
	buf, err := copyInBytes(ctx, reqAddr, sizeofTimespec)
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	dur := decodeTimespec(buf)
	var deadline time.Time
	if flags&unix.TIMER_ABSTIME != 0 {
		deadline = time.Unix(0, 0).Add(dur)
	} else {
		deadline = ctx.Host.Clock().Now().Add(dur)
	}
	return 0, syscall.ErrBlocked(wait.Any(wait.Timer(deadline)).WithRestart())
}
