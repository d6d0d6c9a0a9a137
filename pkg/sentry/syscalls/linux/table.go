// Table wires every per-family handler into one syscall.Registry
// (spec.md §4.1 step 4, §9 "Handler registry"), generalized from
// httese-gvisor's vfs2.Override (which overrides one syscall-table
// variant's entries in place) to "build the whole category-tagged total
// function from scratch": every Linux x86-64 syscall number this engine
// recognizes is classified exactly once, here, rather than scattered
// across per-package init() functions.
package linux

import (
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
)

// BuildRegistry constructs the full dispatch table. resolver is the
// simulated-network capability NewConnect closes over (spec.md §1
// external collaborator); callers wire in whatever topology object
// backs SocketResolver for their deployment.
func BuildRegistry(resolver SocketResolver) *syscall.Registry {
	r := syscall.NewRegistry()
	connect := NewConnect(resolver)

	// File/FS.
	r.Emulated(0, "read", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64, Read))
	r.Emulated(1, "write", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64, Write))
	r.Emulated(2, "open", syscall.Handler3(kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Uint32, Open))
	r.Emulated(3, "close", syscall.Handler1(kernel.Reg.Int32, Close))
	r.Emulated(8, "lseek", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Int64, kernel.Reg.Int32, Lseek))
	r.Emulated(17, "pread64", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Int64, Pread64))
	r.Emulated(22, "pipe", syscall.Handler1(kernel.Reg.Addr, Pipe))
	r.Emulated(32, "dup", syscall.Handler1(kernel.Reg.Int32, Dup))
	r.Emulated(33, "dup2", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, Dup2))
	r.Emulated(72, "fcntl", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Uint64, Fcntl))
	r.Emulated(77, "ftruncate", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int64, Ftruncate))
	r.Emulated(257, "openat", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Uint32, Openat))
	r.Emulated(292, "dup3", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, Dup3))
	r.Emulated(293, "pipe2", syscall.Handler2(kernel.Reg.Addr, kernel.Reg.Int32, Pipe2))

	// Sockets.
	r.Emulated(41, "socket", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, Socket))
	r.Emulated(42, "connect", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint32, connect))
	r.Emulated(43, "accept", syscall.Handler1(kernel.Reg.Int32, Accept))
	r.Emulated(44, "sendto", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Int32, Send))
	r.Emulated(45, "recvfrom", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Int32, Recv))
	r.Emulated(48, "shutdown", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, Shutdown))
	r.Emulated(49, "bind", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint32, Bind))
	r.Emulated(50, "listen", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, Listen))
	r.Emulated(51, "getsockname", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Addr, GetSockName))
	r.Emulated(52, "getpeername", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Addr, GetPeerName))
	r.Emulated(288, "accept4", syscall.Handler1(kernel.Reg.Int32, Accept))

	// Epoll.
	r.Emulated(213, "epoll_create", syscall.Handler1(kernel.Reg.Int32, EpollCreate))
	r.Emulated(232, "epoll_wait", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Int32, EpollWait))
	r.Emulated(233, "epoll_ctl", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, EpollCtl))
	r.Emulated(281, "epoll_pwait", syscall.Handler6(
		kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64,
		EpollPwait))
	r.Emulated(291, "epoll_create1", syscall.Handler1(kernel.Reg.Int32, EpollCreate))
	r.Emulated(441, "epoll_pwait2", syscall.Handler6(
		kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Uint64,
		EpollPwait))

	// Futex.
	r.Emulated(202, "futex", syscall.Handler6(
		kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Uint32, kernel.Reg.Addr, kernel.Reg.Addr, kernel.Reg.Uint32,
		Futex))

	// Timers.
	r.Emulated(35, "nanosleep", syscall.Handler2(kernel.Reg.Addr, kernel.Reg.Addr, Nanosleep))
	r.Emulated(230, "clock_nanosleep", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Addr, ClockNanosleep))
	r.Emulated(283, "timerfd_create", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, TimerfdCreate))
	r.Emulated(286, "timerfd_settime", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Addr, TimerfdSettime))
	r.Emulated(287, "timerfd_gettime", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Addr, TimerfdGettime))
	r.Emulated(284, "eventfd", syscall.Handler2(kernel.Reg.Uint32, kernel.Reg.Int32, Eventfd))
	r.Emulated(290, "eventfd2", syscall.Handler2(kernel.Reg.Uint32, kernel.Reg.Int32, Eventfd2))

	// Memory.
	r.Emulated(9, "mmap", syscall.Handler6(
		kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int64,
		Mmap))
	r.Emulated(10, "mprotect", syscall.Handler3(kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Int32, Mprotect))
	r.Emulated(11, "munmap", syscall.Handler2(kernel.Reg.Addr, kernel.Reg.Uint64, Munmap))
	r.Emulated(12, "brk", syscall.Handler1(kernel.Reg.Addr, Brk))
	r.Emulated(25, "mremap", syscall.Handler4(kernel.Reg.Addr, kernel.Reg.Uint64, kernel.Reg.Uint64, kernel.Reg.Int32, Mremap))

	// Process/thread lifecycle.
	r.Emulated(14, "rt_sigprocmask", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Addr, kernel.Reg.Uint64, RtSigprocmask))
	r.Emulated(61, "wait4", syscall.Handler4(kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Addr, Wait4))
	r.Emulated(62, "kill", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, Kill))
	r.Emulated(131, "sigaltstack", syscall.Handler2(kernel.Reg.Addr, kernel.Reg.Addr, Sigaltstack))
	r.Emulated(200, "tkill", syscall.Handler2(kernel.Reg.Int32, kernel.Reg.Int32, Tkill))
	r.Emulated(218, "set_tid_address", syscall.Handler1(kernel.Reg.Addr, SetTidAddress))
	r.Emulated(231, "exit_group", syscall.Handler1(kernel.Reg.Int32, ExitGroup))
	r.Emulated(234, "tgkill", syscall.Handler3(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, Tgkill))
	r.Emulated(247, "waitid", syscall.Handler5(kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Addr, kernel.Reg.Int32, kernel.Reg.Addr, Waitid))

	// Simulator-private (spec.md §6 "Custom syscall numbers"): these
	// numbers are outside the Linux allocation and MUST be stable since
	// the shim calls them directly.
	r.Custom(syscall.CustomNumBase, "shadow_yield", syscall.Handler0(ShadowYield))
	r.Custom(syscall.CustomNumBase+1, "shadow_init_memory_manager", syscall.Handler0(ShadowInitMemoryManager))
	r.Custom(syscall.CustomNumBase+2, "shadow_hostname_to_addr_ipv4", syscall.Handler2(kernel.Reg.Addr, kernel.Reg.Uint64, ShadowHostnameToAddrIPv4))

	// Shim-only (spec.md §4.1 step 4): the shim is contractually required
	// to service these inline; arrival here is a fatal invariant
	// violation, not a guest-facing error.
	r.ShimOnly(map[int64]string{
		24:  "sched_yield",
		96:  "gettimeofday",
		201: "time",
		228: "clock_gettime",
	})

	// Native (spec.md §4.3: "effect on simulation state is negligible").
	// Path-metadata and identity queries, process spawn (owned by the
	// simulator's process tree, not this handler layer — see DESIGN.md),
	// and a handful of syscalls this engine doesn't yet model directly
	// all pass straight to the host kernel.
	r.Native(map[int64]string{
		4:   "stat",
		5:   "fstat",
		6:   "lstat",
		7:   "poll",
		13:  "rt_sigaction",
		15:  "rt_sigreturn",
		19:  "readv",
		20:  "writev",
		21:  "access",
		23:  "select",
		39:  "getpid",
		56:  "clone",
		57:  "fork",
		58:  "vfork",
		59:  "execve",
		60:  "exit",
		63:  "uname",
		102: "getuid",
		104: "getgid",
		107: "geteuid",
		108: "getegid",
		110: "getppid",
		157: "prctl",
		186: "gettid",
		203: "sched_setaffinity",
		204: "sched_getaffinity",
		273: "set_robust_list",
		274: "get_robust_list",
		282: "signalfd",
		322: "execveat",
		435: "clone3",
	})

	return r
}
