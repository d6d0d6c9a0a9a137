package kernel

import "time"

// MemoryIO is the thread's view into guest memory. The core never touches
// guest bytes except through this capability, so that single-writer
// enforcement for a touched byte range (spec.md §5, "Shared resource
// policy") is the memory manager's job, not the dispatcher's.
type MemoryIO interface {
	// CopyIn reads len(dst) bytes from the guest address into dst.
	CopyIn(addr Addr, dst []byte) (int, error)
	// CopyOut writes src into the guest address.
	CopyOut(addr Addr, src []byte) (int, error)
}

// MemoryManager models the per-process address space that services brk,
// mmap, mprotect, mremap, and munmap. The real allocator lives in the
// simulator proper; this is the narrow capability surface the memory
// handlers need from it.
type MemoryManager interface {
	Brk(newBrk Addr) (Addr, error)
	MMap(hint Addr, length uint64, prot, flags int32, fd int32, offset int64) (Addr, error)
	MProtect(addr Addr, length uint64, prot int32) error
	MRemap(oldAddr Addr, oldSize, newSize uint64, flags int32) (Addr, error)
	MUnmap(addr Addr, length uint64) error
}

// Clock is the simulator's single virtual time source (spec.md glossary:
// "Virtual time"). Handlers read it to timestamp timers and sleeps; they
// never advance it themselves — only the external event scheduler does.
type Clock interface {
	Now() time.Time
}

// HostnameResolver backs shadow_hostname_to_addr_ipv4: guest hostname
// lookups are resolved against the simulated network topology, which is
// out of scope for this core and supplied by the Host capability.
type HostnameResolver interface {
	ResolveIPv4(hostname string) (addr uint32, ok bool)
}

// ProcessManager is the simulator-wide process tree wait4/waitid consult
// for child-exit status (spec.md §4.3: "drive the simulated process
// tree"). Spawning and reaping children is the simulator proper's job;
// this is the narrow read surface the handlers need from it.
type ProcessManager interface {
	ChildStatus(pid int32) (status int32, exited bool)
}

// Host is the simulator-wide capability surface a dispatch can reach:
// the current virtual clock, the hostname resolver backed by the
// (external) network topology, and the process tree.
type Host interface {
	Name() string
	Clock() Clock
	HostnameResolver() HostnameResolver
	Processes() ProcessManager
}

// Process is the per-process capability surface: descriptor table, memory
// manager, and identity. The descriptor table type lives in package
// descriptor to avoid a dependency cycle; Process is declared generically
// here via Descriptors() any so that the kernel package doesn't need to
// import descriptor. Callers type-assert to *descriptor.Table.
type Process interface {
	Name() string
	PID() int32
	Descriptors() any
	MemoryManager() MemoryManager

	// FutexTable returns the process's *futex.Table. Declared as any for
	// the same reason Descriptors is: package futex imports kernel for
	// MemoryIO/Addr, so kernel cannot import futex back without a cycle.
	// Callers type-assert to *futex.Table.
	FutexTable() any
}

// Thread is the per-thread capability surface.
type Thread interface {
	ID() int32 // tid
	Tgid() int32
	Memory() MemoryIO

	// WasBlocked reports whether this invocation is a resumption of a
	// previously Blocked syscall (spec.md §4.1 step 2).
	WasBlocked() bool

	// InterruptPending reports whether a non-masked signal is queued for
	// delivery; used by restart/EINTR handling (spec.md §4.4).
	InterruptPending() bool

	// SignalMask/SetSignalMask back rt_sigprocmask(2)'s blocked-signal set.
	SignalMask() uint64
	SetSignalMask(mask uint64)

	// AltStack/SetAltStack back sigaltstack(2): the raw stack_t fields
	// rather than a dedicated type, so this package doesn't need one.
	AltStack() (sp Addr, flags int32, size uint64)
	SetAltStack(sp Addr, flags int32, size uint64)

	// SetClearChildTID backs set_tid_address(2): the guest address the
	// kernel clears and futex-wakes on thread exit.
	SetClearChildTID(addr Addr)

	// SavedSignalMask/SetSavedSignalMask back the pselect/ppoll/
	// epoll_pwait family's atomic temporary-mask swap (spec.md §4.3
	// "pwait restores signal mask atomically for the wait duration"),
	// mirroring Linux's task_struct.saved_sigmask: the mask in effect
	// before the call is stashed here across the Blocked/resume boundary
	// and restored once the wait resolves. ok reports whether a restore
	// is currently pending.
	SavedSignalMask() (mask uint64, ok bool)
	SetSavedSignalMask(mask uint64, ok bool)
}

// Counters is the sink for per-syscall-name invocation counts, owned by
// the thread per spec.md §6 ("Counters and strace logging are sinks owned
// by the thread").
type Counters interface {
	AddOne(syscallName string)
}

// ThreadContext bundles the three capability references a dispatch needs,
// matching Shadow's ThreadContextObjs / gVisor's kernel.Task.
type ThreadContext struct {
	Host     Host
	Process  Process
	Thread   Thread
	Counters Counters
}
