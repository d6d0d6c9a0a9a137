// Package descriptor implements the per-process descriptor table and the
// FileObject capability surface every kernel object behind a descriptor
// must expose (spec.md §3, §4.2). Modeled on the immutable-identity /
// per-open-instance split in httese-gvisor's
// pkg/sentry/fsimpl/host/host.go (inode vs fileDescription): a
// FileObject here plays the role of that inode — the shared, refcounted
// identity — while the Descriptor plays fileDescription, holding the
// per-descriptor flags that dup() is allowed to diverge.
package descriptor

import (
	"golang.org/x/sys/unix"
)

// Readiness is a bitmask of poll-style readiness conditions. Values are
// the same bits as unix.EPOLLIN / EPOLLOUT / EPOLLHUP / EPOLLERR so that
// epoll handlers can pass a FileObject's Readiness() result straight
// through to the guest without translation.
type Readiness uint32

const (
	ReadinessIn    Readiness = unix.EPOLLIN
	ReadinessOut   Readiness = unix.EPOLLOUT
	ReadinessErr   Readiness = unix.EPOLLERR
	ReadinessHup   Readiness = unix.EPOLLHUP
	ReadinessPri   Readiness = unix.EPOLLPRI
	ReadinessRdHup Readiness = unix.EPOLLRDHUP
)

// FileObject is the common capability set every kernel object behind a
// descriptor exposes, regardless of its concrete kind (spec.md §3's
// "FileObject (polymorphic)"). Kind-specific behavior (socket connect,
// pipe split ends, epoll's watch set) lives on the concrete type in
// the fsimpl packages; handlers type-assert to the concrete type they
// need (see socket.Socket, epoll.EpollSet, etc.) after going through the
// descriptor table.
type FileObject interface {
	// Kind names the concrete variant, for diagnostics and for Stat-like
	// handlers that branch on file type.
	Kind() string

	// Read/Write transfer bytes. Implementations that don't support one
	// direction return an error: EBADF for the wrong end of a pipe,
	// EINVAL for objects such as epoll and timerfd sets.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	// Readiness reports which of the requested bits are currently
	// satisfied; used by blocking I/O and epoll alike. Poll-state
	// transitions are monotonic toward readiness within one simulated
	// step (spec.md §3 invariant).
	Readiness(mask Readiness) Readiness

	// Close transitions the FileObject to a terminal state. Idempotent
	// from the table's point of view: the table only calls this once per
	// descriptor, when the last reference is dropped.
	Close() error

	// Ioctl and Fcntl let handlers delegate request-specific logic to the
	// object that owns the state being queried/mutated (e.g. FIONREAD on
	// a pipe, O_NONBLOCK toggling relayed from fcntl).
	Ioctl(req uint, arg uintptr) (uintptr, error)
	Fcntl(cmd int32, arg uintptr) (uintptr, error)
}

// Flags are the per-descriptor flags a dup() is allowed to diverge on
// (spec.md §4.2, "per-descriptor flag get/set (notably FD_CLOEXEC,
// O_NONBLOCK surface)").
type Flags struct {
	CloseOnExec bool
	NonBlocking bool
}
