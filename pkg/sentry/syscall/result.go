// Package syscall implements the dispatcher: the component that converts
// a {ThreadContext, SyscallArgs} pair into a SyscallResult by routing
// through the handler registry (spec.md §4.1). It is deliberately named
// syscall rather than syscalls to mirror Shadow's
// host::syscall::handler::mod — this is the handler *framework*, not the
// per-family handler bodies, which live in
// github.com/Nashatyrev/shadow/pkg/sentry/syscalls/linux.
package syscall

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// ResultKind discriminates the four SyscallResult variants of spec.md §3.
type ResultKind int

const (
	Ok ResultKind = iota
	Failed
	Native
	Blocked
)

func (k ResultKind) String() string {
	switch k {
	case Ok:
		return "Ok"
	case Failed:
		return "Failed"
	case Native:
		return "Native"
	case Blocked:
		return "Blocked"
	default:
		return "Unknown"
	}
}

// Result is the tagged union the dispatcher ultimately returns for every
// invocation (spec.md §3 "SyscallResult").
type Result struct {
	Kind ResultKind

	// valid when Kind == Ok
	Value kernel.Reg

	// valid when Kind == Failed
	Errno       unix.Errno
	Restartable bool

	// valid when Kind == Blocked
	Cond wait.Condition
}

// ResultOk builds an Ok(value) result.
func ResultOk(v kernel.Reg) Result { return Result{Kind: Ok, Value: v} }

// ResultFailed builds a Failed(errno) result. restartable marks calls
// Linux would transparently restart across a handled signal absent
// SA_RESTART's opposite (e.g. nanosleep); most syscalls are not
// restartable by default and pass false.
func ResultFailed(errno unix.Errno, restartable bool) Result {
	return Result{Kind: Failed, Errno: errno, Restartable: restartable}
}

// ResultNative builds a Native result: the caller must execute this
// syscall on the host kernel.
func ResultNative() Result { return Result{Kind: Native} }

// ResultBlocked builds a Blocked(condition) result.
func ResultBlocked(cond wait.Condition) Result { return Result{Kind: Blocked, Cond: cond} }

// HandlerError implements Go's error interface so that per-family
// handlers can return (value, error) like ordinary Go functions instead of
// constructing a Result directly; the adapters in adapter.go translate the
// returned error into the right Result variant.
type HandlerError struct {
	errno       unix.Errno
	restartable bool
	native      bool
	cond        *wait.Condition
}

func (e *HandlerError) Error() string {
	switch {
	case e.native:
		return "<native>"
	case e.cond != nil:
		return "<blocked>"
	default:
		return fmt.Sprintf("errno %d (%s)", e.errno, e.errno.Error())
	}
}

// Errno builds a HandlerError carrying a guest-visible errno.
func Errno(errno unix.Errno) error {
	return &HandlerError{errno: errno}
}

// ErrnoRestartable builds a HandlerError for an errno that the syscall
// convention restarts (e.g. ERESTARTSYS-equivalent bookkeeping handled at
// the handler level, such as nanosleep's remaining-time update).
func ErrnoRestartable(errno unix.Errno) error {
	return &HandlerError{errno: errno, restartable: true}
}

// ErrNative signals that the dispatcher must return Native for this call.
func ErrNative() error {
	return &HandlerError{native: true}
}

// ErrBlocked signals that the thread cannot progress until cond holds.
func ErrBlocked(cond wait.Condition) error {
	return &HandlerError{cond: &cond}
}

// asHandlerError unwraps a *HandlerError from a generic error return,
// panicking (an invariant violation, not a guest-facing error) if a
// handler returned something else — handlers may only ever return nil or
// a value built by Errno/ErrnoRestartable/ErrNative/ErrBlocked.
func asHandlerError(err error) *HandlerError {
	he, ok := err.(*HandlerError)
	if !ok {
		panic(fmt.Sprintf("syscall handler returned a non-HandlerError error: %v (%T)", err, err))
	}
	return he
}

func resultFrom(v kernel.Reg, err error) Result {
	if err == nil {
		return ResultOk(v)
	}
	he := asHandlerError(err)
	switch {
	case he.native:
		return ResultNative()
	case he.cond != nil:
		return ResultBlocked(*he.cond)
	default:
		return ResultFailed(he.errno, he.restartable)
	}
}
