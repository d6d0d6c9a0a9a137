package syscall

import "github.com/Nashatyrev/shadow/pkg/sentry/kernel"

// Context is what every per-family handler receives: the thread's
// capability bundle plus the raw argument tuple for this call. It plays
// the role of Shadow's SyscallContext (objs + args).
type Context struct {
	*kernel.ThreadContext
	Args *kernel.SyscallArgs
}
