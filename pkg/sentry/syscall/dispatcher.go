package syscall

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
)

// Dispatcher is the component specified in spec.md §4.1: given a mutable
// thread context and an immutable SyscallArgs, it produces exactly one
// SyscallResult. It owns the handler registry and the process-wide
// warned-unsupported-syscall set; everything else (scheduling, memory,
// descriptors) is reached through the ThreadContext capabilities.
type Dispatcher struct {
	registry *Registry
	warned   *warnedSet
	log      logrus.FieldLogger
}

// NewDispatcher builds a Dispatcher around a fully populated registry
// (see syscalls/linux.BuildRegistry). log may be nil, in which case a
// disabled logger is used (tests that don't care about trace output).
func NewDispatcher(registry *Registry, log logrus.FieldLogger) *Dispatcher {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel + 1) // effectively silent
		log = l
	}
	return &Dispatcher{registry: registry, warned: newWarnedSet(), log: log}
}

// Dispatch implements spec.md §4.1's state machine: Entry -> Pre-log ->
// Dispatch -> {Ok|Failed|Native|Blocked} -> Post-log -> Return.
func (d *Dispatcher) Dispatch(tc *kernel.ThreadContext, args *kernel.SyscallArgs) Result {
	num := args.Number
	cat, regName, fn := d.registry.Lookup(num)
	name := resolveName(num, regName)

	wasBlocked := tc.Thread.WasBlocked()

	d.log.Tracef("%s", preLine(name, num, wasBlocked, tc.Process.Name(), tc.Thread.ID()))

	// Count the frequency of each syscall, but only on the initial call
	// (spec.md §4.1 step 2, §8): a resumed Blocked invocation must not
	// double count.
	if !wasBlocked && tc.Counters != nil {
		tc.Counters.AddOne(name)
	}

	var result Result
	switch cat {
	case CategoryEmulated, CategoryCustom:
		result = fn(&Context{ThreadContext: tc, Args: args})

	case CategoryNative:
		result = ResultNative()

	case CategoryShimOnly:
		// Invariant violation: the shim was contractually required to
		// service this syscall inline and never let it reach the
		// dispatcher (spec.md §4.1 step 4, §7). This is fatal, not a
		// guest-visible errno.
		panic(errors.Errorf("syscall %s (%d) should have been handled in the shim", name, num))

	default: // CategoryUnsupported
		firstTime := d.warned.observe(num)
		if firstTime {
			d.log.Warnf("(LOG_ONCE) Detected unsupported syscall %s (%d) called from thread %d in process %s on host %s",
				name, num, tc.Thread.ID(), tc.Process.Name(), tc.Host.Name())
		} else {
			d.log.Debugf("(LOG_ONCE) Detected unsupported syscall %s (%d) called from thread %d in process %s on host %s",
				name, num, tc.Thread.ID(), tc.Process.Name(), tc.Host.Name())
		}
		result = ResultFailed(unix.ENOSYS, false)
	}

	d.log.Tracef("%s", postLine(name, num, wasBlocked, formatResult(result), tc.Process.Name(), tc.Thread.ID()))

	return result
}
