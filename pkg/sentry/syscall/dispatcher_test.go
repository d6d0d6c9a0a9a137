package syscall

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type fakeResolver struct{}

func (fakeResolver) ResolveIPv4(string) (uint32, bool) { return 0, false }

type fakeHost struct {
	name string
}

func (h *fakeHost) Name() string                            { return h.name }
func (h *fakeHost) Clock() kernel.Clock                      { return &fakeClock{} }
func (h *fakeHost) HostnameResolver() kernel.HostnameResolver { return fakeResolver{} }
func (h *fakeHost) Processes() kernel.ProcessManager          { return fakeProcessManager{} }

type fakeProcessManager struct{}

func (fakeProcessManager) ChildStatus(int32) (int32, bool) { return 0, false }

type fakeProcess struct {
	name string
	pid  int32
}

func (p *fakeProcess) Name() string                        { return p.name }
func (p *fakeProcess) PID() int32                           { return p.pid }
func (p *fakeProcess) Descriptors() any                     { return nil }
func (p *fakeProcess) MemoryManager() kernel.MemoryManager  { return nil }
func (p *fakeProcess) FutexTable() any                      { return nil }

type fakeThread struct {
	tid            int32
	tgid           int32
	wasBlocked     bool
	sigMask        uint64
	savedSigMask   uint64
	savedSigMaskOk bool
}

func (t *fakeThread) ID() int32               { return t.tid }
func (t *fakeThread) Tgid() int32             { return t.tgid }
func (t *fakeThread) Memory() kernel.MemoryIO { return nil }
func (t *fakeThread) WasBlocked() bool        { return t.wasBlocked }
func (t *fakeThread) InterruptPending() bool  { return false }
func (t *fakeThread) SignalMask() uint64      { return t.sigMask }
func (t *fakeThread) SetSignalMask(mask uint64) { t.sigMask = mask }
func (t *fakeThread) AltStack() (kernel.Addr, int32, uint64) { return 0, 0, 0 }
func (t *fakeThread) SetAltStack(kernel.Addr, int32, uint64) {}
func (t *fakeThread) SetClearChildTID(kernel.Addr)           {}
func (t *fakeThread) SavedSignalMask() (uint64, bool)        { return t.savedSigMask, t.savedSigMaskOk }
func (t *fakeThread) SetSavedSignalMask(mask uint64, ok bool) {
	t.savedSigMask, t.savedSigMaskOk = mask, ok
}

type fakeCounters struct {
	counts map[string]int
}

func newFakeCounters() *fakeCounters { return &fakeCounters{counts: make(map[string]int)} }

func (c *fakeCounters) AddOne(name string) { c.counts[name]++ }

func newTestCtx() (*kernel.ThreadContext, *fakeThread, *fakeCounters) {
	thr := &fakeThread{tid: 42, tgid: 42}
	ctrs := newFakeCounters()
	tc := &kernel.ThreadContext{
		Host:     &fakeHost{name: "testhost"},
		Process:  &fakeProcess{name: "testproc", pid: 7},
		Thread:   thr,
		Counters: ctrs,
	}
	return tc, thr, ctrs
}

func TestDispatchEmulatedOk(t *testing.T) {
	reg := NewRegistry()
	reg.Emulated(39, "getpid", Handler0(func(ctx *Context) (kernel.Reg, error) {
		return kernel.FromInt64(int64(ctx.Process.PID())), nil
	}))

	d := NewDispatcher(reg, nil)
	tc, _, ctrs := newTestCtx()
	args := kernel.NewSyscallArgs(39)

	res := d.Dispatch(tc, &args)
	require.Equal(t, Ok, res.Kind)
	assert.EqualValues(t, 7, res.Value)
	assert.Equal(t, 1, ctrs.counts["getpid"])
}

func TestDispatchFailedErrno(t *testing.T) {
	reg := NewRegistry()
	reg.Emulated(3, "close", Handler1(kernel.Reg.Int32, func(ctx *Context, fd int32) (kernel.Reg, error) {
		return 0, Errno(unix.EBADF)
	}))

	d := NewDispatcher(reg, nil)
	tc, _, _ := newTestCtx()
	args := kernel.NewSyscallArgs(3, kernel.Reg(3))

	res := d.Dispatch(tc, &args)
	require.Equal(t, Failed, res.Kind)
	assert.Equal(t, unix.EBADF, res.Errno)
}

func TestDispatchNative(t *testing.T) {
	reg := NewRegistry()
	reg.Native(map[int64]string{102: "getuid"})

	d := NewDispatcher(reg, nil)
	tc, _, _ := newTestCtx()
	args := kernel.NewSyscallArgs(102)

	res := d.Dispatch(tc, &args)
	require.Equal(t, Native, res.Kind)
}

func TestDispatchShimOnlyPanics(t *testing.T) {
	reg := NewRegistry()
	reg.ShimOnly(map[int64]string{228: "clock_gettime"})

	d := NewDispatcher(reg, nil)
	tc, _, _ := newTestCtx()
	args := kernel.NewSyscallArgs(228)

	assert.Panics(t, func() {
		d.Dispatch(tc, &args)
	})
}

func TestDispatchUnsupportedWarnOnceThenDebug(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg, nil)
	tc, _, _ := newTestCtx()
	args := kernel.NewSyscallArgs(99999)

	res1 := d.Dispatch(tc, &args)
	require.Equal(t, Failed, res1.Kind)
	assert.Equal(t, unix.ENOSYS, res1.Errno)
	assert.True(t, d.warned.observe(99999) == false) // already seen

	res2 := d.Dispatch(tc, &args)
	require.Equal(t, Failed, res2.Kind)
	assert.Equal(t, unix.ENOSYS, res2.Errno)
}

func TestDispatchBlockedResumptionDoesNotRecount(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	reg.Emulated(0, "read", Handler0(func(ctx *Context) (kernel.Reg, error) {
		calls++
		if !ctx.Thread.WasBlocked() {
			return 0, ErrBlocked(wait.Any(wait.FileReady(0, 0)))
		}
		return kernel.FromInt64(5), nil
	}))

	d := NewDispatcher(reg, nil)
	tc, thr, ctrs := newTestCtx()
	args := kernel.NewSyscallArgs(0)

	res := d.Dispatch(tc, &args)
	require.Equal(t, Blocked, res.Kind)
	assert.Equal(t, 1, ctrs.counts["read"])

	// Simulate the scheduler re-entering the dispatcher on wake.
	thr.wasBlocked = true
	res2 := d.Dispatch(tc, &args)
	require.Equal(t, Ok, res2.Kind)
	assert.EqualValues(t, 5, res2.Value)
	// Counter must not have incremented again.
	assert.Equal(t, 1, ctrs.counts["read"])
	assert.Equal(t, 2, calls)
}

func TestHandlerArityZeroToSix(t *testing.T) {
	reg := NewRegistry()
	reg.Emulated(1, "h1", Handler1(kernel.Reg.Int32, func(ctx *Context, a int32) (kernel.Reg, error) {
		return kernel.FromInt(int(a)), nil
	}))
	reg.Emulated(2, "h2", Handler2(kernel.Reg.Int32, kernel.Reg.Int32, func(ctx *Context, a, b int32) (kernel.Reg, error) {
		return kernel.FromInt(int(a + b)), nil
	}))
	reg.Emulated(6, "h6", Handler6(
		kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32, kernel.Reg.Int32,
		func(ctx *Context, a, b, c, d2, e, f int32) (kernel.Reg, error) {
			return kernel.FromInt(int(a + b + c + d2 + e + f)), nil
		}))

	d := NewDispatcher(reg, nil)
	tc, _, _ := newTestCtx()

	a1 := kernel.NewSyscallArgs(1, kernel.Reg(10))
	r1 := d.Dispatch(tc, &a1)
	assert.EqualValues(t, 10, r1.Value)

	a2 := kernel.NewSyscallArgs(2, kernel.Reg(3), kernel.Reg(4))
	r2 := d.Dispatch(tc, &a2)
	assert.EqualValues(t, 7, r2.Value)

	a6 := kernel.NewSyscallArgs(6, kernel.Reg(1), kernel.Reg(2), kernel.Reg(3), kernel.Reg(4), kernel.Reg(5), kernel.Reg(6))
	r6 := d.Dispatch(tc, &a6)
	assert.EqualValues(t, 21, r6.Value)
}
