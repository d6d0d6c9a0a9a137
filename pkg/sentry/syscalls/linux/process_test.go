package linux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/pipe"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
)

type fakeProcessManagerWithStatus struct {
	status int32
	exited bool
}

func (m fakeProcessManagerWithStatus) ChildStatus(int32) (int32, bool) { return m.status, m.exited }

func TestWait4BlocksWhenNoChildHasExited(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	_, err := Wait4(ctx, -1, 0, 0, 0)
	require.Error(t, err)
}

func TestWait4WNOHANGReturnsZeroImmediately(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	v, err := Wait4(ctx, -1, 0, unix.WNOHANG, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, v)
}

func TestWait4ReturnsPidAndStatusOnExit(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)
	ctx.Host = fakeHostWithProcesses{fakeProcessManagerWithStatus{status: 7, exited: true}}

	v, err := Wait4(ctx, 5, 300, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, v)

	got := make([]byte, 4)
	ctx.Thread.Memory().CopyIn(300, got)
	assert.EqualValues(t, 7, getU32(got))
}

type fakeHostWithProcesses struct {
	pm fakeProcessManagerWithStatus
}

func (fakeHostWithProcesses) Name() string                             { return "testhost" }
func (fakeHostWithProcesses) Clock() kernel.Clock                      { return fakeClock{} }
func (fakeHostWithProcesses) HostnameResolver() kernel.HostnameResolver { return nil }
func (h fakeHostWithProcesses) Processes() kernel.ProcessManager        { return h.pm }

func TestSetTidAddressRecordsClearChildTID(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, thr := newTestContext(args)

	v, err := SetTidAddress(ctx, 1234)
	require.NoError(t, err)
	assert.EqualValues(t, thr.ID(), v)
	assert.EqualValues(t, 1234, thr.clearChild)
}

func TestRtSigprocmaskBlockUnblockSetmask(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, thr := newTestContext(args)

	buf := make([]byte, 8)
	putU64(buf, 0x2)
	ctx.Thread.Memory().CopyOut(100, buf)

	_, err := RtSigprocmask(ctx, unix.SIG_BLOCK, 100, 0, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 0x2, thr.sigMask)

	_, err = RtSigprocmask(ctx, unix.SIG_UNBLOCK, 100, 0, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 0, thr.sigMask)

	putU64(buf, 0xff)
	ctx.Thread.Memory().CopyOut(100, buf)
	_, err = RtSigprocmask(ctx, unix.SIG_SETMASK, 100, 0, 8)
	require.NoError(t, err)
	assert.EqualValues(t, 0xff, thr.sigMask)

	old := make([]byte, 8)
	_, err = RtSigprocmask(ctx, unix.SIG_SETMASK, 0, 200, 8)
	require.NoError(t, err)
	ctx.Thread.Memory().CopyIn(200, old)
	assert.EqualValues(t, 0xff, getU64(old))
}

func TestSigaltstackRoundTrip(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	buf := make([]byte, sizeofStackT)
	putU64(buf[0:8], 0x9000)
	putU32(buf[8:12], 0)
	putU64(buf[16:24], 4096)
	ctx.Thread.Memory().CopyOut(300, buf)

	_, err := Sigaltstack(ctx, 300, 0)
	require.NoError(t, err)

	out := make([]byte, sizeofStackT)
	_, err = Sigaltstack(ctx, 0, 400)
	require.NoError(t, err)
	ctx.Thread.Memory().CopyIn(400, out)
	assert.EqualValues(t, 0x9000, getU64(out[0:8]))
	assert.EqualValues(t, 4096, getU64(out[16:24]))
}

func TestShadowYieldBlocksOnFirstEntry(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	_, err := ShadowYield(ctx)
	require.Error(t, err)
}

func TestShadowInitMemoryManagerRequiresCapability(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, proc, _ := newTestContext(args)

	_, err := ShadowInitMemoryManager(ctx)
	require.Error(t, err)

	proc.mm = &fakeMemoryManager{}
	_, err = ShadowInitMemoryManager(ctx)
	require.NoError(t, err)
}

type fakeHostnameResolver struct{ addr uint32 }

func (r fakeHostnameResolver) ResolveIPv4(hostname string) (uint32, bool) {
	if hostname == "alice" {
		return r.addr, true
	}
	return 0, false
}

func TestShadowHostnameToAddrIPv4(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)
	ctx.Host = fakeHostWithResolver{fakeHostnameResolver{addr: 0x0100007f}}

	ctx.Thread.Memory().CopyOut(100, []byte("alice"))
	v, err := ShadowHostnameToAddrIPv4(ctx, 100, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 0x0100007f, v)

	ctx.Thread.Memory().CopyOut(100, []byte("bob!!"))
	_, err = ShadowHostnameToAddrIPv4(ctx, 100, 5)
	require.Error(t, err)
}

type fakeHostWithResolver struct {
	resolver fakeHostnameResolver
}

func (fakeHostWithResolver) Name() string                        { return "testhost" }
func (fakeHostWithResolver) Clock() kernel.Clock                  { return fakeClock{} }
func (h fakeHostWithResolver) HostnameResolver() kernel.HostnameResolver { return h.resolver }
func (fakeHostWithResolver) Processes() kernel.ProcessManager     { return fakeProcessManager{} }

func TestExitGroupClosesAllDescriptors(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, proc, _ := newTestContext(args)

	r, _ := pipe.New()
	h := proc.tab.Allocate(&descriptor.Descriptor{File: r})

	_, err := ExitGroup(ctx, 0)
	require.NoError(t, err)

	_, err = getFile(ctx, int32(h))
	assert.Equal(t, unix.EBADF, err)
}
