package linux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
)

func TestBuildRegistryRoutesEmulatedCategoriesCorrectly(t *testing.T) {
	r := BuildRegistry(mapResolver{})

	cat, name, fn := r.Lookup(3) // close
	assert.Equal(t, syscall.CategoryEmulated, cat)
	assert.Equal(t, "close", name)
	require.NotNil(t, fn)

	cat, name, _ = r.Lookup(228) // clock_gettime
	assert.Equal(t, syscall.CategoryShimOnly, cat)
	assert.Equal(t, "clock_gettime", name)

	cat, name, _ = r.Lookup(39) // getpid
	assert.Equal(t, syscall.CategoryNative, cat)
	assert.Equal(t, "getpid", name)

	cat, _, _ = r.Lookup(99999)
	assert.Equal(t, syscall.CategoryUnsupported, cat)

	cat, name, fn = r.Lookup(syscall.CustomNumBase)
	assert.Equal(t, syscall.CategoryCustom, cat)
	assert.Equal(t, "shadow_yield", name)
	require.NotNil(t, fn)
}

func TestBuildRegistryCloseHandlerReachableEndToEnd(t *testing.T) {
	r := BuildRegistry(mapResolver{})
	d := syscall.NewDispatcher(r, nil)

	tc, _, _ := newDispatcherTestCtx()
	v, err := Socket(sysCtxFromThreadContext(tc), unix.AF_INET, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	fd := int32(v)

	args := kernel.NewSyscallArgs(3, kernel.Reg(fd))
	res := d.Dispatch(tc, &args)
	require.Equal(t, syscall.Ok, res.Kind)
}

func newDispatcherTestCtx() (*kernel.ThreadContext, *fakeProcess, *fakeThread) {
	args := kernel.NewSyscallArgs(0)
	ctx, proc, thr := newTestContext(args)
	return ctx.ThreadContext, proc, thr
}

func sysCtxFromThreadContext(tc *kernel.ThreadContext) *syscall.Context {
	args := kernel.NewSyscallArgs(0)
	return &syscall.Context{ThreadContext: tc, Args: &args}
}
