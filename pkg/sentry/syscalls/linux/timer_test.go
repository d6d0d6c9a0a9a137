package linux

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
)

func TestTimerfdCreateSettimeGettimeRoundTrip(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	v, err := TimerfdCreate(ctx, 0, 0)
	require.NoError(t, err)
	fd := int32(v)

	spec := make([]byte, 2*sizeofTimespec)
	copy(spec[0:sizeofTimespec], encodeTimespec(0))
	copy(spec[sizeofTimespec:2*sizeofTimespec], encodeTimespec(5*time.Second))
	ctx.Thread.Memory().CopyOut(100, spec)

	_, err = TimerfdSettime(ctx, fd, 0, 100, 0)
	require.NoError(t, err)

	_, err = TimerfdGettime(ctx, fd, 300)
	require.NoError(t, err)

	out := make([]byte, 2*sizeofTimespec)
	ctx.Thread.Memory().CopyIn(300, out)
	remaining := decodeTimespec(out[sizeofTimespec : 2*sizeofTimespec])
	assert.True(t, remaining > 4*time.Second && remaining <= 5*time.Second)
}

func TestNanosleepBlocksOnFirstEntry(t *testing.T) {
	args := kernel.NewSyscallArgs(0)
	ctx, _, _ := newTestContext(args)

	ctx.Thread.Memory().CopyOut(100, encodeTimespec(time.Second))

	_, err := Nanosleep(ctx, 100, 0)
	require.Error(t, err)
}
