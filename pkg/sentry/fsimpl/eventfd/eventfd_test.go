package eventfd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

func u64buf(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestReadOnZeroCounterReturnsEAGAIN(t *testing.T) {
	e := New(0, false)
	_, err := e.Read(make([]byte, 8))
	assert.Equal(t, unix.EAGAIN, err)
}

func TestAccumulatorReadResetsToZero(t *testing.T) {
	e := New(5, false)
	buf := make([]byte, 8)
	n, err := e.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(buf))

	_, err = e.Read(buf)
	assert.Equal(t, unix.EAGAIN, err)
}

func TestSemaphoreReadDecrementsByOne(t *testing.T) {
	e := New(3, true)
	buf := make([]byte, 8)

	n, err := e.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.EqualValues(t, 1, binary.LittleEndian.Uint64(buf))

	_, err = e.Read(buf)
	require.NoError(t, err)
	_, err = e.Read(buf)
	require.NoError(t, err)
	_, err = e.Read(buf)
	assert.Equal(t, unix.EAGAIN, err)
}

func TestWriteAddsToCounter(t *testing.T) {
	e := New(0, false)
	n, err := e.Write(u64buf(1))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.NotEqual(t, descriptor.Readiness(0), e.Readiness(descriptor.ReadinessIn))
}

func TestWriteMaxUint64IsRejected(t *testing.T) {
	e := New(0, false)
	_, err := e.Write(u64buf(^uint64(0)))
	assert.Equal(t, unix.EINVAL, err)
}

func TestShortBufferIsEINVAL(t *testing.T) {
	e := New(0, false)
	_, err := e.Read(make([]byte, 4))
	assert.Equal(t, unix.EINVAL, err)

	_, err = e.Write(make([]byte, 4))
	assert.Equal(t, unix.EINVAL, err)
}

func TestOperationsAfterCloseReturnEBADF(t *testing.T) {
	e := New(1, false)
	require.NoError(t, e.Close())

	_, err := e.Read(make([]byte, 8))
	assert.Equal(t, unix.EBADF, err)

	_, err = e.Write(u64buf(1))
	assert.Equal(t, unix.EBADF, err)
}
