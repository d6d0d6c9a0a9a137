package timerfd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestDisarmedReadIsEAGAIN(t *testing.T) {
	tf := New(&fakeClock{now: time.Unix(0, 0)})
	_, err := tf.Read(make([]byte, 8))
	assert.Equal(t, unix.EAGAIN, err)
}

func TestOneShotExpiresAfterDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tf := New(clock)
	tf.Settime(clock.now.Add(time.Second), 0)

	_, err := tf.Read(make([]byte, 8))
	assert.Equal(t, unix.EAGAIN, err, "not yet due")

	clock.now = clock.now.Add(2 * time.Second)
	buf := make([]byte, 8)
	n, err := tf.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	armed, _, _ := tf.Gettime()
	assert.False(t, armed, "one-shot disarms after firing")
}

func TestPeriodicTimerAccumulatesMissedTicks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tf := New(clock)
	tf.Settime(clock.now.Add(time.Second), time.Second)

	clock.now = clock.now.Add(3500 * time.Millisecond)
	buf := make([]byte, 8)
	n, err := tf.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	armed, _, interval := tf.Gettime()
	assert.True(t, armed)
	assert.Equal(t, time.Second, interval)
}

func TestSettimeZeroDisarms(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tf := New(clock)
	tf.Settime(clock.now.Add(time.Second), 0)
	tf.Settime(time.Time{}, 0)

	armed, _, _ := tf.Gettime()
	assert.False(t, armed)
}

func TestReadAfterCloseIsEBADF(t *testing.T) {
	tf := New(&fakeClock{now: time.Unix(0, 0)})
	require.NoError(t, tf.Close())
	_, err := tf.Read(make([]byte, 8))
	assert.Equal(t, unix.EBADF, err)
}
