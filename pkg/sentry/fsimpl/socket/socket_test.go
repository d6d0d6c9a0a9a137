package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

func TestBindThenListenThenConnectThenAccept(t *testing.T) {
	listener := NewStream(unix.AF_INET)
	require.NoError(t, listener.Bind(Addr{IPv4: 0x7f000001, Port: 8080}))
	require.NoError(t, listener.Listen(1))

	client := NewStream(unix.AF_INET)
	require.NoError(t, client.Connect(listener, Addr{IPv4: 0x7f000001, Port: 12345}))
	assert.Equal(t, StateConnected, client.State())

	accepted, err := listener.Accept()
	require.NoError(t, err)
	assert.Equal(t, StateConnected, accepted.State())
}

func TestAcceptOnEmptyBacklogIsEAGAIN(t *testing.T) {
	listener := NewStream(unix.AF_INET)
	require.NoError(t, listener.Bind(Addr{}))
	require.NoError(t, listener.Listen(1))

	_, err := listener.Accept()
	assert.Equal(t, unix.EAGAIN, err)
}

func TestConnectBeyondBacklogIsECONNREFUSED(t *testing.T) {
	listener := NewStream(unix.AF_INET)
	require.NoError(t, listener.Bind(Addr{}))
	require.NoError(t, listener.Listen(1))

	c1 := NewStream(unix.AF_INET)
	require.NoError(t, c1.Connect(listener, Addr{}))

	c2 := NewStream(unix.AF_INET)
	err := c2.Connect(listener, Addr{})
	assert.Equal(t, unix.ECONNREFUSED, err)
}

func TestSendRecvRendezvousBetweenPeers(t *testing.T) {
	listener := NewStream(unix.AF_UNIX)
	require.NoError(t, listener.Bind(Addr{Path: "/tmp/s"}))
	require.NoError(t, listener.Listen(1))

	client := NewStream(unix.AF_UNIX)
	require.NoError(t, client.Connect(listener, Addr{}))
	server, err := listener.Accept()
	require.NoError(t, err)

	n, err := client.Send([]byte("hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = server.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestRecvOnEmptyBufferIsEAGAINWhenNotShutdown(t *testing.T) {
	s := NewStream(unix.AF_INET)
	_, err := s.Recv(make([]byte, 4))
	assert.Equal(t, unix.EAGAIN, err)
}

func TestSendAfterShutdownWrIsEPIPE(t *testing.T) {
	s := NewStream(unix.AF_INET)
	require.NoError(t, s.Shutdown(unix.SHUT_WR))
	_, err := s.Send([]byte("x"), nil)
	assert.Equal(t, unix.EPIPE, err)
}

func TestSendWithoutConnectionIsENOTCONN(t *testing.T) {
	s := NewStream(unix.AF_INET)
	_, err := s.Send([]byte("x"), nil)
	assert.Equal(t, unix.ENOTCONN, err)
}

func TestReadinessReflectsConnectionAndBuffer(t *testing.T) {
	listener := NewStream(unix.AF_INET)
	require.NoError(t, listener.Bind(Addr{}))
	require.NoError(t, listener.Listen(1))

	client := NewStream(unix.AF_INET)
	assert.Equal(t, descriptor.Readiness(0), client.Readiness(descriptor.ReadinessOut))

	require.NoError(t, client.Connect(listener, Addr{}))
	assert.Equal(t, descriptor.ReadinessOut, client.Readiness(descriptor.ReadinessOut))

	server, err := listener.Accept()
	require.NoError(t, err)
	_, err = client.Send([]byte("x"), nil)
	require.NoError(t, err)
	assert.Equal(t, descriptor.ReadinessIn, server.Readiness(descriptor.ReadinessIn))
}

func TestListenerReadinessReflectsPendingBacklog(t *testing.T) {
	listener := NewStream(unix.AF_INET)
	require.NoError(t, listener.Bind(Addr{}))
	require.NoError(t, listener.Listen(1))
	assert.Equal(t, descriptor.Readiness(0), listener.Readiness(descriptor.ReadinessIn))

	client := NewStream(unix.AF_INET)
	require.NoError(t, client.Connect(listener, Addr{}))
	assert.Equal(t, descriptor.ReadinessIn, listener.Readiness(descriptor.ReadinessIn))
}

func TestDatagramSendToExplicitDestination(t *testing.T) {
	a := NewDatagram(unix.AF_INET)
	b := NewDatagram(unix.AF_INET)

	n, err := a.Send([]byte("dgram"), b)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = b.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, "dgram", string(buf[:n]))
}

func TestListenOnDatagramSocketIsEOPNOTSUPP(t *testing.T) {
	s := NewDatagram(unix.AF_INET)
	require.NoError(t, s.Bind(Addr{}))
	err := s.Listen(1)
	assert.Equal(t, unix.EOPNOTSUPP, err)
}
