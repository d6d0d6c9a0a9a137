// Socket family handlers (spec.md §4.3 "Sockets"). Addresses are
// resolved against the simulated network topology, an external
// collaborator per spec.md §1; this package accepts already-resolved
// *socket.Socket peers from that resolver rather than performing DNS or
// routing itself. State-machine and buffer behavior is grounded on
// senior7515-gvisor's socket/hostinet/socket.go, adapted from
// "proxy to a host fd" to "model the state machine directly" (see
// package fsimpl/socket).
package linux

import (
	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
	"github.com/Nashatyrev/shadow/pkg/sentry/fsimpl/socket"
	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
	"github.com/Nashatyrev/shadow/pkg/sentry/syscall"
	"github.com/Nashatyrev/shadow/pkg/sentry/wait"
)

// SocketResolver looks up the listening *socket.Socket bound to an
// address, a capability supplied by the simulated network topology
// (external collaborator, spec.md §1). Handlers that need to resolve a
// peer (connect) take it as an explicit parameter rather than reaching
// a package-level global, keeping the handler itself free of hidden
// state.
type SocketResolver interface {
	Resolve(addr socket.Addr) (*socket.Socket, bool)
}

// Socket implements socket(2): allocates a new unconnected socket
// FileObject of the requested family/type, honoring the SOCK_NONBLOCK/
// SOCK_CLOEXEC bits newSocket masks out of the type before matching it.
func Socket(ctx *syscall.Context, family, sockType, protocol int32) (kernel.Reg, error) {
	s, err := newSocket(family, sockType)
	if err != nil {
		return 0, err
	}
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: s, Flags: descriptor.Flags{
		CloseOnExec: sockType&unix.SOCK_CLOEXEC != 0,
		NonBlocking: sockType&unix.SOCK_NONBLOCK != 0,
	}})
	return kernel.FromInt(int(h)), nil
}

func newSocket(family, sockType int32) (*socket.Socket, error) {
	switch sockType &^ unix.SOCK_NONBLOCK &^ unix.SOCK_CLOEXEC {
	case unix.SOCK_STREAM:
		return socket.NewStream(family), nil
	case unix.SOCK_DGRAM:
		return socket.NewDatagram(family), nil
	default:
		return nil, syscall.Errno(unix.EPROTONOSUPPORT)
	}
}

// socketAt resolves fd to a *socket.Socket or returns ENOTSOCK.
func socketAt(ctx *syscall.Context, fd int32) (*socket.Socket, error) {
	f, err := getFile(ctx, fd)
	if err != nil {
		return nil, err
	}
	s, ok := f.(*socket.Socket)
	if !ok {
		return nil, unix.ENOTSOCK
	}
	return s, nil
}

// socketDescriptorAt is socketAt plus the owning Descriptor, needed by
// handlers that must consult the per-descriptor NonBlocking flag before
// turning an EAGAIN into a Blocked result.
func socketDescriptorAt(ctx *syscall.Context, fd int32) (*descriptor.Descriptor, *socket.Socket, error) {
	d, err := descriptors(ctx).Get(descriptor.Handle(fd))
	if err != nil {
		return nil, nil, err
	}
	s, ok := d.File.(*socket.Socket)
	if !ok {
		return nil, nil, unix.ENOTSOCK
	}
	return d, s, nil
}

// decodeSockaddrIn parses a struct sockaddr_in read from guest memory.
func decodeSockaddrIn(buf []byte) socket.Addr {
	return socket.Addr{
		Port: uint16(buf[2])<<8 | uint16(buf[3]),
		IPv4: uint32(buf[4])<<24 | uint32(buf[5])<<16 | uint32(buf[6])<<8 | uint32(buf[7]),
	}
}

// Bind implements bind(2): decodes the sockaddr_in at addrAddr and
// binds it as the local address.
func Bind(ctx *syscall.Context, fd int32, addrAddr kernel.Addr, addrlen uint32) (kernel.Reg, error) {
	s, err := socketAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	buf, err := copyInBytes(ctx, addrAddr, int(addrlen))
	if err != nil || len(buf) < sizeofSockaddrIn {
		return 0, syscall.Errno(unix.EFAULT)
	}
	if err := s.Bind(decodeSockaddrIn(buf)); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// Listen implements listen(2).
func Listen(ctx *syscall.Context, fd int32, backlog int32) (kernel.Reg, error) {
	s, err := socketAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	if err := s.Listen(backlog); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// NewConnect builds the connect(2) handler body around a resolver
// capability supplied by the simulated network topology (spec.md §1
// external collaborator) — the resolver is a registry-construction-time
// dependency, not a per-call register argument, so it is closed over
// here rather than declared as a Handler parameter. The rendezvous
// itself is synchronous (spec.md §1 Non-goals: no wall-clock fidelity
// guarantee), matching a loopback-speed accept rather than blocking.
func NewConnect(resolver SocketResolver) func(ctx *syscall.Context, fd int32, addrAddr kernel.Addr, addrlen uint32) (kernel.Reg, error) {
	return func(ctx *syscall.Context, fd int32, addrAddr kernel.Addr, addrlen uint32) (kernel.Reg, error) {
		s, err := socketAt(ctx, fd)
		if err != nil {
			return 0, syscall.Errno(toErrno(err))
		}
		buf, err := copyInBytes(ctx, addrAddr, int(addrlen))
		if err != nil || len(buf) < sizeofSockaddrIn {
			return 0, syscall.Errno(unix.EFAULT)
		}
		addr := decodeSockaddrIn(buf)
		listener, ok := resolver.Resolve(addr)
		if !ok {
			return 0, syscall.Errno(unix.ECONNREFUSED)
		}
		if err := s.Connect(listener, s.LocalAddr()); err != nil {
			return 0, syscall.Errno(err.(unix.Errno))
		}
		return 0, nil
	}
}

// Accept implements accept(2)/accept4(2): returns a new descriptor for
// the oldest pending connection; on an empty backlog this is
// Failed(EAGAIN) for a non-blocking listening socket and
// Blocked(readiness) otherwise, the same O_NONBLOCK carve-out Read/Write
// apply (spec.md §4.3).
func Accept(ctx *syscall.Context, fd int32) (kernel.Reg, error) {
	d, s, err := socketDescriptorAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	conn, err := s.Accept()
	if err != nil {
		if err == unix.EAGAIN {
			if d.Flags.NonBlocking {
				return 0, syscall.Errno(unix.EAGAIN)
			}
			return 0, syscall.ErrBlocked(wait.Any(wait.FileReady(descriptor.Handle(fd), descriptor.ReadinessIn)))
		}
		return 0, syscall.Errno(err.(unix.Errno))
	}
	h := descriptors(ctx).Allocate(&descriptor.Descriptor{File: conn})
	return kernel.FromInt(int(h)), nil
}

// Send implements send(2)/write(2)-on-socket: EAGAIN buffers map to
// Failed(EAGAIN) on a non-blocking socket, Blocked(writable) otherwise.
func Send(ctx *syscall.Context, fd int32, bufAddr kernel.Addr, count uint64, flags int32) (kernel.Reg, error) {
	d, s, err := socketDescriptorAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	buf, err := copyInBytes(ctx, bufAddr, int(count))
	if err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	n, err := s.Send(buf, nil)
	if err != nil {
		if err == unix.EAGAIN {
			if d.Flags.NonBlocking {
				return 0, syscall.Errno(unix.EAGAIN)
			}
			return 0, syscall.ErrBlocked(wait.Any(wait.FileReady(descriptor.Handle(fd), descriptor.ReadinessOut)))
		}
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return kernel.FromInt(n), nil
}

// Recv implements recv(2)/read(2)-on-socket, with the same
// O_NONBLOCK-stays-EAGAIN carve-out as Send.
func Recv(ctx *syscall.Context, fd int32, bufAddr kernel.Addr, count uint64, flags int32) (kernel.Reg, error) {
	d, s, err := socketDescriptorAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	buf := make([]byte, count)
	n, err := s.Recv(buf)
	if err != nil {
		if err == unix.EAGAIN {
			if d.Flags.NonBlocking {
				return 0, syscall.Errno(unix.EAGAIN)
			}
			return 0, syscall.ErrBlocked(wait.Any(wait.FileReady(descriptor.Handle(fd), descriptor.ReadinessIn)))
		}
		return 0, syscall.Errno(err.(unix.Errno))
	}
	if _, err := copyOutBytes(ctx, bufAddr, buf[:n]); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return kernel.FromInt(n), nil
}

// Shutdown implements shutdown(2).
func Shutdown(ctx *syscall.Context, fd int32, how int32) (kernel.Reg, error) {
	s, err := socketAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	if err := s.Shutdown(how); err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return 0, nil
}

// sizeofSockaddrIn is sizeof(struct sockaddr_in): 2 bytes family, 2
// bytes port (network order), 4 bytes address, 8 bytes padding.
const sizeofSockaddrIn = 16

// encodeSockaddrIn renders addr as a struct sockaddr_in, matching the
// wire layout getsockname/getpeername must copy into guest memory.
func encodeSockaddrIn(addr socket.Addr) []byte {
	buf := make([]byte, sizeofSockaddrIn)
	buf[0] = unix.AF_INET
	buf[1] = 0
	buf[2] = byte(addr.Port >> 8)
	buf[3] = byte(addr.Port)
	buf[4] = byte(addr.IPv4 >> 24)
	buf[5] = byte(addr.IPv4 >> 16)
	buf[6] = byte(addr.IPv4 >> 8)
	buf[7] = byte(addr.IPv4)
	return buf
}

// GetSockName implements getsockname(2): copies the bound local
// address into guest memory at addrAddr as a sockaddr_in.
func GetSockName(ctx *syscall.Context, fd int32, addrAddr kernel.Addr, addrlenAddr kernel.Addr) (kernel.Reg, error) {
	s, err := socketAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	return copyOutSockaddr(ctx, s.LocalAddr(), addrAddr, addrlenAddr)
}

// GetPeerName implements getpeername(2).
func GetPeerName(ctx *syscall.Context, fd int32, addrAddr kernel.Addr, addrlenAddr kernel.Addr) (kernel.Reg, error) {
	s, err := socketAt(ctx, fd)
	if err != nil {
		return 0, syscall.Errno(toErrno(err))
	}
	addr, err := s.PeerAddr()
	if err != nil {
		return 0, syscall.Errno(err.(unix.Errno))
	}
	return copyOutSockaddr(ctx, addr, addrAddr, addrlenAddr)
}

func copyOutSockaddr(ctx *syscall.Context, addr socket.Addr, addrAddr, addrlenAddr kernel.Addr) (kernel.Reg, error) {
	encoded := encodeSockaddrIn(addr)
	if _, err := copyOutBytes(ctx, addrAddr, encoded); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	lenBuf := []byte{byte(sizeofSockaddrIn), 0, 0, 0}
	if _, err := copyOutBytes(ctx, addrlenAddr, lenBuf); err != nil {
		return 0, syscall.Errno(unix.EFAULT)
	}
	return 0, nil
}

func toErrno(err error) unix.Errno {
	if e, ok := err.(unix.Errno); ok {
		return e
	}
	return unix.EBADF
}
