// Package pipe implements the Pipe FileObject variant (spec.md §3): a
// unidirectional byte buffer shared between a read end and a write end,
// modeled directly on the inode/fileDescription split in
// httese-gvisor's pkg/sentry/fsimpl/host/host.go — here the shared
// *buffer plays inode, and each end is its own fileDescription-like
// wrapper so that closing one end doesn't affect the other.
package pipe

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

// defaultCapacity matches Linux's default pipe buffer size (one page
// times 16, i.e. 64 KiB), good enough for a simulator that doesn't model
// page-granular backing.
const defaultCapacity = 64 * 1024

// buffer is the shared state behind both ends of a pipe.
type buffer struct {
	mu   sync.Mutex
	data []byte
	cap  int

	readClosed  bool
	writeClosed bool
}

// New creates a connected pair of FileObjects: (readEnd, writeEnd).
func New() (descriptor.FileObject, descriptor.FileObject) {
	b := &buffer{cap: defaultCapacity}
	return &readEnd{b: b}, &writeEnd{b: b}
}

type readEnd struct{ b *buffer }

func (r *readEnd) Kind() string { return "pipe:r" }

func (r *readEnd) Read(p []byte) (int, error) {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		if b.writeClosed {
			return 0, nil // EOF
		}
		return 0, unix.EAGAIN
	}
	n := copy(p, b.data)
	b.data = b.data[n:]
	return n, nil
}

func (r *readEnd) Write([]byte) (int, error) { return 0, unix.EBADF }

func (r *readEnd) Readiness(mask descriptor.Readiness) descriptor.Readiness {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()
	var ready descriptor.Readiness
	if mask&descriptor.ReadinessIn != 0 && (len(b.data) > 0 || b.writeClosed) {
		ready |= descriptor.ReadinessIn
	}
	if mask&descriptor.ReadinessHup != 0 && b.writeClosed {
		ready |= descriptor.ReadinessHup
	}
	return ready
}

func (r *readEnd) Close() error {
	b := r.b
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readClosed = true
	return nil
}

func (r *readEnd) Ioctl(req uint, arg uintptr) (uintptr, error) {
	if req == unix.FIONREAD {
		b := r.b
		b.mu.Lock()
		defer b.mu.Unlock()
		return uintptr(len(b.data)), nil
	}
	return 0, unix.ENOTTY
}

func (r *readEnd) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }

type writeEnd struct{ b *buffer }

func (w *writeEnd) Kind() string { return "pipe:w" }

func (w *writeEnd) Read([]byte) (int, error) { return 0, unix.EBADF }

func (w *writeEnd) Write(p []byte) (int, error) {
	b := w.b
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readClosed {
		return 0, unix.EPIPE
	}
	room := b.cap - len(b.data)
	if room <= 0 {
		return 0, unix.EAGAIN
	}
	n := len(p)
	if n > room {
		n = room
	}
	b.data = append(b.data, p[:n]...)
	return n, nil
}

func (w *writeEnd) Readiness(mask descriptor.Readiness) descriptor.Readiness {
	b := w.b
	b.mu.Lock()
	defer b.mu.Unlock()
	var ready descriptor.Readiness
	if mask&descriptor.ReadinessOut != 0 && (len(b.data) < b.cap || b.readClosed) {
		ready |= descriptor.ReadinessOut
	}
	if mask&descriptor.ReadinessErr != 0 && b.readClosed {
		ready |= descriptor.ReadinessErr
	}
	return ready
}

func (w *writeEnd) Close() error {
	b := w.b
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeClosed = true
	return nil
}

func (w *writeEnd) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, unix.ENOTTY }

func (w *writeEnd) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }
