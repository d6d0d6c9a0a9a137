// Package regular implements the "regular file stand-in" FileObject
// variant (spec.md §3, §4.3): an in-memory byte buffer with an offset,
// modeled on the inode/fileDescription split in httese-gvisor's
// pkg/sentry/fsimpl/host/host.go — inode there is the shared,
// refcounted identity (here: *inode, the buffer); fileDescription is
// the per-open-instance state (here: *File, which owns the offset).
// Descriptors produced by the table's dup share one *File and therefore
// one offset; File.Dup makes a second *File over the same *inode whose
// offset moves independently of the original's.
package regular

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

// inode is the shared identity: content and its mutex. A *File and the
// copies File.Dup makes of it reference the same inode; New always
// creates a fresh one.
type inode struct {
	mu   sync.Mutex
	data []byte
}

// File is the FileObject behind a regular-file descriptor: one open
// instance's offset into a shared inode.
type File struct {
	ino    *inode
	offset int64
	flags  int32 // O_APPEND, O_RDONLY/O_WRONLY/O_RDWR subset
}

// New creates a fresh, empty in-memory file.
func New(flags int32) *File {
	return &File{ino: &inode{}, flags: flags}
}

// Dup returns a new *File sharing this one's inode and starting at a
// copy of its current offset. Seeks and reads on the copy do not move
// the original's offset, which is what Pread64 relies on.
func (f *File) Dup() *File {
	return &File{ino: f.ino, offset: f.offset, flags: f.flags}
}

func (f *File) Kind() string { return "regular" }

func (f *File) Read(p []byte) (int, error) {
	if f.flags&unix.O_ACCMODE == unix.O_WRONLY {
		return 0, unix.EBADF
	}
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	if f.offset >= int64(len(f.ino.data)) {
		return 0, nil // EOF
	}
	n := copy(p, f.ino.data[f.offset:])
	f.offset += int64(n)
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	if f.flags&unix.O_ACCMODE == unix.O_RDONLY {
		return 0, unix.EBADF
	}
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	off := f.offset
	if f.flags&unix.O_APPEND != 0 {
		off = int64(len(f.ino.data))
	}
	end := off + int64(len(p))
	if end > int64(len(f.ino.data)) {
		grown := make([]byte, end)
		copy(grown, f.ino.data)
		f.ino.data = grown
	}
	copy(f.ino.data[off:], p)
	f.offset = end
	return len(p), nil
}

// Seek implements lseek(2)'s SEEK_SET/CUR/END whence values.
func (f *File) Seek(offset int64, whence int32) (int64, error) {
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	var base int64
	switch whence {
	case unix.SEEK_SET:
		base = 0
	case unix.SEEK_CUR:
		base = f.offset
	case unix.SEEK_END:
		base = int64(len(f.ino.data))
	default:
		return 0, unix.EINVAL
	}
	newOff := base + offset
	if newOff < 0 {
		return 0, unix.EINVAL
	}
	f.offset = newOff
	return newOff, nil
}

// Truncate resizes the shared inode's content.
func (f *File) Truncate(size int64) error {
	if size < 0 {
		return unix.EINVAL
	}
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	if size <= int64(len(f.ino.data)) {
		f.ino.data = f.ino.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, f.ino.data)
	f.ino.data = grown
	return nil
}

// Size reports the current content length, for fstat-style handlers.
func (f *File) Size() int64 {
	f.ino.mu.Lock()
	defer f.ino.mu.Unlock()
	return int64(len(f.ino.data))
}

// Readiness: regular files are always readable/writable in Linux (no
// blocking I/O model for them), so every requested bit is satisfied
// immediately.
func (f *File) Readiness(mask descriptor.Readiness) descriptor.Readiness { return mask }

func (f *File) Close() error { return nil }

func (f *File) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, unix.ENOTTY }

func (f *File) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }

var _ descriptor.FileObject = (*File)(nil)
