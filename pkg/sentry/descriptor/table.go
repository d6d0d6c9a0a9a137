package descriptor

import (
	"math"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// Handle is a small non-negative integer descriptor handle, as returned by
// open/socket/pipe/etc. and accepted by every syscall that takes an fd.
type Handle int32

// EBADF is returned whenever a handle isn't currently allocated, matching
// Linux's errno for any operation on an absent descriptor.
var EBADF = unix.EBADF

// maxHandle bounds allocation to the signed-int range a Reg can carry back
// to the guest as an fd (spec.md §4.2, "Bounds").
const maxHandle = Handle(math.MaxInt32)

// Descriptor owns a per-descriptor flag set and a shared reference to a
// FileObject. Multiple Descriptors (across dup/dup2/dup3/fork) may point
// at the same FileObject; the FileObject itself decides when it is
// actually torn down (refcounting is its concern, not the table's).
type Descriptor struct {
	File  FileObject
	Flags Flags
}

// Table is the per-process mapping from handle to Descriptor (spec.md §3
// "DescriptorTable"). The zero value is not usable; use NewTable.
type Table struct {
	mu      sync.RWMutex
	entries map[Handle]*Descriptor
}

// NewTable returns an empty descriptor table.
func NewTable() *Table {
	return &Table{entries: make(map[Handle]*Descriptor)}
}

// lowestFree returns the smallest handle >= from that is not currently
// allocated. Callers must hold t.mu.
func (t *Table) lowestFree(from Handle) Handle {
	h := from
	for {
		if _, ok := t.entries[h]; !ok {
			return h
		}
		h++
	}
}

// Allocate inserts desc at the lowest free handle and returns it,
// matching the POSIX "lowest available descriptor" rule (spec.md §4.2).
func (t *Table) Allocate(desc *Descriptor) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.lowestFree(0)
	t.entries[h] = desc
	return h
}

// AllocateFrom is Allocate but starting the search at a given handle,
// used by fcntl(F_DUPFD, hint) and dup3-style hinted allocation.
func (t *Table) AllocateFrom(desc *Descriptor, hint Handle) Handle {
	if hint < 0 {
		hint = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.lowestFree(hint)
	t.entries[h] = desc
	return h
}

// Get returns the descriptor at h, or EBADF if h is out of bounds or not
// currently allocated (spec.md §3 DescriptorTable invariant).
func (t *Table) Get(h Handle) (*Descriptor, error) {
	if h < 0 || h > maxHandle {
		return nil, EBADF
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.entries[h]
	if !ok {
		return nil, EBADF
	}
	return d, nil
}

// Replace installs desc at h, returning the previous occupant if any
// (without closing it — the caller decides whether to close the
// displaced FileObject, matching dup2's "close old target first" only
// when old != new).
func (t *Table) Replace(h Handle, desc *Descriptor) (*Descriptor, error) {
	if h < 0 || h > maxHandle {
		return nil, EBADF
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.entries[h]
	t.entries[h] = desc
	return prev, nil
}

// Remove deletes the entry at h and returns what was there, or EBADF if
// nothing was allocated at h.
func (t *Table) Remove(h Handle) (*Descriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.entries[h]
	if !ok {
		return nil, EBADF
	}
	delete(t.entries, h)
	return d, nil
}

// Close removes h and closes its FileObject, per the usual close(2)
// contract. A second close on the same handle returns EBADF (spec.md §8
// scenario 1).
func (t *Table) Close(h Handle) error {
	d, err := t.Remove(h)
	if err != nil {
		return err
	}
	return d.File.Close()
}

// DupTo duplicates src onto dst (dup2/dup3 semantics): if dst == src this
// is a no-op that still validates src exists; otherwise any descriptor
// previously at dst is closed (ignoring its error, per Linux's dup2,
// which silently drops the old fd's close() error) and replaced.
// CloseOnExec does not carry over to the new handle, matching dup2's
// real behavior, but NonBlocking does: it is a file-status flag that
// Linux shares across the open file description dup duplicates, not a
// per-fd-table flag like FD_CLOEXEC.
func (t *Table) DupTo(src, dst Handle) error {
	sd, err := t.Get(src)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	nd := &Descriptor{File: sd.File, Flags: Flags{NonBlocking: sd.Flags.NonBlocking}}
	prev, err := t.Replace(dst, nd)
	if err != nil {
		return err
	}
	if prev != nil {
		_ = prev.File.Close()
	}
	return nil
}

// Dup allocates a new handle pointing at the same FileObject as src,
// starting the search at hint (dup()/fcntl F_DUPFD semantics). Same
// CloseOnExec-resets/NonBlocking-carries split as DupTo.
func (t *Table) Dup(src Handle, hint Handle) (Handle, error) {
	sd, err := t.Get(src)
	if err != nil {
		return 0, err
	}
	nd := &Descriptor{File: sd.File, Flags: Flags{NonBlocking: sd.Flags.NonBlocking}}
	return t.AllocateFrom(nd, hint), nil
}

// CloseOnExecSweep closes and removes every descriptor flagged
// CloseOnExec, as execve must (spec.md §3, Descriptor lifecycle).
// Errors from individual closes are aggregated rather than short
// circuiting, since POSIX requires every close-on-exec descriptor to be
// torn down regardless of an earlier failure.
func (t *Table) CloseOnExecSweep() error {
	t.mu.Lock()
	var toClose []*Descriptor
	for h, d := range t.entries {
		if d.Flags.CloseOnExec {
			toClose = append(toClose, d)
			delete(t.entries, h)
		}
	}
	t.mu.Unlock()

	var err error
	for _, d := range toClose {
		err = multierr.Append(err, d.File.Close())
	}
	return err
}

// CloseAll tears down every descriptor in the table, e.g. on process
// exit. Errors are aggregated the same way as CloseOnExecSweep.
func (t *Table) CloseAll() error {
	t.mu.Lock()
	all := t.entries
	t.entries = make(map[Handle]*Descriptor)
	t.mu.Unlock()

	var err error
	for _, d := range all {
		err = multierr.Append(err, d.File.Close())
	}
	return err
}

// Fork returns a new Table holding Descriptors that reference the same
// FileObjects as t (FileObjects are refcounted/shared across fork, as
// POSIX requires), but whose per-descriptor Flags are independent copies
// so that the child can change O_CLOEXEC on its copy without affecting
// the parent. The shell of entries is deep-copied (not the FileObjects
// themselves) via deepcopy, mirroring clone()'s "new table, shared
// files" semantics.
func (t *Table) Fork() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	nt := NewTable()
	for h, d := range t.entries {
		flagsCopy := copyFlags(d.Flags)
		nt.entries[h] = &Descriptor{File: d.File, Flags: flagsCopy}
	}
	return nt
}
