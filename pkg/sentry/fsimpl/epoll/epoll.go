// Package epoll implements the EpollSet FileObject variant (spec.md §3,
// §4.3): a watch set of (descriptor, event mask, user data) triples and
// a FIFO ready-list, modeled on the wrapper style of
// other_examples' canonical/snapd osutil/epoll.go and
// trpc-group/tnet's poller_epoll.go, generalized from "thin wrapper
// around the real epoll(7) syscall" to "model the ready-list directly"
// since this engine virtualizes readiness rather than delegating to the
// host kernel.
package epoll

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/descriptor"
)

// Event is one ready entry returned by Poll: the watched handle, the
// subset of its requested mask that is currently satisfied, and the
// opaque user data epoll_ctl associated with it (epoll_event.data).
type Event struct {
	Handle   descriptor.Handle
	Ready    descriptor.Readiness
	UserData uint64
}

// watch is one registered interest.
type watch struct {
	file     descriptor.FileObject
	mask     descriptor.Readiness
	userData uint64

	// readySeq is the order in which this watch was last observed
	// transitioning to ready; 0 means "not currently ready." It resets
	// to 0 whenever a Poll call observes the watch as not ready, so the
	// next transition gets a fresh, later sequence number — approximating
	// spec.md §4.3's "FIFO within a single readiness step" without a
	// real asynchronous notification source.
	readySeq uint64
}

// EpollSet is the FileObject behind an epoll_create(2) descriptor.
type EpollSet struct {
	mu      sync.Mutex
	watches map[descriptor.Handle]*watch
	seq     uint64
}

// New returns an empty EpollSet.
func New() *EpollSet {
	return &EpollSet{watches: make(map[descriptor.Handle]*watch)}
}

func (e *EpollSet) Kind() string { return "epoll" }

// Add registers h with the given interest mask and user data
// (EPOLL_CTL_ADD). Re-adding an already-watched handle is EEXIST, per
// epoll_ctl(2).
func (e *EpollSet) Add(h descriptor.Handle, file descriptor.FileObject, mask descriptor.Readiness, userData uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watches[h]; ok {
		return unix.EEXIST
	}
	e.watches[h] = &watch{file: file, mask: mask, userData: userData}
	return nil
}

// Mod changes the interest mask/user data for an already-watched handle
// (EPOLL_CTL_MOD). Returns ENOENT if h isn't currently watched.
func (e *EpollSet) Mod(h descriptor.Handle, mask descriptor.Readiness, userData uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.watches[h]
	if !ok {
		return unix.ENOENT
	}
	w.mask = mask
	w.userData = userData
	return nil
}

// Del removes h from the watch set (EPOLL_CTL_DEL). Returns ENOENT if h
// wasn't being watched.
func (e *EpollSet) Del(h descriptor.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.watches[h]; !ok {
		return unix.ENOENT
	}
	delete(e.watches, h)
	return nil
}

// Poll evaluates every watch's current readiness and returns up to
// maxEvents ready entries ordered by the sequence in which they most
// recently transitioned to ready (spec.md §4.3: "FIFO within a single
// readiness step"). It never blocks; the caller (the epoll_wait/pwait
// handler) decides whether to return Ok([]) or Blocked based on the
// emptiness of the result and the descriptor's blocking mode.
func (e *EpollSet) Poll(maxEvents int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	type candidate struct {
		h     descriptor.Handle
		w     *watch
		ready descriptor.Readiness
	}
	var candidates []candidate
	for h, w := range e.watches {
		ready := w.file.Readiness(w.mask)
		if ready == 0 {
			w.readySeq = 0
			continue
		}
		if w.readySeq == 0 {
			e.seq++
			w.readySeq = e.seq
		}
		candidates = append(candidates, candidate{h: h, w: w, ready: ready})
	}

	// Stable FIFO order by the sequence each watch was assigned at its
	// most recent not-ready -> ready transition.
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].w.readySeq > candidates[j].w.readySeq {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}

	if maxEvents > 0 && len(candidates) > maxEvents {
		candidates = candidates[:maxEvents]
	}

	events := make([]Event, len(candidates))
	for i, c := range candidates {
		events[i] = Event{Handle: c.h, Ready: c.ready, UserData: c.w.userData}
	}
	return events
}

// WatchedHandle pairs a watched descriptor with its interest mask, a
// snapshot used by the epoll_wait/pwait handler to build a Blocked
// condition spanning every watch when Poll returns nothing yet.
type WatchedHandle struct {
	Handle descriptor.Handle
	Mask   descriptor.Readiness
}

// WatchList snapshots the current watch set.
func (e *EpollSet) WatchList() []WatchedHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]WatchedHandle, 0, len(e.watches))
	for h, w := range e.watches {
		out = append(out, WatchedHandle{Handle: h, Mask: w.mask})
	}
	return out
}

func (e *EpollSet) Read([]byte) (int, error)  { return 0, unix.EINVAL }
func (e *EpollSet) Write([]byte) (int, error) { return 0, unix.EINVAL }

// Readiness for an epoll fd itself reports ReadinessIn whenever at
// least one watched descriptor is currently ready (epoll fds are
// themselves nestable inside another epoll set).
func (e *EpollSet) Readiness(mask descriptor.Readiness) descriptor.Readiness {
	if mask&descriptor.ReadinessIn == 0 {
		return 0
	}
	if len(e.Poll(1)) > 0 {
		return descriptor.ReadinessIn
	}
	return 0
}

func (e *EpollSet) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watches = nil
	return nil
}

func (e *EpollSet) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, unix.ENOTTY }

func (e *EpollSet) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, unix.EINVAL }
