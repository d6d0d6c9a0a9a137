// Package futex implements the futex word-comparison and wake-queue
// primitive spec.md §4.3 describes: "the wait atom compares guest
// memory at the supplied address to the expected value under a lock
// covering that word's hash bucket." Unlike the FileObject variants in
// package fsimpl, a futex has no descriptor — it's addressed purely by
// guest address, so this is process-(or, for shared futexes,
// host-)wide keyed state rather than something reached through the
// descriptor table.
package futex

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/Nashatyrev/shadow/pkg/sentry/kernel"
)

// bucketCount is the number of lock stripes guest addresses hash into,
// bounding lock contention the way Linux's futex hash table does,
// without needing one mutex per distinct address.
const bucketCount = 256

type waiter struct {
	tid    int32
	bitset uint32
	wake   chan struct{}
}

// Table is the per-process (or, if shared across processes, per-host)
// futex state: a fixed set of lock-striped wait queues keyed by guest
// address.
type Table struct {
	buckets [bucketCount]bucket
}

type bucket struct {
	mu      sync.Mutex
	waiters map[uintptr][]*waiter
}

// NewTable returns an empty futex table.
func NewTable() *Table {
	t := &Table{}
	for i := range t.buckets {
		t.buckets[i].waiters = make(map[uintptr][]*waiter)
	}
	return t
}

func (t *Table) bucketFor(addr uintptr) *bucket {
	return &t.buckets[addr%bucketCount]
}

// Wait implements FUTEX_WAIT/FUTEX_WAIT_BITSET: if the guest word at
// addr (read via mem) does not equal expected, returns EAGAIN
// immediately (spec.md §8 scenario 4). Otherwise registers tid as
// blocked on addr and returns a channel that closes when Wake selects
// this waiter; the handler layer is responsible for turning that into
// a Blocked(wait.FutexWord(...)) result and arranging re-entry — this
// function itself never blocks the calling goroutine.
func (t *Table) Wait(addr uintptr, expected uint32, bitset uint32, mem kernel.MemoryIO, tid int32) (<-chan struct{}, error) {
	var word [4]byte
	if _, err := mem.CopyIn(kernel.Addr(addr), word[:]); err != nil {
		return nil, err
	}
	current := uint32(word[0]) | uint32(word[1])<<8 | uint32(word[2])<<16 | uint32(word[3])<<24
	if current != expected {
		return nil, unix.EAGAIN
	}

	b := t.bucketFor(addr)
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &waiter{tid: tid, bitset: bitset, wake: make(chan struct{})}
	b.waiters[addr] = append(b.waiters[addr], w)
	return w.wake, nil
}

// Wake implements FUTEX_WAKE/FUTEX_WAKE_BITSET: wakes up to n waiters
// on addr whose bitset intersects mask, in FIFO registration order, and
// returns how many were woken.
func (t *Table) Wake(addr uintptr, n int, mask uint32) int {
	b := t.bucketFor(addr)
	b.mu.Lock()
	defer b.mu.Unlock()

	waiters := b.waiters[addr]
	var remaining []*waiter
	woken := 0
	for _, w := range waiters {
		if woken < n && w.bitset&mask != 0 {
			close(w.wake)
			woken++
			continue
		}
		remaining = append(remaining, w)
	}
	if len(remaining) == 0 {
		delete(b.waiters, addr)
	} else {
		b.waiters[addr] = remaining
	}
	return woken
}

// Requeue implements FUTEX_REQUEUE: first wakes up to wakeCount waiters
// on srcAddr, then moves up to count of the ones still queued there onto
// dstAddr's queue without waking them. Returns the total number of
// waiters woken plus requeued.
func (t *Table) Requeue(srcAddr, dstAddr uintptr, wakeCount, count int) int {
	woken := t.Wake(srcAddr, wakeCount, ^uint32(0))

	srcBucket := t.bucketFor(srcAddr)
	srcBucket.mu.Lock()
	toMove := srcBucket.waiters[srcAddr]
	if count < len(toMove) {
		toMove = toMove[:count]
	}
	remaining := srcBucket.waiters[srcAddr][len(toMove):]
	if len(remaining) == 0 {
		delete(srcBucket.waiters, srcAddr)
	} else {
		srcBucket.waiters[srcAddr] = remaining
	}
	srcBucket.mu.Unlock()

	if len(toMove) == 0 {
		return woken
	}

	dstBucket := t.bucketFor(dstAddr)
	dstBucket.mu.Lock()
	dstBucket.waiters[dstAddr] = append(dstBucket.waiters[dstAddr], toMove...)
	dstBucket.mu.Unlock()

	return woken + len(toMove)
}
