// Package mtbuf implements a single-producer / multiple-consumer circular
// buffer of fixed capacity.
//
// The buffer is composed of N slots. Each slot can be accessed independently
// with two permission levels: a WriteAccess grants exclusive access to the
// slot, while ReadAccess/ConsumeAccess grant shared read access. A
// ConsumeAccess additionally marks the slot as consumed on release, so the
// buffer can keep track of slots that contain data nobody consumed yet.
//
// Every blocking operation carries a deadline (1s unless configured via
// NewWithTimeout) and fails with ErrSlotAcqTimeout or ErrDataAvailableTimeout
// instead of blocking forever. Handles must be released on every path, e.g.
//
//	wa, overwrite, err := buff.WriteNext()
//	if err != nil {
//		return err
//	}
//	defer wa.Release()
//	*wa.Data = v
package mtbuf

import (
	"sync"
	"sync/atomic"
	"time"

	deque "github.com/gammazero/deque"
	"github.com/pkg/errors"
)

// DefaultLockTimeout applies to every blocking primitive unless the buffer
// was built with NewWithTimeout.
const DefaultLockTimeout = 1 * time.Second

// slotDescriptor carries the per-slot lock and bookkeeping flags.
// The flags are atomics so the advisory observers can read them without
// taking any lock.
type slotDescriptor struct {
	lock     *slotLock
	writing  atomic.Bool  // an unreleased WriteAccess references this slot
	nReading atomic.Int32 // live Read/ConsumeAccess handles on this slot
	dirty    atomic.Bool  // filled and not yet consumed
}

// Buffer is a fixed-capacity ring of slots holding values of type T.
// A single producer fills slots through WriteNext; any number of consumers
// drain them through ConsumeNextAvailable or observe them through
// ReadSlot/ReadNewestAvailable.
type Buffer[T any] struct {
	data []T
	desc []*slotDescriptor

	global *timedMutex // serialises cursor advances, queue resets and snapshots
	cursor int         // next slot WriteNext targets; guarded by global

	queueMu    sync.Mutex
	dirtySlots deque.Deque[int] // front = least recently filled
	available  chan struct{}    // closed and replaced under queueMu on each signal

	lockTimeout time.Duration
}

// New creates a buffer with the given number of slots and the default lock
// timeout. capacity must be >= 1 or New panics.
func New[T any](capacity int) *Buffer[T] {
	return NewWithTimeout[T](capacity, DefaultLockTimeout)
}

// NewWithTimeout creates a buffer with the given number of slots and lock
// timeout. A non-positive timeout falls back to DefaultLockTimeout.
func NewWithTimeout[T any](capacity int, lockTimeout time.Duration) *Buffer[T] {
	if capacity < 1 {
		panic("mtbuf: capacity must be >= 1")
	}
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	b := &Buffer[T]{
		data:        make([]T, capacity),
		desc:        make([]*slotDescriptor, capacity),
		global:      newTimedMutex(),
		available:   make(chan struct{}),
		lockTimeout: lockTimeout,
	}
	for i := range b.desc {
		b.desc[i] = &slotDescriptor{lock: newSlotLock()}
	}
	return b
}

// WriteNext grants exclusive write access to the slot under the write cursor
// and advances the cursor. The returned bool reports whether the slot still
// held data nobody consumed (an overwrite). Must be called from a single
// producer goroutine.
//
// On error the handle is nil and the buffer is unchanged.
func (b *Buffer[T]) WriteNext() (*WriteAccess[T], bool, error) {
	if !b.global.lockTimeout(b.lockTimeout) {
		return nil, false, errors.Wrap(ErrSlotAcqTimeout, "write cursor")
	}
	slot := b.cursor
	b.global.unlock()

	d := b.desc[slot]
	if !d.lock.lockExclusive(b.lockTimeout) {
		return nil, false, errors.Wrapf(ErrSlotAcqTimeout, "write slot %d", slot)
	}
	overwrite := d.dirty.Load()
	d.writing.Store(true)

	// Advance the cursor. The snapshot above cannot go stale in between:
	// only the producer moves the cursor.
	if !b.global.lockTimeout(b.lockTimeout) {
		d.writing.Store(false)
		d.lock.unlockExclusive()
		return nil, false, errors.Wrap(ErrSlotAcqTimeout, "write cursor")
	}
	b.cursor = (slot + 1) % len(b.data)
	b.global.unlock()

	return &WriteAccess[T]{Data: &b.data[slot], slot: slot, buf: b}, overwrite, nil
}

// ReadSlot grants shared read access to the given slot without touching its
// consumed state. It fails with ErrSlotAcqTimeout while a writer holds the
// slot.
func (b *Buffer[T]) ReadSlot(slot int) (*ReadAccess[T], error) {
	if slot < 0 || slot >= len(b.data) {
		return nil, errors.Errorf("slot %d out of range [0, %d)", slot, len(b.data))
	}
	d := b.desc[slot]
	if !d.lock.lockShared(b.lockTimeout) {
		return nil, errors.Wrapf(ErrSlotAcqTimeout, "read slot %d", slot)
	}
	d.nReading.Add(1)
	return &ReadAccess[T]{Data: &b.data[slot], slot: slot, buf: b}, nil
}

// ReadNewestAvailable grants shared read access to the most recently filled
// slot. The slot stays in the consumable queue: peek readers are out-of-band
// observers, not drainers. Waits until some slot is filled, up to the
// deadline.
func (b *Buffer[T]) ReadNewestAvailable() (*ReadAccess[T], error) {
	deadline := time.Now().Add(b.lockTimeout)
	b.queueMu.Lock()
	for b.dirtySlots.Len() == 0 {
		wait := b.available
		b.queueMu.Unlock()
		if !waitSignal(wait, deadline) {
			return nil, errors.Wrap(ErrDataAvailableTimeout, "read newest")
		}
		b.queueMu.Lock()
	}
	slot := b.dirtySlots.Back()
	b.queueMu.Unlock()

	d := b.desc[slot]
	if !d.lock.lockShared(b.lockTimeout) {
		return nil, errors.Wrapf(ErrSlotAcqTimeout, "read slot %d", slot)
	}
	d.nReading.Add(1)
	return &ReadAccess[T]{Data: &b.data[slot], slot: slot, buf: b}, nil
}

// ConsumeNextAvailable grants shared read access to the least recently filled
// slot and removes it from the consumable queue. The slot stays dirty until
// the handle is released. Waits until some slot is filled, up to the
// deadline.
//
// The front entry is popped before the slot lock attempt: shared locks do
// not exclude one another, so leaving the entry in place would hand the same
// slot to two concurrent consumers. If the lock attempt then times out (the
// producer is overwriting the slot), the entry goes back to the front and
// the availability signal is re-broadcast so other waiters can retry.
func (b *Buffer[T]) ConsumeNextAvailable() (*ConsumeAccess[T], error) {
	deadline := time.Now().Add(b.lockTimeout)
	b.queueMu.Lock()
	for b.dirtySlots.Len() == 0 {
		wait := b.available
		b.queueMu.Unlock()
		if !waitSignal(wait, deadline) {
			return nil, errors.Wrap(ErrDataAvailableTimeout, "consume next")
		}
		b.queueMu.Lock()
	}
	slot := b.dirtySlots.PopFront()
	b.queueMu.Unlock()

	d := b.desc[slot]
	if !d.lock.lockShared(b.lockTimeout) {
		b.queueMu.Lock()
		b.dirtySlots.PushFront(slot)
		b.signalAvailableLocked()
		b.queueMu.Unlock()
		return nil, errors.Wrapf(ErrSlotAcqTimeout, "consume slot %d", slot)
	}
	d.nReading.Add(1)
	return &ConsumeAccess[T]{Data: &b.data[slot], slot: slot, buf: b}, nil
}

// Clear discards all consumable slots and resets the write cursor to 0.
// It is meant to be called while no other goroutine is accessing the buffer;
// it still takes the buffer lock, but behaviour is undefined if a handle is
// live concurrently.
func (b *Buffer[T]) Clear() error {
	if !b.global.lockTimeout(b.lockTimeout) {
		return errors.Wrap(ErrSlotAcqTimeout, "clear")
	}
	defer b.global.unlock()

	b.queueMu.Lock()
	b.dirtySlots.Clear()
	b.queueMu.Unlock()

	// Reset the dirty flags too, so a later write to one of these slots
	// re-enters the queue.
	for _, d := range b.desc {
		d.dirty.Store(false)
	}
	b.cursor = 0
	return nil
}

// Size returns the number of slots.
func (b *Buffer[T]) Size() int { return len(b.data) }

// IsWritten reports whether the slot is currently held by a writer.
// Out-of-range slots report false.
func (b *Buffer[T]) IsWritten(slot int) bool {
	if slot < 0 || slot >= len(b.desc) {
		return false
	}
	return b.desc[slot].writing.Load()
}

// NumConcurrentRead returns the number of shared read accesses currently
// granted for the slot. Out-of-range slots report 0.
func (b *Buffer[T]) NumConcurrentRead(slot int) int {
	if slot < 0 || slot >= len(b.desc) {
		return 0
	}
	return int(b.desc[slot].nReading.Load())
}

// IsRead reports whether the slot is currently being read.
func (b *Buffer[T]) IsRead(slot int) bool {
	return b.NumConcurrentRead(slot) > 0
}

// NumConsumableSlots returns the number of slots filled and not yet claimed
// by a consumer.
func (b *Buffer[T]) NumConsumableSlots() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return b.dirtySlots.Len()
}

// signalAvailableLocked wakes every goroutine waiting for consumable data.
// Waiters re-check the queue, so waking all of them is safe; the losers go
// back to sleep. queueMu must be held.
func (b *Buffer[T]) signalAvailableLocked() {
	close(b.available)
	b.available = make(chan struct{})
}
