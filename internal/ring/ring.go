// Package ring implements a lock-free single-producer/single-consumer
// ring buffer. Capacity must be a power of two. The payload type should
// be a small, trivially-copyable struct: it is copied by value into and
// out of the backing array on every push/pop.
package ring

import "sync/atomic"

// cacheLinePad occupies the remainder of a 64-byte cache line after a
// uint64 field, keeping the producer's tail index and the consumer's
// head index on separate cache lines to avoid false sharing.
type cacheLinePad [56]byte

// SPSC is a lock-free single-producer/single-consumer ring buffer over T.
type SPSC[T any] struct {
	head uint64
	_    cacheLinePad
	tail uint64
	_    cacheLinePad

	mask uint64
	buf  []T
}

// New constructs a ring buffer with the given capacity, which must be a
// power of two, so index wrapping is a mask. It panics otherwise.
func New[T any](capacity int) *SPSC[T] {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("ring: capacity must be a power of two")
	}
	return &SPSC[T]{
		mask: uint64(capacity - 1),
		buf:  make([]T, capacity),
	}
}

// TryPush attempts to enqueue item. Returns false if the ring is full.
// Safe to call from exactly one producer goroutine.
func (r *SPSC[T]) TryPush(item T) bool {
	tail := atomic.LoadUint64(&r.tail)
	nextTail := (tail + 1) & r.mask
	if nextTail == atomic.LoadUint64(&r.head) {
		return false
	}
	r.buf[tail] = item
	atomic.StoreUint64(&r.tail, nextTail)
	return true
}

// TryPop attempts to dequeue an item. Returns the zero value and false
// if the ring is empty. Safe to call from exactly one consumer goroutine.
func (r *SPSC[T]) TryPop() (T, bool) {
	head := atomic.LoadUint64(&r.head)
	if head == atomic.LoadUint64(&r.tail) {
		var zero T
		return zero, false
	}
	item := r.buf[head]
	atomic.StoreUint64(&r.head, (head+1)&r.mask)
	return item, true
}

// Size returns an approximate count of queued items. May be stale when
// read concurrently with push/pop.
func (r *SPSC[T]) Size() int {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	return int((tail - head) & r.mask)
}

func (r *SPSC[T]) Empty() bool {
	return atomic.LoadUint64(&r.head) == atomic.LoadUint64(&r.tail)
}

func (r *SPSC[T]) Full() bool {
	next := (atomic.LoadUint64(&r.tail) + 1) & r.mask
	return next == atomic.LoadUint64(&r.head)
}

// Capacity returns the number of usable slots (one less than the
// backing array's length, since a full ring is distinguished from an
// empty one by always leaving one slot unused).
func (r *SPSC[T]) Capacity() int {
	return len(r.buf) - 1
}
