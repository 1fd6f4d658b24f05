// Package ring provides a fixed-capacity FIFO with counted overflow and
// underflow and timed waits for data or space.
//
// A full Write and an empty Read are not errors: they return false and bump
// OverflowCount or UnderflowCount. WaitForData and WaitForSpace park on a
// signal that every state change broadcasts, so waiters wake as soon as the
// condition can have changed.
package ring

import (
	"sync"
	"time"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/pkg/types"
)

// HookPosOverflow fires when Write finds the buffer full. Item is the
// rejected item.
var HookPosOverflow = &hooking.HookPos{Name: "Ring Overflow"}

// HookPosUnderflow fires when Read finds the buffer empty.
var HookPosUnderflow = &hooking.HookPos{Name: "Ring Underflow"}

// Buffer is a bounded circular queue. It is safe for concurrent use.
type Buffer[T any] struct {
	hooking.HookableBase

	mu    sync.Mutex
	items []T
	head  int // next slot to read
	tail  int // next slot to write
	count int

	overflow  int64
	underflow int64

	// changed is closed and replaced whenever count or closed changes.
	changed chan struct{}
	closed  bool
}

// New returns an empty buffer holding at most capacity items.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity <= 0 || capacity > types.MaxCapacity {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "ring: capacity %d", capacity)
	}
	return &Buffer[T]{
		items:   make([]T, capacity),
		changed: make(chan struct{}),
	}, nil
}

// lock takes mu and panics if the buffer is closed.
func (r *Buffer[T]) lock() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		panic(types.Disposed("ring"))
	}
}

// broadcast wakes every waiter. Callers hold mu.
func (r *Buffer[T]) broadcast() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Buffer[T]) push(item T) {
	r.items[r.tail] = item
	r.tail = (r.tail + 1) % len(r.items)
	r.count++
}

func (r *Buffer[T]) pop() T {
	var zero T
	item := r.items[r.head]
	r.items[r.head] = zero
	r.head = (r.head + 1) % len(r.items)
	r.count--
	return item
}

// Write appends item and reports whether there was room.
func (r *Buffer[T]) Write(item T) bool {
	r.lock()
	if r.count == len(r.items) {
		r.overflow++
		r.mu.Unlock()
		r.notify(HookPosOverflow, item)
		return false
	}
	r.push(item)
	r.broadcast()
	r.mu.Unlock()
	return true
}

// Read removes and returns the oldest item, or reports false when empty.
func (r *Buffer[T]) Read() (T, bool) {
	r.lock()
	if r.count == 0 {
		r.underflow++
		r.mu.Unlock()
		r.notify(HookPosUnderflow, nil)
		var zero T
		return zero, false
	}
	item := r.pop()
	r.broadcast()
	r.mu.Unlock()
	return item, true
}

// Peek returns the oldest item without removing it.
func (r *Buffer[T]) Peek() (T, bool) {
	r.lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		var zero T
		return zero, false
	}
	return r.items[r.head], true
}

// WriteMany appends as many of items as fit and returns how many were
// written. A short write is not counted as overflow.
func (r *Buffer[T]) WriteMany(items []T) int {
	r.lock()
	defer r.mu.Unlock()
	n := min(len(items), len(r.items)-r.count)
	for _, item := range items[:n] {
		r.push(item)
	}
	if n > 0 {
		r.broadcast()
	}
	return n
}

// ReadMany fills dst with up to len(dst) of the oldest items and returns how
// many were read. A short read is not counted as underflow.
func (r *Buffer[T]) ReadMany(dst []T) int {
	r.lock()
	defer r.mu.Unlock()
	n := min(len(dst), r.count)
	for i := range n {
		dst[i] = r.pop()
	}
	if n > 0 {
		r.broadcast()
	}
	return n
}

// WaitForData blocks until the buffer holds at least one item, the timeout
// elapses or the buffer is closed. A negative timeout waits forever and a
// zero timeout checks once. Waiters released by Close return false; calling
// it on a closed buffer panics.
func (r *Buffer[T]) WaitForData(timeout time.Duration) bool {
	return r.wait(timeout, func() bool { return r.count > 0 })
}

// WaitForSpace blocks until the buffer has at least one free slot, the
// timeout elapses or the buffer is closed.
func (r *Buffer[T]) WaitForSpace(timeout time.Duration) bool {
	return r.wait(timeout, func() bool { return r.count < len(r.items) })
}

// wait polls ready under mu each time the buffer signals a change.
func (r *Buffer[T]) wait(timeout time.Duration, ready func() bool) bool {
	r.lock()
	r.mu.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return false
		}
		if ready() {
			r.mu.Unlock()
			return true
		}
		if timeout == 0 {
			r.mu.Unlock()
			return false
		}
		changed := r.changed
		r.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return false
		}
	}
}

// ToArray returns the items oldest first.
func (r *Buffer[T]) ToArray() []T {
	r.lock()
	defer r.mu.Unlock()
	out := make([]T, r.count)
	for i := range out {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

// Count returns the number of buffered items.
func (r *Buffer[T]) Count() int {
	r.lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the maximum number of items.
func (r *Buffer[T]) Capacity() int {
	r.lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Available returns the number of free slots.
func (r *Buffer[T]) Available() int {
	r.lock()
	defer r.mu.Unlock()
	return len(r.items) - r.count
}

func (r *Buffer[T]) IsEmpty() bool { return r.Count() == 0 }

func (r *Buffer[T]) IsFull() bool { return r.Available() == 0 }

// OverflowCount returns how many single writes were rejected.
func (r *Buffer[T]) OverflowCount() int64 {
	r.lock()
	defer r.mu.Unlock()
	return r.overflow
}

// UnderflowCount returns how many single reads found the buffer empty.
func (r *Buffer[T]) UnderflowCount() int64 {
	r.lock()
	defer r.mu.Unlock()
	return r.underflow
}

// ResetCounters zeroes the overflow and underflow counters.
func (r *Buffer[T]) ResetCounters() {
	r.lock()
	r.overflow = 0
	r.underflow = 0
	r.mu.Unlock()
}

// Clear drops every item.
func (r *Buffer[T]) Clear() {
	r.lock()
	clear(r.items)
	r.head, r.tail, r.count = 0, 0, 0
	r.broadcast()
	r.mu.Unlock()
}

// Close drops every item and wakes all waiters, which return false. Close is
// idempotent.
func (r *Buffer[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	clear(r.items)
	r.head, r.tail, r.count = 0, 0, 0
	r.closed = true
	r.broadcast()
	return nil
}

func (r *Buffer[T]) notify(pos *hooking.HookPos, item any) {
	if r.NumHooks() == 0 {
		return
	}
	r.InvokeHook(hooking.HookCtx{Domain: r, Pos: pos, Item: item})
}
