// Package dynarray provides a growable array with change notifications.
//
// Capacity grows by doubling from a minimum of 4 up to types.MaxCapacity.
// Every method holds the array's lock for the duration of the call only;
// iterating with All while another goroutine mutates the array sees a
// mixture of states.
package dynarray

import (
	"iter"
	"slices"
	"sync"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/pkg/types"
)

const minGrow = 4

// HookPosCapacityChanged fires after the backing storage is resized. Item is
// the old capacity and Detail the new one.
var HookPosCapacityChanged = &hooking.HookPos{Name: "Array Capacity Changed"}

// HookPosCountChanged fires after a call changes the element count. Item is
// the old count and Detail the new one.
var HookPosCountChanged = &hooking.HookPos{Name: "Array Count Changed"}

// Array is a growable vector of comparable elements.
type Array[T comparable] struct {
	hooking.HookableBase

	mu     sync.Mutex
	items  []T // len(items) is the capacity
	count  int
	closed bool
}

// change is what a mutation did, reported to hooks after unlock.
type change struct {
	oldCap, newCap     int
	oldCount, newCount int
}

// New returns an empty array with the given initial capacity.
func New[T comparable](capacity int) (*Array[T], error) {
	if capacity < 0 || capacity > types.MaxCapacity {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "dynarray: capacity %d", capacity)
	}
	return &Array[T]{items: make([]T, capacity)}, nil
}

// From returns an array holding a copy of items.
func From[T comparable](items []T) *Array[T] {
	a := &Array[T]{items: make([]T, len(items)), count: len(items)}
	copy(a.items, items)
	return a
}

func (a *Array[T]) lock() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return types.Disposed("dynarray")
	}
	return nil
}

func (a *Array[T]) mustLock() {
	if err := a.lock(); err != nil {
		panic(err)
	}
}

// begin locks and snapshots the sizes a mutation may change.
func (a *Array[T]) begin() (change, error) {
	if err := a.lock(); err != nil {
		return change{}, err
	}
	return change{oldCap: len(a.items), oldCount: a.count}, nil
}

// end unlocks and fires whichever notifications apply.
func (a *Array[T]) end(c change) {
	c.newCap, c.newCount = len(a.items), a.count
	a.mu.Unlock()

	if a.NumHooks() == 0 {
		return
	}
	if c.oldCap != c.newCap {
		a.InvokeHook(hooking.HookCtx{Domain: a, Pos: HookPosCapacityChanged, Item: c.oldCap, Detail: c.newCap})
	}
	if c.oldCount != c.newCount {
		a.InvokeHook(hooking.HookCtx{Domain: a, Pos: HookPosCountChanged, Item: c.oldCount, Detail: c.newCount})
	}
}

// resize moves the live elements into storage of exactly n slots.
func (a *Array[T]) resize(n int) {
	items := make([]T, n)
	copy(items, a.items[:a.count])
	a.items = items
}

// reserve makes room for extra more elements. Callers hold mu.
func (a *Array[T]) reserve(extra int) error {
	need := a.count + extra
	if need > types.MaxCapacity || need < 0 {
		return types.Errorf(types.ErrKindOutOfMemory, "dynarray: %d elements exceed maximum capacity", need)
	}
	if need <= len(a.items) {
		return nil
	}
	c := max(len(a.items), minGrow)
	for c < need {
		if c > types.MaxCapacity/2 {
			c = types.MaxCapacity
			break
		}
		c *= 2
	}
	a.resize(c)
	return nil
}

func (a *Array[T]) checkIndex(i, limit int) error {
	if i < 0 || i >= limit {
		return types.Errorf(types.ErrKindInvalidArgument, "dynarray: index %d out of range [0, %d)", i, limit)
	}
	return nil
}

// Add appends item.
func (a *Array[T]) Add(item T) error {
	c, err := a.begin()
	if err != nil {
		return err
	}
	defer a.end(c)
	if err := a.reserve(1); err != nil {
		return err
	}
	a.items[a.count] = item
	a.count++
	return nil
}

// AddRange appends every element of items.
func (a *Array[T]) AddRange(items []T) error {
	c, err := a.begin()
	if err != nil {
		return err
	}
	defer a.end(c)
	if err := a.reserve(len(items)); err != nil {
		return err
	}
	copy(a.items[a.count:], items)
	a.count += len(items)
	return nil
}

// Insert places item at index i, shifting later elements up. i may equal
// Count.
func (a *Array[T]) Insert(i int, item T) error {
	c, err := a.begin()
	if err != nil {
		return err
	}
	defer a.end(c)
	if err := a.checkIndex(i, a.count+1); err != nil {
		return err
	}
	if err := a.reserve(1); err != nil {
		return err
	}
	copy(a.items[i+1:a.count+1], a.items[i:a.count])
	a.items[i] = item
	a.count++
	return nil
}

// RemoveAt deletes the element at index i, shifting later elements down.
func (a *Array[T]) RemoveAt(i int) error {
	c, err := a.begin()
	if err != nil {
		return err
	}
	defer a.end(c)
	if err := a.checkIndex(i, a.count); err != nil {
		return err
	}
	a.removeAt(i)
	return nil
}

func (a *Array[T]) removeAt(i int) {
	var zero T
	copy(a.items[i:a.count-1], a.items[i+1:a.count])
	a.count--
	a.items[a.count] = zero
}

// Remove deletes the first element equal to item and reports whether one
// was found.
func (a *Array[T]) Remove(item T) (bool, error) {
	c, err := a.begin()
	if err != nil {
		return false, err
	}
	defer a.end(c)
	i := slices.Index(a.items[:a.count], item)
	if i < 0 {
		return false, nil
	}
	a.removeAt(i)
	return true, nil
}

// Get returns the element at index i.
func (a *Array[T]) Get(i int) (T, error) {
	var zero T
	if err := a.lock(); err != nil {
		return zero, err
	}
	defer a.mu.Unlock()
	if err := a.checkIndex(i, a.count); err != nil {
		return zero, err
	}
	return a.items[i], nil
}

// Set replaces the element at index i.
func (a *Array[T]) Set(i int, item T) error {
	if err := a.lock(); err != nil {
		return err
	}
	defer a.mu.Unlock()
	if err := a.checkIndex(i, a.count); err != nil {
		return err
	}
	a.items[i] = item
	return nil
}

// IndexOf returns the index of the first element equal to item, or -1.
func (a *Array[T]) IndexOf(item T) int {
	a.mustLock()
	defer a.mu.Unlock()
	return slices.Index(a.items[:a.count], item)
}

// Contains reports whether some element equals item.
func (a *Array[T]) Contains(item T) bool {
	return a.IndexOf(item) >= 0
}

// Count returns the number of elements.
func (a *Array[T]) Count() int {
	a.mustLock()
	defer a.mu.Unlock()
	return a.count
}

// Capacity returns the size of the backing storage.
func (a *Array[T]) Capacity() int {
	a.mustLock()
	defer a.mu.Unlock()
	return len(a.items)
}

// SetCapacity resizes the backing storage to exactly n slots. n must not be
// below Count.
func (a *Array[T]) SetCapacity(n int) error {
	c, err := a.begin()
	if err != nil {
		return err
	}
	defer a.end(c)
	if n < a.count || n > types.MaxCapacity {
		return types.Errorf(types.ErrKindInvalidArgument, "dynarray: capacity %d with %d elements", n, a.count)
	}
	if n != len(a.items) {
		a.resize(n)
	}
	return nil
}

// TrimExcess shrinks the storage to Count when less than 90% of it is used.
func (a *Array[T]) TrimExcess() {
	c, err := a.begin()
	if err != nil {
		panic(err)
	}
	defer a.end(c)
	if a.count*10 < len(a.items)*9 {
		a.resize(a.count)
	}
}

// Clear removes every element and keeps the capacity.
func (a *Array[T]) Clear() {
	c, err := a.begin()
	if err != nil {
		panic(err)
	}
	defer a.end(c)
	clear(a.items[:a.count])
	a.count = 0
}

// Sort orders the elements by cmp. The sort is not stable.
func (a *Array[T]) Sort(cmp func(x, y T) int) {
	a.mustLock()
	defer a.mu.Unlock()
	slices.SortFunc(a.items[:a.count], cmp)
}

// Reverse reverses the element order in place.
func (a *Array[T]) Reverse() {
	a.mustLock()
	defer a.mu.Unlock()
	slices.Reverse(a.items[:a.count])
}

// ToSlice returns a copy of the elements.
func (a *Array[T]) ToSlice() []T {
	a.mustLock()
	defer a.mu.Unlock()
	return slices.Clone(a.items[:a.count])
}

// All returns a lazy sequence of index and element pairs. Each step reads
// the element under the lock and the sequence ends when the index reaches
// the current Count, so ranging twice starts over.
func (a *Array[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; ; i++ {
			a.mustLock()
			if i >= a.count {
				a.mu.Unlock()
				return
			}
			v := a.items[i]
			a.mu.Unlock()
			if !yield(i, v) {
				return
			}
		}
	}
}

// Close drops the storage. Close is idempotent.
func (a *Array[T]) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = nil
	a.count = 0
	a.closed = true
	return nil
}
