package alloc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/internal/bucket"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/internal/usage"
	"github.com/joshuapare/memkit/pkg/types"
)

// HookPosAllocated fires after a successful allocation. Item is the rounded
// byte count, Detail the Handle.
var HookPosAllocated = &hooking.HookPos{Name: "Alloc Allocated"}

// HookPosFreed fires after a tracked handle is freed. Item is the byte count,
// Detail the Handle.
var HookPosFreed = &hooking.HookPos{Name: "Alloc Freed"}

// HookPosAllocFailed fires before a failing operation returns its error.
// Item is the error.
var HookPosAllocFailed = &hooking.HookPos{Name: "Alloc Failed"}

// Allocator is a pooled, size-bucketed block allocator.
type Allocator struct {
	hooking.HookableBase

	mu     sync.Mutex
	name   string
	src    Source
	live   map[Handle]*block // handles owned by callers
	idle   map[Handle]*block // handles parked in free
	free   *bucket.Cache[Handle]
	stats  usage.Counters
	closed bool
}

// New returns an allocator. A nil config means DefaultConfig.
func New(cfg *Config) *Allocator {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	name := cfg.Name
	if name == "" {
		name = "alloc-" + xid.New().String()
	}
	src := cfg.Source
	if src == nil {
		src = NewHeapSource(0)
	}
	return &Allocator{
		name: name,
		src:  src,
		live: make(map[Handle]*block),
		idle: make(map[Handle]*block),
		free: bucket.New[Handle](cfg.MaxPoolableSize, cfg.MaxBucketLength),
	}
}

// Name returns the allocator's identifier.
func (a *Allocator) Name() string { return a.name }

// Allocate returns a zero-filled block of at least size bytes.
func (a *Allocator) Allocate(size int) (Handle, error) {
	start := time.Now()
	if size <= 0 {
		return 0, a.fail(types.Errorf(types.ErrKindInvalidArgument, "alloc: size must be positive, got %d", size))
	}
	if size > types.MaxCapacity {
		return 0, a.fail(types.Errorf(types.ErrKindOutOfMemory, "alloc: size %d exceeds maximum block size", size))
	}
	n := types.Align8(size)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, types.Disposed("alloc")
	}
	h, hit, err := a.allocateLocked(n)
	if err != nil {
		a.stats.Failed++
		a.mu.Unlock()
		return 0, a.fail(err)
	}
	a.stats.RecordAlloc(n, time.Since(start))
	a.mu.Unlock()

	logger.Debug("alloc: allocate", "allocator", a.name, "size", n, "pool_hit", hit)
	a.notify(HookPosAllocated, n, h)
	return h, nil
}

// AllocateAligned returns a zero-filled block of at least size bytes whose
// handle is a multiple of alignment. Alignment must be a power of two.
func (a *Allocator) AllocateAligned(size, alignment int) (Handle, error) {
	start := time.Now()
	if size <= 0 {
		return 0, a.fail(types.Errorf(types.ErrKindInvalidArgument, "alloc: size must be positive, got %d", size))
	}
	if !types.IsPowerOfTwo(alignment) {
		return 0, a.fail(types.Errorf(types.ErrKindInvalidArgument, "alloc: alignment %d is not a power of two", alignment))
	}
	n := types.Align8(size)
	if n > types.MaxCapacity-(alignment-1) {
		return 0, a.fail(types.Errorf(types.ErrKindOutOfMemory, "alloc: size %d with alignment %d exceeds maximum block size", size, alignment))
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, types.Disposed("alloc")
	}
	backing, err := a.reserve(n + alignment - 1)
	if err != nil {
		a.stats.Failed++
		a.mu.Unlock()
		return 0, a.fail(err)
	}
	base := addrOf(backing)
	mask := uintptr(alignment - 1)
	aligned := (base + mask) &^ mask
	b := &block{backing: backing, off: int(aligned - base), size: n}
	clear(b.view())
	h := Handle(aligned)
	a.live[h] = b
	a.stats.Misses++
	a.stats.RecordAlloc(n, time.Since(start))
	a.mu.Unlock()

	logger.Debug("alloc: allocate aligned", "allocator", a.name, "size", n, "alignment", alignment)
	a.notify(HookPosAllocated, n, h)
	return h, nil
}

// Free returns h to its size bucket, or to the Source when the bucket is
// full or the block is not pool-eligible. The zero handle and handles this
// allocator does not track are ignored.
func (a *Allocator) Free(h Handle) error {
	if h == 0 {
		return nil
	}
	start := time.Now()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return types.Disposed("alloc")
	}
	b, ok := a.live[h]
	if !ok {
		a.stats.Untracked++
		a.mu.Unlock()
		logger.Debug("alloc: free of untracked handle", "allocator", a.name, "handle", fmt.Sprintf("%#x", uintptr(h)))
		return nil
	}
	n := b.size
	err := a.freeLocked(h, b)
	a.stats.RecordFree(n, time.Since(start))
	a.mu.Unlock()

	if err != nil {
		return a.fail(err)
	}
	a.notify(HookPosFreed, n, h)
	return nil
}

// Reallocate resizes the block behind h. Shrinking keeps the handle and only
// adjusts bookkeeping. Growing moves the contents to a new block and frees h.
// The zero handle behaves like Allocate.
func (a *Allocator) Reallocate(h Handle, newSize int) (Handle, error) {
	if h == 0 {
		return a.Allocate(newSize)
	}
	start := time.Now()
	if newSize <= 0 {
		return 0, a.fail(types.Errorf(types.ErrKindInvalidArgument, "alloc: size must be positive, got %d", newSize))
	}
	if newSize > types.MaxCapacity {
		return 0, a.fail(types.Errorf(types.ErrKindOutOfMemory, "alloc: size %d exceeds maximum block size", newSize))
	}
	n := types.Align8(newSize)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, types.Disposed("alloc")
	}
	old, ok := a.live[h]
	if !ok {
		a.mu.Unlock()
		return 0, a.fail(types.Errorf(types.ErrKindNotFound, "alloc: reallocate untracked handle %#x", uintptr(h)))
	}
	if n <= old.size {
		a.stats.RecordShrink(old.size - n)
		old.size = n
		a.mu.Unlock()
		return h, nil
	}

	nh, _, err := a.allocateLocked(n)
	if err != nil {
		a.stats.Failed++
		a.mu.Unlock()
		return 0, a.fail(err)
	}
	a.stats.RecordAlloc(n, time.Since(start))
	copy(a.live[nh].view(), old.view())

	oldSize := old.size
	freeStart := time.Now()
	err = a.freeLocked(h, old)
	a.stats.RecordFree(oldSize, time.Since(freeStart))
	a.mu.Unlock()

	a.notify(HookPosAllocated, n, nh)
	if err != nil {
		return nh, a.fail(err)
	}
	a.notify(HookPosFreed, oldSize, h)
	return nh, nil
}

// Bytes returns the block behind h. The slice aliases allocator memory and
// must not be used after h is freed.
func (a *Allocator) Bytes(h Handle) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, types.Disposed("alloc")
	}
	b, ok := a.live[h]
	if !ok {
		return nil, types.Errorf(types.ErrKindNotFound, "alloc: untracked handle %#x", uintptr(h))
	}
	return b.view(), nil
}

// SizeOf returns the tracked size of h.
func (a *Allocator) SizeOf(h Handle) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		panic(types.Disposed("alloc"))
	}
	b, ok := a.live[h]
	if !ok {
		return 0, false
	}
	return b.size, true
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := statsFrom(&a.stats)
	s.Name = a.name
	s.PooledBlocks = a.free.Len()
	s.PooledBytes = a.free.Bytes()
	s.LiveBlocks = len(a.live)
	return s
}

// TrimPools releases half of every free list back to the Source and returns
// the number of blocks released.
func (a *Allocator) TrimPools() (int, error) {
	return a.releaseIdle(false)
}

// ClearPools releases every idle block back to the Source and returns the
// number of blocks released.
func (a *Allocator) ClearPools() (int, error) {
	return a.releaseIdle(true)
}

// Close releases all memory, tracked or pooled, and makes the allocator
// unusable. Handles still held by callers become invalid.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for h, b := range a.live {
		errs = append(errs, a.src.Release(b.backing))
		delete(a.live, h)
	}
	for _, e := range a.free.Drain() {
		errs = append(errs, a.src.Release(a.idle[e.Handle].backing))
		delete(a.idle, e.Handle)
	}
	logger.Debug("alloc: closed", "allocator", a.name)
	return errors.Join(errs...)
}

func (a *Allocator) releaseIdle(all bool) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, types.Disposed("alloc")
	}
	var entries []bucket.Entry[Handle]
	if all {
		entries = a.free.Drain()
	} else {
		entries = a.free.Trim()
	}
	var errs []error
	for _, e := range entries {
		b := a.idle[e.Handle]
		delete(a.idle, e.Handle)
		if err := a.src.Release(b.backing); err != nil {
			logger.Warn("alloc: source release failed", "allocator", a.name, "size", len(b.backing), "err", err)
			errs = append(errs, err)
		}
	}
	logger.Debug("alloc: released idle blocks", "allocator", a.name, "count", len(entries), "all", all)
	return len(entries), errors.Join(errs...)
}

// allocateLocked serves an n-byte block from the free list or the Source.
// n is already rounded.
func (a *Allocator) allocateLocked(n int) (Handle, bool, error) {
	if h, ok := a.free.Get(n); ok {
		b := a.idle[h]
		delete(a.idle, h)
		clear(b.view())
		a.live[h] = b
		a.stats.Hits++
		return h, true, nil
	}

	backing, err := a.reserve(n)
	if err != nil {
		return 0, false, err
	}
	clear(backing)
	b := &block{backing: backing, size: n}
	h := Handle(addrOf(backing))
	a.live[h] = b
	a.stats.Misses++
	return h, false, nil
}

// freeLocked untracks h and either parks or releases its block.
func (a *Allocator) freeLocked(h Handle, b *block) error {
	delete(a.live, h)
	if a.free.Put(b.size, h) {
		a.idle[h] = b
		return nil
	}
	if err := a.src.Release(b.backing); err != nil {
		logger.Warn("alloc: source release failed", "allocator", a.name, "size", len(b.backing), "err", err)
		return fmt.Errorf("alloc: release %d-byte block: %w", len(b.backing), err)
	}
	return nil
}

func (a *Allocator) reserve(n int) ([]byte, error) {
	b, err := a.src.Reserve(n)
	if err != nil {
		return nil, types.Wrap(types.ErrKindOutOfMemory, err, "alloc: reserve %d bytes", n)
	}
	if len(b) < n {
		_ = a.src.Release(b)
		return nil, types.Errorf(types.ErrKindOutOfMemory, "alloc: source returned %d of %d bytes", len(b), n)
	}
	return b, nil
}

// fail notifies hooks about err and returns it.
func (a *Allocator) fail(err error) error {
	logger.Debug("alloc: operation failed", "allocator", a.name, "err", err)
	if a.NumHooks() > 0 {
		a.InvokeHook(hooking.HookCtx{Domain: a, Pos: HookPosAllocFailed, Item: err})
	}
	return err
}

func (a *Allocator) notify(pos *hooking.HookPos, n int, h Handle) {
	if a.NumHooks() > 0 {
		a.InvokeHook(hooking.HookCtx{Domain: a, Pos: pos, Item: n, Detail: h})
	}
}
