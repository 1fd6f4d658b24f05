//go:generate mockgen -destination mock_backend_test.go -package chunk -write_package_comment=false github.com/joshuapare/memkit/mem/chunk Backend

package chunk

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
	"github.com/joshuapare/memkit/mem/alloc"
	"github.com/joshuapare/memkit/pkg/types"
)

// HookPosChunkAllocated fires after AllocateChunk or a growing
// ReallocateChunk. Item is the chunk size, Detail the Handle.
var HookPosChunkAllocated = &hooking.HookPos{Name: "Chunk Allocated"}

// HookPosChunkFreed fires after a tracked chunk is freed. Item is the chunk
// size, Detail the Handle.
var HookPosChunkFreed = &hooking.HookPos{Name: "Chunk Freed"}

// HookPosChunkFailed fires before a failing operation returns its error.
// Item is the error.
var HookPosChunkFailed = &hooking.HookPos{Name: "Chunk Failed"}

// Backend is the allocator tier below a Manager.
type Backend interface {
	Allocate(size int) (alloc.Handle, error)
	Free(h alloc.Handle) error
	Bytes(h alloc.Handle) ([]byte, error)
	Stats() alloc.Stats
}

// Info is the metadata tracked for one chunk.
type Info struct {
	Handle      alloc.Handle
	Size        int
	AllocatedAt time.Time
	AccessCount int64
}

// Config controls the manager's own free lists.
type Config struct {
	// Name identifies the manager in logs and hook contexts. Empty means a
	// generated unique ID.
	Name string

	// MaxPoolableSize is the largest chunk size parked in the manager's
	// free lists.
	MaxPoolableSize int

	// MaxBucketLength bounds each of the manager's exact-size free lists.
	MaxBucketLength int
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{
	MaxPoolableSize: 16 << 10,
	MaxBucketLength: 16,
}

// Manager is a chunk-tracking cache above a Backend.
type Manager struct {
	hooking.HookableBase

	mu       sync.Mutex
	name     string
	backend  Backend
	chunks   map[alloc.Handle]*Info
	free     *bucket.Cache[alloc.Handle]
	stats    usage.Counters
	accesses int64
	closed   bool

	now func() time.Time
}

// New returns a manager drawing from backend. A nil config means DefaultConfig.
func New(backend Backend, cfg *Config) *Manager {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	name := cfg.Name
	if name == "" {
		name = "chunk-" + xid.New().String()
	}
	return &Manager{
		name:    name,
		backend: backend,
		chunks:  make(map[alloc.Handle]*Info),
		free:    bucket.New[alloc.Handle](cfg.MaxPoolableSize, cfg.MaxBucketLength),
		now:     time.Now,
	}
}

// Name returns the manager's identifier.
func (m *Manager) Name() string { return m.name }

// AllocateChunk returns a zero-filled chunk of at least size bytes, rounded
// up to 8.
func (m *Manager) AllocateChunk(size int) (alloc.Handle, error) {
	start := time.Now()
	if size <= 0 {
		return 0, m.fail(types.Errorf(types.ErrKindInvalidArgument, "chunk: size must be positive, got %d", size))
	}
	if size > types.MaxCapacity {
		return 0, m.fail(types.Errorf(types.ErrKindOutOfMemory, "chunk: size %d exceeds maximum chunk size", size))
	}
	n := types.Align8(size)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, types.Disposed("chunk")
	}
	h, hit, err := m.allocateLocked(n)
	if err != nil {
		m.stats.Failed++
		m.mu.Unlock()
		return 0, m.fail(err)
	}
	m.chunks[h] = &Info{Handle: h, Size: n, AllocatedAt: m.now()}
	m.stats.RecordAlloc(n, time.Since(start))
	m.mu.Unlock()

	logger.Debug("chunk: allocate", "manager", m.name, "size", n, "cache_hit", hit)
	m.notify(HookPosChunkAllocated, n, h)
	return h, nil
}

// FreeChunk parks h in the manager's free list, or hands it to the backend
// when the list is full or the chunk is too large. The zero handle is a no-op;
// handles the manager does not track are passed straight to the backend.
func (m *Manager) FreeChunk(h alloc.Handle) error {
	if h == 0 {
		return nil
	}
	start := time.Now()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return types.Disposed("chunk")
	}
	info, ok := m.chunks[h]
	if !ok {
		m.stats.Untracked++
		err := m.backend.Free(h)
		m.mu.Unlock()
		if err != nil {
			return m.fail(fmt.Errorf("chunk: free untracked handle: %w", err))
		}
		return nil
	}
	n := info.Size
	err := m.freeLocked(h, n)
	m.stats.RecordFree(n, time.Since(start))
	m.mu.Unlock()

	if err != nil {
		return m.fail(err)
	}
	m.notify(HookPosChunkFreed, n, h)
	return nil
}

// AccessChunk increments the access counter of h and returns its memory.
func (m *Manager) AccessChunk(h alloc.Handle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, types.Disposed("chunk")
	}
	info, ok := m.chunks[h]
	if !ok {
		return nil, types.Errorf(types.ErrKindNotFound, "chunk: untracked handle %#x", uintptr(h))
	}
	mem, err := m.backend.Bytes(h)
	if err != nil {
		return nil, fmt.Errorf("chunk: access: %w", err)
	}
	info.AccessCount++
	m.accesses++
	return mem[:info.Size], nil
}

// GetChunkInfo returns a copy of the metadata for h.
func (m *Manager) GetChunkInfo(h alloc.Handle) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Info{}, types.Disposed("chunk")
	}
	info, ok := m.chunks[h]
	if !ok {
		return Info{}, types.Errorf(types.ErrKindNotFound, "chunk: untracked handle %#x", uintptr(h))
	}
	return *info, nil
}

// ReallocateChunk resizes h. Shrinking keeps the handle; growing moves the
// contents into a new chunk, frees h and carries the access count over. The
// zero handle behaves like AllocateChunk.
func (m *Manager) ReallocateChunk(h alloc.Handle, newSize int) (alloc.Handle, error) {
	if h == 0 {
		return m.AllocateChunk(newSize)
	}
	start := time.Now()
	if newSize <= 0 {
		return 0, m.fail(types.Errorf(types.ErrKindInvalidArgument, "chunk: size must be positive, got %d", newSize))
	}
	if newSize > types.MaxCapacity {
		return 0, m.fail(types.Errorf(types.ErrKindOutOfMemory, "chunk: size %d exceeds maximum chunk size", newSize))
	}
	n := types.Align8(newSize)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, types.Disposed("chunk")
	}
	old, ok := m.chunks[h]
	if !ok {
		m.mu.Unlock()
		return 0, m.fail(types.Errorf(types.ErrKindNotFound, "chunk: reallocate untracked handle %#x", uintptr(h)))
	}
	if n <= old.Size {
		m.stats.RecordShrink(old.Size - n)
		old.Size = n
		m.mu.Unlock()
		return h, nil
	}

	src, err := m.backend.Bytes(h)
	if err != nil {
		m.mu.Unlock()
		return 0, m.fail(fmt.Errorf("chunk: reallocate: %w", err))
	}
	nh, _, err := m.allocateLocked(n)
	if err != nil {
		m.stats.Failed++
		m.mu.Unlock()
		return 0, m.fail(err)
	}
	dst, err := m.backend.Bytes(nh)
	if err != nil {
		err = errors.Join(fmt.Errorf("chunk: reallocate: %w", err), m.backend.Free(nh))
		m.mu.Unlock()
		return 0, m.fail(err)
	}
	copy(dst[:n], src[:old.Size])
	m.chunks[nh] = &Info{Handle: nh, Size: n, AllocatedAt: m.now(), AccessCount: old.AccessCount}
	m.stats.RecordAlloc(n, time.Since(start))

	oldSize := old.Size
	freeStart := time.Now()
	err = m.freeLocked(h, oldSize)
	m.stats.RecordFree(oldSize, time.Since(freeStart))
	m.mu.Unlock()

	m.notify(HookPosChunkAllocated, n, nh)
	if err != nil {
		return nh, m.fail(err)
	}
	m.notify(HookPosChunkFreed, oldSize, h)
	return nh, nil
}

// TrimFreeChunks hands half of every free list back to the backend and
// returns the number of chunks released.
func (m *Manager) TrimFreeChunks() (int, error) {
	return m.releaseIdle(false)
}

// ClearFreeChunks hands every idle chunk back to the backend and returns the
// number of chunks released.
func (m *Manager) ClearFreeChunks() (int, error) {
	return m.releaseIdle(true)
}

// ActiveChunks returns the number of chunks currently held by callers.
func (m *Manager) ActiveChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		panic(types.Disposed("chunk"))
	}
	return len(m.chunks)
}

// Close frees every tracked and idle chunk to the backend and makes the
// manager unusable. The backend itself stays open.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for h := range m.chunks {
		errs = append(errs, m.backend.Free(h))
		delete(m.chunks, h)
	}
	for _, e := range m.free.Drain() {
		errs = append(errs, m.backend.Free(e.Handle))
	}
	logger.Debug("chunk: closed", "manager", m.name)
	return errors.Join(errs...)
}

func (m *Manager) releaseIdle(all bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, types.Disposed("chunk")
	}
	var entries []bucket.Entry[alloc.Handle]
	if all {
		entries = m.free.Drain()
	} else {
		entries = m.free.Trim()
	}
	var errs []error
	for _, e := range entries {
		if err := m.backend.Free(e.Handle); err != nil {
			errs = append(errs, err)
		}
	}
	logger.Debug("chunk: released idle chunks", "manager", m.name, "count", len(entries), "all", all)
	return len(entries), errors.Join(errs...)
}

// allocateLocked serves an n-byte chunk from the manager's free list or the
// backend. n is already rounded.
func (m *Manager) allocateLocked(n int) (alloc.Handle, bool, error) {
	if h, ok := m.free.Get(n); ok {
		mem, err := m.backend.Bytes(h)
		if err != nil {
			return 0, false, errors.Join(fmt.Errorf("chunk: reuse cached chunk: %w", err), m.backend.Free(h))
		}
		clear(mem[:n])
		m.stats.Hits++
		return h, true, nil
	}
	h, err := m.backend.Allocate(n)
	if err != nil {
		return 0, false, fmt.Errorf("chunk: allocate %d bytes: %w", n, err)
	}
	m.stats.Misses++
	return h, false, nil
}

// freeLocked untracks h and either parks it or frees it in the backend.
func (m *Manager) freeLocked(h alloc.Handle, n int) error {
	delete(m.chunks, h)
	if m.free.Put(n, h) {
		return nil
	}
	if err := m.backend.Free(h); err != nil {
		return fmt.Errorf("chunk: free %d-byte chunk: %w", n, err)
	}
	return nil
}

func (m *Manager) fail(err error) error {
	logger.Debug("chunk: operation failed", "manager", m.name, "err", err)
	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{Domain: m, Pos: HookPosChunkFailed, Item: err})
	}
	return err
}

func (m *Manager) notify(pos *hooking.HookPos, n int, h alloc.Handle) {
	if m.NumHooks() > 0 {
		m.InvokeHook(hooking.HookCtx{Domain: m, Pos: pos, Item: n, Detail: h})
	}
}
