package alloc

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/pkg/types"
)

func newTestAllocator(t *testing.T, cfg *Config) *Allocator {
	t.Helper()
	a := New(cfg)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// requireAccounting checks the invariant every snapshot must satisfy.
func requireAccounting(t *testing.T, s Stats) {
	t.Helper()
	require.Equal(t, s.TotalAllocated-s.TotalFreed, s.CurrentUsage)
	require.GreaterOrEqual(t, s.PeakUsage, s.CurrentUsage)
}

// Test_Allocator_PoolReuse tests that a freed block is handed back for the same size.
func Test_Allocator_PoolReuse(t *testing.T) {
	a := newTestAllocator(t, nil)

	h1, err := a.Allocate(100)
	require.NoError(t, err)
	require.NotZero(t, h1)
	require.NoError(t, a.Free(h1))

	h2, err := a.Allocate(100)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	s := a.Stats()
	assert.Equal(t, int64(1), s.PoolHits)
	assert.Equal(t, int64(1), s.PoolMisses)
	requireAccounting(t, s)
}

// Test_Allocator_RoundsToEight tests 8-byte size rounding.
func Test_Allocator_RoundsToEight(t *testing.T) {
	a := newTestAllocator(t, nil)

	for size, want := range map[int]int{1: 8, 8: 8, 10: 16, 100: 104} {
		h, err := a.Allocate(size)
		require.NoError(t, err)
		got, ok := a.SizeOf(h)
		require.True(t, ok)
		assert.Equal(t, want, got, "size %d", size)

		mem, err := a.Bytes(h)
		require.NoError(t, err)
		assert.Len(t, mem, want)
	}
}

// Test_Allocator_ReusedBlockIsZeroed tests that pooled blocks never leak stale data.
func Test_Allocator_ReusedBlockIsZeroed(t *testing.T) {
	a := newTestAllocator(t, nil)

	h, err := a.Allocate(32)
	require.NoError(t, err)
	mem, err := a.Bytes(h)
	require.NoError(t, err)
	for i := range mem {
		mem[i] = 0xAB
	}
	require.NoError(t, a.Free(h))

	h2, err := a.Allocate(32)
	require.NoError(t, err)
	require.Equal(t, h, h2)
	mem, err = a.Bytes(h2)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), mem)
}

// Test_Allocator_DifferentSizesDoNotShare tests exact-size bucket lookup.
func Test_Allocator_DifferentSizesDoNotShare(t *testing.T) {
	a := newTestAllocator(t, nil)

	h, err := a.Allocate(64)
	require.NoError(t, err)
	require.NoError(t, a.Free(h))

	h2, err := a.Allocate(72)
	require.NoError(t, err)
	assert.NotEqual(t, h, h2)
	assert.Equal(t, 1, a.Stats().PooledBlocks)
}

// Test_Allocator_InvalidSize tests argument validation.
func Test_Allocator_InvalidSize(t *testing.T) {
	a := newTestAllocator(t, nil)
	rec := &hooking.Recorder{}
	a.AcceptHook(rec)

	_, err := a.Allocate(0)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = a.Allocate(-8)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = a.Allocate(types.MaxCapacity + 1)
	require.ErrorIs(t, err, types.ErrOutOfMemory)

	assert.Equal(t, 3, rec.Count(HookPosAllocFailed))
}

// Test_Allocator_Aligned tests power-of-two alignment of returned handles.
func Test_Allocator_Aligned(t *testing.T) {
	a := newTestAllocator(t, nil)

	for _, align := range []int{1, 8, 16, 64, 256, 4096} {
		h, err := a.AllocateAligned(40, align)
		require.NoError(t, err)
		assert.Zero(t, uintptr(h)%uintptr(align), "alignment %d", align)

		mem, err := a.Bytes(h)
		require.NoError(t, err)
		assert.Len(t, mem, 40)
		mem[39] = 1 // must be writable to the end
		require.NoError(t, a.Free(h))
	}

	_, err := a.AllocateAligned(40, 24)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = a.AllocateAligned(40, 0)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = a.AllocateAligned(0, 16)
	require.ErrorIs(t, err, types.ErrInvalidArgument)
}

// Test_Allocator_FreeNullAndUntracked tests the no-op free paths.
func Test_Allocator_FreeNullAndUntracked(t *testing.T) {
	a := newTestAllocator(t, nil)

	require.NoError(t, a.Free(0))
	require.NoError(t, a.Free(Handle(0xdeadbeef)))

	h, err := a.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(h))
	require.NoError(t, a.Free(h), "double free falls through")

	s := a.Stats()
	assert.Equal(t, int64(2), s.UntrackedFrees)
	assert.Equal(t, int64(1), s.FreeCount)
	requireAccounting(t, s)
}

// Test_Allocator_BucketBound tests that frees past the bucket bound release memory.
func Test_Allocator_BucketBound(t *testing.T) {
	src := NewHeapSource(0)
	a := newTestAllocator(t, &Config{MaxPoolableSize: 1024, MaxBucketLength: 2, Source: src})

	var hs []Handle
	for range 3 {
		h, err := a.Allocate(64)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	require.Equal(t, int64(3*64), src.Reserved())

	for _, h := range hs {
		require.NoError(t, a.Free(h))
	}
	s := a.Stats()
	assert.Equal(t, 2, s.PooledBlocks)
	assert.Equal(t, int64(2*64), src.Reserved())
	requireAccounting(t, s)
}

// Test_Allocator_LargeBlocksBypassPool tests the pool-eligible threshold.
func Test_Allocator_LargeBlocksBypassPool(t *testing.T) {
	src := NewHeapSource(0)
	a := newTestAllocator(t, &Config{MaxPoolableSize: 256, MaxBucketLength: 8, Source: src})

	h, err := a.Allocate(512)
	require.NoError(t, err)
	require.NoError(t, a.Free(h))

	assert.Equal(t, 0, a.Stats().PooledBlocks)
	assert.Equal(t, int64(0), src.Reserved())
}

// Test_Allocator_ReallocateShrinkInPlace tests that shrinking keeps the handle.
func Test_Allocator_ReallocateShrinkInPlace(t *testing.T) {
	a := newTestAllocator(t, nil)

	h, err := a.Allocate(128)
	require.NoError(t, err)
	nh, err := a.Reallocate(h, 20)
	require.NoError(t, err)
	assert.Equal(t, h, nh)

	size, ok := a.SizeOf(nh)
	require.True(t, ok)
	assert.Equal(t, 24, size)

	s := a.Stats()
	assert.Equal(t, int64(24), s.CurrentUsage)
	requireAccounting(t, s)
}

// Test_Allocator_ReallocateGrowCopies tests that growing preserves contents.
func Test_Allocator_ReallocateGrowCopies(t *testing.T) {
	a := newTestAllocator(t, nil)

	h, err := a.Allocate(8)
	require.NoError(t, err)
	mem, err := a.Bytes(h)
	require.NoError(t, err)
	copy(mem, "memkit!!")

	nh, err := a.Reallocate(h, 64)
	require.NoError(t, err)
	assert.NotEqual(t, h, nh)

	mem, err = a.Bytes(nh)
	require.NoError(t, err)
	require.Len(t, mem, 64)
	assert.Equal(t, "memkit!!", string(mem[:8]))
	assert.Equal(t, make([]byte, 56), mem[8:])

	_, ok := a.SizeOf(h)
	assert.False(t, ok, "old handle must be untracked")

	s := a.Stats()
	assert.Equal(t, int64(64), s.CurrentUsage)
	assert.Equal(t, int64(2), s.AllocationCount)
	assert.Equal(t, int64(1), s.FreeCount)
	requireAccounting(t, s)
}

// Test_Allocator_ReallocateUntracked tests NotFound on unknown handles.
func Test_Allocator_ReallocateUntracked(t *testing.T) {
	a := newTestAllocator(t, nil)

	_, err := a.Reallocate(Handle(0x1000), 16)
	require.ErrorIs(t, err, types.ErrNotFound)

	h, err := a.Reallocate(0, 16)
	require.NoError(t, err)
	assert.NotZero(t, h)
}

// Test_Allocator_OutOfMemory tests that source failures surface as OutOfMemory
// and are notified before being returned.
func Test_Allocator_OutOfMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	src.EXPECT().Reserve(16).Return(nil, errors.New("no pages left"))

	a := New(&Config{MaxPoolableSize: 1024, MaxBucketLength: 4, Source: src})

	var notified error
	a.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos == HookPosAllocFailed {
			notified = ctx.Item.(error)
		}
	}))

	_, err := a.Allocate(10)
	require.ErrorIs(t, err, types.ErrOutOfMemory)
	require.Equal(t, err, notified)
	assert.Equal(t, int64(1), a.Stats().FailedAllocs)
	assert.Equal(t, int64(0), a.Stats().AllocationCount)
}

// Test_Allocator_HeapLimit tests the heap source byte limit.
func Test_Allocator_HeapLimit(t *testing.T) {
	a := newTestAllocator(t, &Config{MaxPoolableSize: 1024, MaxBucketLength: 4, Source: NewHeapSource(64)})

	_, err := a.Allocate(64)
	require.NoError(t, err)
	_, err = a.Allocate(8)
	require.ErrorIs(t, err, types.ErrOutOfMemory)
}

// Test_Allocator_ReleasesToSource tests the release path against a mock source.
func Test_Allocator_ReleasesToSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	backing := make([]byte, 4096)
	src.EXPECT().Reserve(4096).Return(backing, nil)
	src.EXPECT().Release(gomock.Any()).Return(nil)

	a := New(&Config{MaxPoolableSize: 1024, MaxBucketLength: 4, Source: src})
	h, err := a.Allocate(4096)
	require.NoError(t, err)
	assert.Equal(t, Handle(addrOf(backing)), h)
	require.NoError(t, a.Free(h))
	require.NoError(t, a.Close())
}

// Test_Allocator_ReleaseFailureWarns tests that a failing source release is
// returned and logged at warn level.
func Test_Allocator_ReleaseFailureWarns(t *testing.T) {
	var out bytes.Buffer
	logger.Init(logger.Options{Enabled: true, Writer: &out, Level: slog.LevelWarn})
	t.Cleanup(func() { logger.Init(logger.Options{}) })

	ctrl := gomock.NewController(t)
	src := NewMockSource(ctrl)
	releaseErr := errors.New("munmap failed")
	src.EXPECT().Reserve(4096).Return(make([]byte, 4096), nil)
	src.EXPECT().Release(gomock.Any()).Return(releaseErr)

	a := New(&Config{MaxPoolableSize: 1024, MaxBucketLength: 4, Source: src})
	h, err := a.Allocate(4096)
	require.NoError(t, err)

	require.ErrorIs(t, a.Free(h), releaseErr)
	assert.Contains(t, out.String(), "level=WARN")
	assert.Contains(t, out.String(), "source release failed")
	require.NoError(t, a.Close())
}

// Test_Allocator_Hooks tests allocation and free notifications.
func Test_Allocator_Hooks(t *testing.T) {
	a := newTestAllocator(t, nil)
	rec := &hooking.Recorder{}
	a.AcceptHook(rec)

	h, err := a.Allocate(10)
	require.NoError(t, err)
	require.NoError(t, a.Free(h))

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, HookPosAllocated, events[0].Pos)
	assert.Equal(t, 16, events[0].Item)
	assert.Equal(t, h, events[0].Detail)
	assert.Equal(t, HookPosFreed, events[1].Pos)
	assert.Equal(t, 16, events[1].Item)
}

// Test_Allocator_TrimAndClearPools tests proactive release of idle blocks.
func Test_Allocator_TrimAndClearPools(t *testing.T) {
	src := NewHeapSource(0)
	a := newTestAllocator(t, &Config{MaxPoolableSize: 1024, MaxBucketLength: 16, Source: src})

	var hs []Handle
	for range 4 {
		h, err := a.Allocate(32)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	for _, h := range hs {
		require.NoError(t, a.Free(h))
	}

	n, err := a.TrimPools()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, a.Stats().PooledBlocks)

	n, err = a.ClearPools()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, a.Stats().PooledBlocks)
	assert.Equal(t, int64(0), src.Reserved())
}

// Test_Allocator_Disposed tests that every operation fails after Close.
func Test_Allocator_Disposed(t *testing.T) {
	src := NewHeapSource(0)
	a := New(&Config{MaxPoolableSize: 1024, MaxBucketLength: 4, Source: src})
	h, err := a.Allocate(16)
	require.NoError(t, err)
	h2, err := a.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(h2))

	require.NoError(t, a.Close())
	assert.Equal(t, int64(0), src.Reserved(), "close releases live and pooled blocks")

	_, err = a.Allocate(16)
	require.ErrorIs(t, err, types.ErrDisposed)
	_, err = a.AllocateAligned(16, 16)
	require.ErrorIs(t, err, types.ErrDisposed)
	require.ErrorIs(t, a.Free(h), types.ErrDisposed)
	_, err = a.Reallocate(h, 32)
	require.ErrorIs(t, err, types.ErrDisposed)
	_, err = a.Bytes(h)
	require.ErrorIs(t, err, types.ErrDisposed)
	_, err = a.TrimPools()
	require.ErrorIs(t, err, types.ErrDisposed)
	assert.PanicsWithError(t, "alloc: instance is disposed", func() { a.SizeOf(h) })
	require.NoError(t, a.Close(), "second close is a no-op")
}

// Test_Allocator_ConcurrentAccounting tests the accounting invariant under contention.
func Test_Allocator_ConcurrentAccounting(t *testing.T) {
	a := newTestAllocator(t, nil)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				h, err := a.Allocate(8 * (1 + (g+i)%16))
				if err != nil {
					t.Error(err)
					return
				}
				if err := a.Free(h); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	s := a.Stats()
	requireAccounting(t, s)
	assert.Equal(t, int64(0), s.CurrentUsage)
	assert.Equal(t, int64(1600), s.AllocationCount)
	assert.Equal(t, int64(1600), s.FreeCount)
	assert.Equal(t, 0, s.LiveBlocks)
}

// Test_Allocator_PeakNonDecreasing tests the high-water mark.
func Test_Allocator_PeakNonDecreasing(t *testing.T) {
	a := newTestAllocator(t, nil)

	var peak int64
	var hs []Handle
	for i := range 20 {
		h, err := a.Allocate(8 * (i + 1))
		require.NoError(t, err)
		hs = append(hs, h)
		s := a.Stats()
		require.GreaterOrEqual(t, s.PeakUsage, peak)
		peak = s.PeakUsage
	}
	for _, h := range hs {
		require.NoError(t, a.Free(h))
		s := a.Stats()
		require.Equal(t, peak, s.PeakUsage)
		requireAccounting(t, s)
	}
}
