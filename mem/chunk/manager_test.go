package chunk

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/joshuapare/memkit/hooking"
	"github.com/joshuapare/memkit/mem/alloc"
	"github.com/joshuapare/memkit/pkg/types"
)

var _ = Describe("Manager over a real allocator", func() {
	var (
		a *alloc.Allocator
		m *Manager
	)

	BeforeEach(func() {
		a = alloc.New(&alloc.Config{Name: "backend", MaxPoolableSize: 4096, MaxBucketLength: 8})
		m = New(a, &Config{Name: "chunks", MaxPoolableSize: 1024, MaxBucketLength: 2})
	})

	AfterEach(func() {
		Expect(m.Close()).To(Succeed())
		Expect(a.Close()).To(Succeed())
	})

	It("should round chunk sizes to 8 bytes", func() {
		h, err := m.AllocateChunk(10)
		Expect(err).NotTo(HaveOccurred())

		info, err := m.GetChunkInfo(h)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size).To(Equal(16))
		Expect(info.Handle).To(Equal(h))
		Expect(info.AccessCount).To(BeZero())
	})

	It("should reject non-positive sizes", func() {
		_, err := m.AllocateChunk(0)
		Expect(errors.Is(err, types.ErrInvalidArgument)).To(BeTrue())
	})

	It("should count accesses", func() {
		h, _ := m.AllocateChunk(24)

		for range 3 {
			mem, err := m.AccessChunk(h)
			Expect(err).NotTo(HaveOccurred())
			Expect(mem).To(HaveLen(24))
		}

		info, _ := m.GetChunkInfo(h)
		Expect(info.AccessCount).To(Equal(int64(3)))
		Expect(m.Stats().TotalAccesses).To(Equal(int64(3)))
	})

	It("should serve from its own free list before the allocator", func() {
		h, _ := m.AllocateChunk(32)
		mem, _ := m.AccessChunk(h)
		copy(mem, "stale")
		Expect(m.FreeChunk(h)).To(Succeed())

		backendBefore := a.Stats()
		Expect(backendBefore.LiveBlocks).To(Equal(1), "a parked chunk stays live in the allocator")

		h2, err := m.AllocateChunk(32)
		Expect(err).NotTo(HaveOccurred())
		Expect(h2).To(Equal(h))
		Expect(a.Stats().AllocationCount).To(Equal(backendBefore.AllocationCount))

		mem, _ = m.AccessChunk(h2)
		Expect(mem).To(Equal(make([]byte, 32)))

		s := m.Stats()
		Expect(s.CacheHits).To(Equal(int64(1)))
		Expect(s.CacheMisses).To(Equal(int64(1)))
	})

	It("should fall through to the allocator's free list when its own is full", func() {
		var hs []alloc.Handle
		for range 3 {
			h, _ := m.AllocateChunk(64)
			hs = append(hs, h)
		}
		for _, h := range hs {
			Expect(m.FreeChunk(h)).To(Succeed())
		}

		s := m.Stats()
		Expect(s.CachedChunks).To(Equal(2))
		Expect(s.Backend.PooledBlocks).To(Equal(1))
		Expect(s.Backend.LiveBlocks).To(Equal(2))
	})

	It("should hand chunks above its threshold straight to the allocator", func() {
		h, _ := m.AllocateChunk(2048)
		Expect(m.FreeChunk(h)).To(Succeed())

		s := m.Stats()
		Expect(s.CachedChunks).To(BeZero())
		Expect(s.Backend.PooledBlocks).To(Equal(1))
	})

	It("should shrink in place", func() {
		h, _ := m.AllocateChunk(128)
		nh, err := m.ReallocateChunk(h, 30)
		Expect(err).NotTo(HaveOccurred())
		Expect(nh).To(Equal(h))

		info, _ := m.GetChunkInfo(nh)
		Expect(info.Size).To(Equal(32))
		Expect(m.Stats().CurrentUsage).To(Equal(int64(32)))
	})

	It("should grow by copying and keep the access count", func() {
		h, _ := m.AllocateChunk(8)
		mem, _ := m.AccessChunk(h)
		copy(mem, "chunked!")

		nh, err := m.ReallocateChunk(h, 40)
		Expect(err).NotTo(HaveOccurred())
		Expect(nh).NotTo(Equal(h))

		_, err = m.GetChunkInfo(h)
		Expect(errors.Is(err, types.ErrNotFound)).To(BeTrue())

		mem, _ = m.AccessChunk(nh)
		Expect(mem).To(HaveLen(40))
		Expect(string(mem[:8])).To(Equal("chunked!"))

		info, _ := m.GetChunkInfo(nh)
		Expect(info.AccessCount).To(Equal(int64(2)))
	})

	It("should report untracked handles on reallocate", func() {
		_, err := m.ReallocateChunk(alloc.Handle(0x40), 8)
		Expect(errors.Is(err, types.ErrNotFound)).To(BeTrue())
	})

	It("should trim half and clear all cached chunks", func() {
		big := New(a, &Config{MaxPoolableSize: 1024, MaxBucketLength: 8})
		defer big.Close()

		var hs []alloc.Handle
		for range 5 {
			h, _ := big.AllocateChunk(16)
			hs = append(hs, h)
		}
		for _, h := range hs {
			Expect(big.FreeChunk(h)).To(Succeed())
		}

		n, err := big.TrimFreeChunks()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(big.Stats().CachedChunks).To(Equal(3))

		n, err = big.ClearFreeChunks()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
		Expect(big.Stats().CachedChunks).To(BeZero())
	})

	It("should keep both tiers' accounting consistent", func() {
		var hs []alloc.Handle
		for i := range 20 {
			h, err := m.AllocateChunk(8 * (1 + i%5))
			Expect(err).NotTo(HaveOccurred())
			hs = append(hs, h)
		}
		for _, h := range hs[:10] {
			Expect(m.FreeChunk(h)).To(Succeed())
		}

		s := m.Stats()
		Expect(s.CurrentUsage).To(Equal(s.TotalAllocated - s.TotalFreed))
		Expect(s.Backend.CurrentUsage).To(Equal(s.Backend.TotalAllocated - s.Backend.TotalFreed))
		Expect(s.ActiveChunks).To(Equal(10))
	})

	It("should fail every operation after close", func() {
		h, _ := m.AllocateChunk(8)
		Expect(m.Close()).To(Succeed())

		_, err := m.AllocateChunk(8)
		Expect(errors.Is(err, types.ErrDisposed)).To(BeTrue())
		Expect(errors.Is(m.FreeChunk(h), types.ErrDisposed)).To(BeTrue())
		_, err = m.AccessChunk(h)
		Expect(errors.Is(err, types.ErrDisposed)).To(BeTrue())
		_, err = m.GetChunkInfo(h)
		Expect(errors.Is(err, types.ErrDisposed)).To(BeTrue())
		_, err = m.TrimFreeChunks()
		Expect(errors.Is(err, types.ErrDisposed)).To(BeTrue())
		Expect(func() { m.ActiveChunks() }).To(PanicWith(MatchError(types.ErrDisposed)))

		Expect(a.Stats().LiveBlocks).To(BeZero(), "close returns chunks to the allocator")
	})
})

var _ = Describe("Manager over a mocked backend", func() {
	var (
		mockCtrl *gomock.Controller
		backend  *MockBackend
		m        *Manager
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		backend = NewMockBackend(mockCtrl)
		m = New(backend, &Config{Name: "mocked", MaxPoolableSize: 256, MaxBucketLength: 4})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should notify and return backend allocation failures", func() {
		oom := types.Errorf(types.ErrKindOutOfMemory, "alloc: source exhausted")
		backend.EXPECT().Allocate(16).Return(alloc.Handle(0), oom)

		rec := &hooking.Recorder{}
		m.AcceptHook(rec)

		_, err := m.AllocateChunk(12)
		Expect(errors.Is(err, types.ErrOutOfMemory)).To(BeTrue())
		Expect(rec.Count(HookPosChunkFailed)).To(Equal(1))
		Expect(rec.Events()[0].Item).To(Equal(err))
	})

	It("should pass untracked frees through to the backend", func() {
		backend.EXPECT().Free(alloc.Handle(0x1234)).Return(nil)

		Expect(m.FreeChunk(alloc.Handle(0x1234))).To(Succeed())
	})

	It("should stamp chunks with the allocation time", func() {
		stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		m.now = func() time.Time { return stamp }
		backend.EXPECT().Allocate(8).Return(alloc.Handle(0x80), nil)

		h, err := m.AllocateChunk(8)
		Expect(err).NotTo(HaveOccurred())

		info, err := m.GetChunkInfo(h)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.AllocatedAt).To(Equal(stamp))
	})

	It("should fire allocate and free hooks", func() {
		backend.EXPECT().Allocate(8).Return(alloc.Handle(0x80), nil)

		rec := &hooking.Recorder{}
		m.AcceptHook(rec)

		h, _ := m.AllocateChunk(8)
		Expect(m.FreeChunk(h)).To(Succeed())

		Expect(rec.Count(HookPosChunkAllocated)).To(Equal(1))
		Expect(rec.Count(HookPosChunkFreed)).To(Equal(1))
	})

	It("should free cached chunks in the backend on clear", func() {
		backend.EXPECT().Allocate(8).Return(alloc.Handle(0x80), nil)
		backend.EXPECT().Free(alloc.Handle(0x80)).Return(nil)

		h, _ := m.AllocateChunk(8)
		Expect(m.FreeChunk(h)).To(Succeed())

		n, err := m.ClearFreeChunks()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("should release the new chunk when a grow cannot map it", func() {
		mapErr := errors.New("unmapped")
		backend.EXPECT().Allocate(8).Return(alloc.Handle(0x80), nil)
		backend.EXPECT().Bytes(alloc.Handle(0x80)).Return(make([]byte, 8), nil)
		backend.EXPECT().Allocate(16).Return(alloc.Handle(0x100), nil)
		backend.EXPECT().Bytes(alloc.Handle(0x100)).Return(nil, mapErr)
		backend.EXPECT().Free(alloc.Handle(0x100)).Return(nil)

		h, err := m.AllocateChunk(8)
		Expect(err).NotTo(HaveOccurred())

		_, err = m.ReallocateChunk(h, 16)
		Expect(err).To(MatchError(mapErr))
		Expect(m.ActiveChunks()).To(Equal(1))

		info, err := m.GetChunkInfo(h)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Size).To(Equal(8))
	})

	It("should merge backend statistics", func() {
		backend.EXPECT().Stats().Return(alloc.Stats{Name: "below", PooledBlocks: 7})

		s := m.Stats()
		Expect(s.Name).To(Equal("mocked"))
		Expect(s.Backend.Name).To(Equal("below"))
		Expect(s.Backend.PooledBlocks).To(Equal(7))
	})
})
