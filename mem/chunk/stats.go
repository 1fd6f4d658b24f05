package chunk

import (
	"fmt"
	"time"

	"github.com/joshuapare/memkit/internal/usage"
	"github.com/joshuapare/memkit/mem/alloc"
)

// Stats merges the manager's own counters with a snapshot of its backend.
type Stats struct {
	Name string

	TotalAllocated int64
	TotalFreed     int64
	CurrentUsage   int64
	PeakUsage      int64

	AllocationCount int64
	FreeCount       int64

	AverageAllocTime time.Duration
	AverageFreeTime  time.Duration

	CacheHits      int64 // chunks served from the manager's free lists
	CacheMisses    int64 // chunks requested from the backend
	CachedChunks   int
	CachedBytes    int64
	ActiveChunks   int
	TotalAccesses  int64
	UntrackedFrees int64
	FailedAllocs   int64

	Backend alloc.Stats
}

// HitRate returns the manager-tier hit rate.
func (s Stats) HitRate() float64 {
	return usage.HitRate(s.CacheHits, s.CacheMisses)
}

// String returns a one-line summary for both tiers.
func (s Stats) String() string {
	return fmt.Sprintf("%s: %d active chunks, in use %d B (peak %d B), %d cached, hit rate %.1f%%; backend %s",
		s.Name, s.ActiveChunks, s.CurrentUsage, s.PeakUsage, s.CachedChunks, s.HitRate()*100, s.Backend)
}

// Stats returns a snapshot of both tiers.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &m.stats
	return Stats{
		Name:             m.name,
		TotalAllocated:   c.TotalAllocated,
		TotalFreed:       c.TotalFreed,
		CurrentUsage:     c.Current(),
		PeakUsage:        c.Peak,
		AllocationCount:  c.Allocs,
		FreeCount:        c.Frees,
		AverageAllocTime: c.AverageAllocTime(),
		AverageFreeTime:  c.AverageFreeTime(),
		CacheHits:        c.Hits,
		CacheMisses:      c.Misses,
		CachedChunks:     m.free.Len(),
		CachedBytes:      m.free.Bytes(),
		ActiveChunks:     len(m.chunks),
		TotalAccesses:    m.accesses,
		UntrackedFrees:   c.Untracked,
		FailedAllocs:     c.Failed,
		Backend:          m.backend.Stats(),
	}
}
