package alloc

import (
	"fmt"
	"time"

	"github.com/joshuapare/memkit/internal/usage"
)

// Stats is a point-in-time snapshot of allocator counters. Byte totals only
// ever grow; CurrentUsage is always TotalAllocated - TotalFreed.
type Stats struct {
	Name string

	TotalAllocated int64 // bytes handed to callers, rounded sizes
	TotalFreed     int64 // bytes returned by callers, including in-place shrinks
	CurrentUsage   int64 // bytes currently held by callers
	PeakUsage      int64 // high-water mark of CurrentUsage

	AllocationCount int64
	FreeCount       int64

	AverageAllocTime time.Duration
	AverageFreeTime  time.Duration

	PoolHits       int64 // allocations served from a free list
	PoolMisses     int64 // allocations that reserved fresh memory
	PooledBlocks   int   // idle blocks parked in free lists
	PooledBytes    int64 // sum of idle block sizes
	LiveBlocks     int   // handles currently tracked
	UntrackedFrees int64 // Free calls on handles the allocator did not know
	FailedAllocs   int64
}

// HitRate returns PoolHits / (PoolHits + PoolMisses), or 0 when nothing was allocated.
func (s Stats) HitRate() float64 {
	return usage.HitRate(s.PoolHits, s.PoolMisses)
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("%s: in use %d B (peak %d B), %d allocs, %d frees, %d pooled blocks, hit rate %.1f%%",
		s.Name, s.CurrentUsage, s.PeakUsage, s.AllocationCount, s.FreeCount, s.PooledBlocks, s.HitRate()*100)
}

func statsFrom(c *usage.Counters) Stats {
	return Stats{
		TotalAllocated:   c.TotalAllocated,
		TotalFreed:       c.TotalFreed,
		CurrentUsage:     c.Current(),
		PeakUsage:        c.Peak,
		AllocationCount:  c.Allocs,
		FreeCount:        c.Frees,
		AverageAllocTime: c.AverageAllocTime(),
		AverageFreeTime:  c.AverageFreeTime(),
		PoolHits:         c.Hits,
		PoolMisses:       c.Misses,
		UntrackedFrees:   c.Untracked,
		FailedAllocs:     c.Failed,
	}
}
