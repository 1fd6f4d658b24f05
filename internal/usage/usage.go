// Package usage holds the byte and latency counters shared by the allocator
// and the chunk manager. Counters is not synchronized; owners guard it.
package usage

import "time"

// Counters accumulates allocation accounting. Byte totals only grow, so the
// bytes currently in use are always TotalAllocated - TotalFreed.
type Counters struct {
	TotalAllocated int64
	TotalFreed     int64
	Peak           int64
	Allocs         int64
	Frees          int64
	Hits           int64 // served from a free list
	Misses         int64 // needed fresh memory from the tier below
	Untracked      int64 // frees of unknown handles
	Failed         int64 // allocations that returned an error

	allocTime time.Duration
	freeTime  time.Duration
}

// RecordAlloc accounts for an n-byte allocation that took elapsed.
func (c *Counters) RecordAlloc(n int, elapsed time.Duration) {
	c.TotalAllocated += int64(n)
	c.Allocs++
	c.allocTime += elapsed
	if u := c.Current(); u > c.Peak {
		c.Peak = u
	}
}

// RecordFree accounts for an n-byte free that took elapsed.
func (c *Counters) RecordFree(n int, elapsed time.Duration) {
	c.TotalFreed += int64(n)
	c.Frees++
	c.freeTime += elapsed
}

// RecordShrink accounts for n bytes given back by an in-place shrink. It does
// not count as a free operation.
func (c *Counters) RecordShrink(n int) {
	c.TotalFreed += int64(n)
}

// Current returns the bytes currently in use.
func (c *Counters) Current() int64 {
	return c.TotalAllocated - c.TotalFreed
}

// AverageAllocTime returns the mean allocation latency.
func (c *Counters) AverageAllocTime() time.Duration {
	if c.Allocs == 0 {
		return 0
	}
	return c.allocTime / time.Duration(c.Allocs)
}

// AverageFreeTime returns the mean free latency.
func (c *Counters) AverageFreeTime() time.Duration {
	if c.Frees == 0 {
		return 0
	}
	return c.freeTime / time.Duration(c.Frees)
}

// HitRate returns Hits / (Hits + Misses), or 0 before any allocation.
func HitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
