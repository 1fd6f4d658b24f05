// Package bucket implements the exact-size free-list tier used by both the
// allocator and the chunk manager.
//
// A Cache maps a rounded allocation size to a FIFO of idle handles of exactly
// that size. Each queue is bounded; Put refuses a handle once its queue is
// full so the owner can release the memory instead. Cache is not safe for
// concurrent use; owners guard it with their own lock.
package bucket

import "sort"

// Entry is a handle removed from the cache together with its size.
type Entry[H comparable] struct {
	Size   int
	Handle H
}

// Cache is a set of bounded per-size FIFO queues.
type Cache[H comparable] struct {
	maxSize int // largest size eligible for caching
	maxLen  int // per-size queue bound
	queues  map[int][]H
	count   int
	bytes   int64
}

// New returns a cache that accepts sizes up to maxSize and keeps at most
// maxLen handles per size. A maxLen of zero disables caching.
func New[H comparable](maxSize, maxLen int) *Cache[H] {
	return &Cache[H]{
		maxSize: maxSize,
		maxLen:  maxLen,
		queues:  make(map[int][]H),
	}
}

// Eligible reports whether blocks of size may be cached at all.
func (c *Cache[H]) Eligible(size int) bool {
	return size > 0 && size <= c.maxSize && c.maxLen > 0
}

// Get dequeues the oldest idle handle of exactly size.
func (c *Cache[H]) Get(size int) (H, bool) {
	q := c.queues[size]
	if len(q) == 0 {
		var zero H
		return zero, false
	}
	h := q[0]
	var zero H
	q[0] = zero
	q = q[1:]
	if len(q) == 0 {
		delete(c.queues, size)
	} else {
		c.queues[size] = q
	}
	c.count--
	c.bytes -= int64(size)
	return h, true
}

// Put enqueues h under size. It returns false when size is not eligible or
// the queue for size is already at its bound; the caller then owns h.
func (c *Cache[H]) Put(size int, h H) bool {
	if !c.Eligible(size) {
		return false
	}
	q := c.queues[size]
	if len(q) >= c.maxLen {
		return false
	}
	c.queues[size] = append(q, h)
	c.count++
	c.bytes += int64(size)
	return true
}

// Trim removes floor(n/2) of the oldest handles from every queue of length n
// and returns them.
func (c *Cache[H]) Trim() []Entry[H] {
	var out []Entry[H]
	for _, size := range c.sizes() {
		n := len(c.queues[size]) / 2
		for range n {
			h, _ := c.Get(size)
			out = append(out, Entry[H]{Size: size, Handle: h})
		}
	}
	return out
}

// Drain removes and returns every cached handle.
func (c *Cache[H]) Drain() []Entry[H] {
	out := make([]Entry[H], 0, c.count)
	for _, size := range c.sizes() {
		for _, h := range c.queues[size] {
			out = append(out, Entry[H]{Size: size, Handle: h})
		}
		delete(c.queues, size)
	}
	c.count = 0
	c.bytes = 0
	return out
}

// Len returns the number of cached handles across all sizes.
func (c *Cache[H]) Len() int { return c.count }

// Bytes returns the total size of cached handles.
func (c *Cache[H]) Bytes() int64 { return c.bytes }

// Buckets returns the number of sizes with at least one cached handle.
func (c *Cache[H]) Buckets() int { return len(c.queues) }

// BucketLen returns the number of cached handles of exactly size.
func (c *Cache[H]) BucketLen(size int) int { return len(c.queues[size]) }

// sizes returns the populated sizes in ascending order so Trim and Drain
// release memory deterministically.
func (c *Cache[H]) sizes() []int {
	sizes := make([]int, 0, len(c.queues))
	for s := range c.queues {
		sizes = append(sizes, s)
	}
	sort.Ints(sizes)
	return sizes
}
