// Package chunk layers a second cache tier with per-chunk metadata on top of
// an alloc.Allocator.
//
// A Manager tracks every chunk it hands out (size, allocation time, access
// count) and keeps its own exact-size free lists. FreeChunk parks eligible
// chunks in those lists; AllocateChunk checks them before falling through to
// the backend allocator, which in turn checks its own free lists before
// reserving fresh memory. Both tiers therefore cache observably.
//
//	a := alloc.New(nil)
//	m := chunk.New(a, nil)
//
//	h, _ := m.AllocateChunk(10) // 16-byte chunk
//	info, _ := m.GetChunkInfo(h)
//	mem, _ := m.AccessChunk(h)  // AccessCount becomes 1
//	_ = m.FreeChunk(h)
//
// The manager's mutex is independent of the allocator's. It is held while
// calling the backend, so hooks registered on the backend must not call back
// into the manager.
package chunk
