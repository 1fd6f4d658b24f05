// Package alloc provides pooled, size-bucketed allocation of raw memory blocks
// addressed by opaque handles.
//
// # Overview
//
// An Allocator hands out blocks of caller-requested size, rounded up to an
// 8-byte boundary. Freed blocks small enough to be pool-eligible are parked in
// an exact-size free list and handed back on the next request of the same
// rounded size; everything else is returned to the underlying Source.
//
//	a := alloc.New(nil)
//	defer a.Close()
//
//	h, err := a.Allocate(100) // 104-byte block
//	if err != nil {
//	    return err
//	}
//	mem, _ := a.Bytes(h)
//	copy(mem, payload)
//
//	_ = a.Free(h)            // parked in the 104-byte bucket
//	h2, _ := a.Allocate(100) // h2 == h, zero-filled
//
// # Handles
//
// A Handle is the address of the first byte of the block. It stays valid
// from the Allocate or AllocateAligned call that produced it until the single
// matching Free. Use after free is not detected.
//
// # Aligned Allocation
//
// AllocateAligned reserves size+alignment-1 bytes and returns the first
// address inside the reservation that is a multiple of alignment. The aligned
// address is the handle; the unaligned base is never exposed.
//
// # Sources
//
// A Source supplies fresh memory. HeapSource draws from the Go heap and can
// enforce a byte limit; MmapSource maps anonymous pages straight from the
// operating system.
//
// # Thread Safety
//
// All methods are safe for concurrent use. One mutex per Allocator guards the
// free lists and bookkeeping. Hooks run after that mutex is released.
package alloc
