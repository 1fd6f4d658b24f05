package alloc

import "unsafe"

// Handle is an opaque, address-sized reference to an allocated block.
// The zero Handle is the null handle.
type Handle uintptr

// addrOf returns the address of b's first byte.
func addrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// block is the bookkeeping for one tracked handle.
type block struct {
	backing []byte // exactly as returned by Source.Reserve
	off     int    // offset of the handle inside backing
	size    int    // rounded size visible to the caller
}

func (b *block) view() []byte {
	return b.backing[b.off : b.off+b.size]
}
