//go:build windows

package alloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/memkit/pkg/types"
)

// MmapSource reserves committed pages with VirtualAlloc.
type MmapSource struct{}

// NewMmapSource returns a source backed by VirtualAlloc.
func NewMmapSource() Source {
	return MmapSource{}
}

// Reserve implements Source.
func (MmapSource) Reserve(n int) ([]byte, error) {
	if n <= 0 {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "alloc: reserve %d bytes", n)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, types.Wrap(types.ErrKindOutOfMemory, err, "alloc: VirtualAlloc %d bytes", n)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n), nil
}

// Release implements Source.
func (MmapSource) Release(b []byte) error {
	if err := windows.VirtualFree(addrOf(b), 0, windows.MEM_RELEASE); err != nil {
		return fmt.Errorf("alloc: VirtualFree: %w", err)
	}
	return nil
}
