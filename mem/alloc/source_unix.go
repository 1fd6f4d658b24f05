//go:build linux || darwin

package alloc

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/joshuapare/memkit/pkg/types"
)

// MmapSource reserves anonymous private mappings from the kernel. Every
// reservation occupies at least one page.
type MmapSource struct{}

// NewMmapSource returns a source backed by mmap(2).
func NewMmapSource() Source {
	return MmapSource{}
}

// Reserve implements Source.
func (MmapSource) Reserve(n int) ([]byte, error) {
	if n <= 0 {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "alloc: reserve %d bytes", n)
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, types.Wrap(types.ErrKindOutOfMemory, err, "alloc: mmap %d bytes", n)
	}
	return b, nil
}

// Release implements Source.
func (MmapSource) Release(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("alloc: munmap: %w", err)
	}
	return nil
}
