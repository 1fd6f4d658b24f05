//go:build !linux && !darwin && !windows

package alloc

// NewMmapSource falls back to an unlimited heap source on platforms without
// anonymous mappings.
func NewMmapSource() Source {
	return NewHeapSource(0)
}
