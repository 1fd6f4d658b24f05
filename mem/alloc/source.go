//go:generate mockgen -destination mock_source_test.go -package alloc -write_package_comment=false github.com/joshuapare/memkit/mem/alloc Source

package alloc

import (
	"sync/atomic"

	"github.com/joshuapare/memkit/pkg/types"
)

// Source is the underlying system an Allocator draws fresh memory from.
//
// Reserve returns a zero-filled slice of exactly n bytes whose backing array
// does not move for as long as it is held. Release gives back a slice that was
// returned by Reserve, unmodified.
type Source interface {
	Reserve(n int) ([]byte, error)
	Release(b []byte) error
}

// HeapSource reserves memory from the Go heap.
type HeapSource struct {
	limit    int64
	reserved atomic.Int64
}

// NewHeapSource returns a heap-backed source. A positive limit caps the number
// of bytes held at once; reservations beyond it fail with ErrOutOfMemory.
func NewHeapSource(limit int64) *HeapSource {
	return &HeapSource{limit: limit}
}

// Reserve implements Source.
func (s *HeapSource) Reserve(n int) ([]byte, error) {
	if n <= 0 {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "alloc: reserve %d bytes", n)
	}
	total := s.reserved.Add(int64(n))
	if s.limit > 0 && total > s.limit {
		s.reserved.Add(-int64(n))
		return nil, types.Errorf(types.ErrKindOutOfMemory,
			"alloc: heap source limit %d exceeded by %d-byte reservation", s.limit, n)
	}
	return make([]byte, n), nil
}

// Release implements Source.
func (s *HeapSource) Release(b []byte) error {
	s.reserved.Add(-int64(len(b)))
	return nil
}

// Reserved returns the number of bytes currently held by callers.
func (s *HeapSource) Reserved() int64 {
	return s.reserved.Load()
}
