package alloc

// Config controls pooling behavior of an Allocator.
type Config struct {
	// Name identifies the allocator in logs and hook contexts. Empty means a
	// generated unique ID.
	Name string

	// MaxPoolableSize is the largest rounded block size that is parked in a
	// free list on Free. Larger blocks go straight back to the Source.
	MaxPoolableSize int

	// MaxBucketLength bounds each exact-size free list. Frees beyond the bound
	// release memory immediately.
	MaxBucketLength int

	// Source supplies fresh memory. Nil means an unlimited HeapSource.
	Source Source
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{
	MaxPoolableSize: 64 << 10,
	MaxBucketLength: 32,
}
