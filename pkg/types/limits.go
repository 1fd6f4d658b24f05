package types

const (
	// MaxCapacity is the largest element or byte count any growable structure
	// will size itself to. It matches the largest array length most managed
	// runtimes accept, so buffers produced here can be handed across.
	MaxCapacity = 0x7FFFFFC7

	// Alignment is the granularity every allocation size is rounded up to.
	Alignment = 8

	// AlignmentMask is Alignment-1, used with bitwise rounding.
	AlignmentMask = Alignment - 1
)

// Align8 returns n aligned up to the next 8-byte boundary.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
