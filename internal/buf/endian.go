// Package buf contains little-endian encode/decode helpers and overflow-safe
// bounds checks used by the byte buffer.
//
// Callers are expected to have validated the range with Has or Slice first;
// the Put/Read helpers index directly and panic on short input.
package buf

import (
	"encoding/binary"
	"math"
)

// PutU16 writes v at b[off:off+2] in little-endian order.
func PutU16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:off+2], v)
}

// PutU32 writes v at b[off:off+4] in little-endian order.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes v at b[off:off+8] in little-endian order.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// PutF32 writes the IEEE-754 bits of v at b[off:off+4].
func PutF32(b []byte, off int, v float32) {
	PutU32(b, off, math.Float32bits(v))
}

// PutF64 writes the IEEE-754 bits of v at b[off:off+8].
func PutF64(b []byte, off int, v float64) {
	PutU64(b, off, math.Float64bits(v))
}

// U16LE reads a little-endian uint16 at b[off:off+2].
func U16LE(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off : off+2])
}

// U32LE reads a little-endian uint32 at b[off:off+4].
func U32LE(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// U64LE reads a little-endian uint64 at b[off:off+8].
func U64LE(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// I32LE reads a little-endian int32 at b[off:off+4].
func I32LE(b []byte, off int) int32 {
	return int32(U32LE(b, off))
}

// F32LE reads a float32 stored as little-endian IEEE-754 bits.
func F32LE(b []byte, off int) float32 {
	return math.Float32frombits(U32LE(b, off))
}

// F64LE reads a float64 stored as little-endian IEEE-754 bits.
func F64LE(b []byte, off int) float64 {
	return math.Float64frombits(U64LE(b, off))
}
