// Package bytebuf provides a growable binary buffer with a read/write cursor
// and little-endian typed accessors.
//
// A Buffer keeps Cap() >= Len() >= Position() >= 0. Writes land at the
// cursor, advance it and extend Len when they pass the end, so overwriting
// the middle of existing content never truncates it. Reads past Len fail with
// an error of kind EndOfData that also matches io.EOF.
package bytebuf

import (
	"io"
	"sync"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/pkg/types"
)

// minGrow is the capacity an empty buffer jumps to on its first write.
const minGrow = 16

// Buffer is a growable byte stream. It is safe for concurrent use; each call
// holds the buffer's lock for its whole duration.
type Buffer struct {
	mu     sync.Mutex
	data   []byte // len(data) is the capacity
	length int
	pos    int
	closed bool
}

// New returns an empty buffer with the given initial capacity.
func New(capacity int) (*Buffer, error) {
	if capacity < 0 || capacity > types.MaxCapacity {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: capacity %d", capacity)
	}
	return &Buffer{data: make([]byte, capacity)}, nil
}

// FromBytes returns a buffer holding a copy of b with the cursor at 0.
func FromBytes(b []byte) *Buffer {
	data := make([]byte, len(b))
	copy(data, b)
	return &Buffer{data: data, length: len(b)}
}

func (b *Buffer) lock() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return types.Disposed("bytebuf")
	}
	return nil
}

func (b *Buffer) mustLock() {
	if err := b.lock(); err != nil {
		panic(err)
	}
}

// Position returns the cursor.
func (b *Buffer) Position() int {
	b.mustLock()
	defer b.mu.Unlock()
	return b.pos
}

// SetPosition moves the cursor to p, which must lie in [0, Len()].
func (b *Buffer) SetPosition(p int) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()
	if p < 0 || p > b.length {
		return types.Errorf(types.ErrKindInvalidArgument, "bytebuf: position %d outside [0, %d]", p, b.length)
	}
	b.pos = p
	return nil
}

// Len returns the number of content bytes.
func (b *Buffer) Len() int {
	b.mustLock()
	defer b.mu.Unlock()
	return b.length
}

// Cap returns the size of the backing storage.
func (b *Buffer) Cap() int {
	b.mustLock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Remaining returns the number of content bytes after the cursor.
func (b *Buffer) Remaining() int {
	b.mustLock()
	defer b.mu.Unlock()
	return b.length - b.pos
}

// EnsureCapacity grows the backing storage to at least n bytes by doubling.
// Requests above types.MaxCapacity are capped there without error.
func (b *Buffer) EnsureCapacity(n int) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()
	b.ensure(n)
	return nil
}

func (b *Buffer) ensure(n int) {
	if n <= len(b.data) {
		return
	}
	n = min(n, types.MaxCapacity)
	c := max(len(b.data), minGrow)
	for c < n {
		if c > types.MaxCapacity/2 {
			c = types.MaxCapacity
			break
		}
		c *= 2
	}

	data := make([]byte, c)
	copy(data, b.data[:b.length])
	b.data = data
}

// span reserves n bytes at the cursor for writing and advances past them.
// Callers hold mu.
func (b *Buffer) span(n int) ([]byte, error) {
	end, ok := buf.End(b.pos, n)
	if !ok || end > types.MaxCapacity {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: write of %d bytes at %d exceeds maximum capacity", n, b.pos)
	}
	b.ensure(end)
	out := b.data[b.pos:end]
	b.pos = end
	b.length = max(b.length, end)
	return out, nil
}

// take consumes n content bytes at the cursor. The cursor does not move on
// failure. Callers hold mu.
func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: negative read length %d", n)
	}
	out, ok := buf.Slice(b.data[:b.length], b.pos, n)
	if !ok {
		return nil, endOfData(n, b.length-b.pos)
	}
	b.pos += n
	return out, nil
}

func endOfData(need, have int) error {
	return types.Wrap(types.ErrKindEndOfData, io.EOF, "bytebuf: need %d bytes, %d remain", need, have)
}

// Write appends p at the cursor. It implements io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()
	dst, err := b.span(len(p))
	if err != nil {
		return 0, err
	}
	return copy(dst, p), nil
}

// Read copies up to len(p) content bytes from the cursor. It implements
// io.Reader and returns io.EOF at the end of content.
func (b *Buffer) Read(p []byte) (int, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()
	if len(p) == 0 {
		return 0, nil
	}
	if b.pos >= b.length {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:b.length])
	b.pos += n
	return n, nil
}

// WriteBytes writes p at the cursor.
func (b *Buffer) WriteBytes(p []byte) error {
	_, err := b.Write(p)
	return err
}

// ReadBytes returns a copy of the next n content bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	src, err := b.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}

// Skip advances the cursor by n content bytes.
func (b *Buffer) Skip(n int) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()
	_, err := b.take(n)
	return err
}

// Seek implements io.Seeker. The resulting position must lie in [0, Len()].
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(b.length)
	default:
		return 0, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: invalid whence %d", whence)
	}
	p := base + offset
	if p < 0 || p > int64(b.length) {
		return 0, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: seek to %d outside [0, %d]", p, b.length)
	}
	b.pos = int(p)
	return p, nil
}

// Bytes returns a copy of the content.
func (b *Buffer) Bytes() []byte {
	b.mustLock()
	defer b.mu.Unlock()
	out := make([]byte, b.length)
	copy(out, b.data)
	return out
}

// Clone returns an independent buffer with the same content, capacity and
// cursor.
func (b *Buffer) Clone() *Buffer {
	b.mustLock()
	defer b.mu.Unlock()
	data := make([]byte, len(b.data))
	copy(data, b.data[:b.length])
	return &Buffer{data: data, length: b.length, pos: b.pos}
}

// Reset moves the cursor to 0 and leaves the content alone.
func (b *Buffer) Reset() {
	b.mustLock()
	b.pos = 0
	b.mu.Unlock()
}

// Clear zeroes the content and sets Len and Position to 0. Capacity is kept.
func (b *Buffer) Clear() {
	b.mustLock()
	buf.Zero(b.data[:b.length])
	b.length = 0
	b.pos = 0
	b.mu.Unlock()
}

// Close zeroes and drops the backing storage. Further calls fail with a
// Disposed error. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	buf.Zero(b.data)
	b.data = nil
	b.length = 0
	b.pos = 0
	b.closed = true
	return nil
}
