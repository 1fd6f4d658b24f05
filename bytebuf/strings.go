package bytebuf

import (
	"bytes"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/pkg/types"
)

// sanitize replaces ill-formed UTF-8 in s with U+FFFD.
func sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, _, _ := transform.String(runes.ReplaceIllFormed(), s)
	return out
}

// decodeUTF8 is the read-side counterpart of sanitize.
func decodeUTF8(p []byte) (string, error) {
	if utf8.Valid(p) {
		return string(p), nil
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(p)
	if err != nil {
		return "", types.Wrap(types.ErrKindInvalidArgument, err, "bytebuf: decode utf-8")
	}
	return string(out), nil
}

// writePrefixed writes an int32 byte count followed by p in one locked step.
func (b *Buffer) writePrefixed(p []byte) error {
	if len(p) > math.MaxInt32 {
		return types.Errorf(types.ErrKindInvalidArgument, "bytebuf: string of %d bytes too long", len(p))
	}
	return b.put(4+len(p), func(dst []byte) {
		buf.PutU32(dst, 0, uint32(len(p)))
		copy(dst[4:], p)
	})
}

// readPrefixed reads an int32 byte count and that many bytes. The cursor
// does not move on failure.
func (b *Buffer) readPrefixed() ([]byte, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	start := b.pos
	hdr, err := b.take(4)
	if err != nil {
		return nil, err
	}
	n := buf.I32LE(hdr, 0)
	if n < 0 {
		b.pos = start
		return nil, types.Errorf(types.ErrKindInvalidArgument, "bytebuf: negative string length %d at %d", n, start)
	}
	if !buf.Has(b.data[:b.length], b.pos, int(n)) {
		b.pos = start
		return nil, endOfData(int(n), b.length-b.pos)
	}
	body, _ := b.take(int(n))
	return bytes.Clone(body), nil
}

// WriteString writes s as an int32 byte count followed by its UTF-8 bytes.
// Ill-formed UTF-8 is replaced with U+FFFD first.
func (b *Buffer) WriteString(s string) error {
	return b.writePrefixed([]byte(sanitize(s)))
}

// ReadString reads a string written by WriteString.
func (b *Buffer) ReadString() (string, error) {
	p, err := b.readPrefixed()
	if err != nil {
		return "", err
	}
	return decodeUTF8(p)
}

// WriteFixedString writes s into exactly width bytes, truncated on a rune
// boundary and padded with zero bytes.
func (b *Buffer) WriteFixedString(s string, width int) error {
	if width < 0 {
		return types.Errorf(types.ErrKindInvalidArgument, "bytebuf: negative width %d", width)
	}
	s = sanitize(s)
	for len(s) > width {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
	}
	return b.put(width, func(dst []byte) {
		n := copy(dst, s)
		buf.Zero(dst[n:])
	})
}

// ReadFixedString reads width bytes and returns the text before the first
// zero byte.
func (b *Buffer) ReadFixedString(width int) (string, error) {
	p, err := b.get(width)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(p, 0); i >= 0 {
		p = p[:i]
	}
	return decodeUTF8(p)
}

// WriteEncodedString writes s transcoded to enc, prefixed by the encoded byte
// count. Characters enc cannot represent become its replacement byte.
func (b *Buffer) WriteEncodedString(s string, enc encoding.Encoding) error {
	p, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(sanitize(s)))
	if err != nil {
		return types.Wrap(types.ErrKindInvalidArgument, err, "bytebuf: encode string")
	}
	return b.writePrefixed(p)
}

// ReadEncodedString reads a string written by WriteEncodedString with the same
// encoding.
func (b *Buffer) ReadEncodedString(enc encoding.Encoding) (string, error) {
	p, err := b.readPrefixed()
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(p)
	if err != nil {
		return "", types.Wrap(types.ErrKindInvalidArgument, err, "bytebuf: decode string")
	}
	return string(out), nil
}
