package bytebuf

import "github.com/joshuapare/memkit/internal/buf"

func (b *Buffer) put(n int, fill func(p []byte)) error {
	if err := b.lock(); err != nil {
		return err
	}
	defer b.mu.Unlock()
	p, err := b.span(n)
	if err != nil {
		return err
	}
	fill(p)
	return nil
}

func (b *Buffer) get(n int) ([]byte, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()
	return b.take(n)
}

// WriteByte writes c. It implements io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	return b.put(1, func(p []byte) { p[0] = c })
}

// ReadByte reads one byte. It implements io.ByteReader.
func (b *Buffer) ReadByte() (byte, error) {
	p, err := b.get(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// WriteBool writes v as a single 0 or 1 byte.
func (b *Buffer) WriteBool(v bool) error {
	var c byte
	if v {
		c = 1
	}
	return b.WriteByte(c)
}

// ReadBool reads a byte and reports whether it is non-zero.
func (b *Buffer) ReadBool() (bool, error) {
	c, err := b.ReadByte()
	return c != 0, err
}

func (b *Buffer) WriteInt8(v int8) error   { return b.WriteByte(byte(v)) }
func (b *Buffer) WriteUint8(v uint8) error { return b.WriteByte(v) }

func (b *Buffer) ReadInt8() (int8, error) {
	c, err := b.ReadByte()
	return int8(c), err
}

func (b *Buffer) ReadUint8() (uint8, error) { return b.ReadByte() }

func (b *Buffer) WriteUint16(v uint16) error {
	return b.put(2, func(p []byte) { buf.PutU16(p, 0, v) })
}

func (b *Buffer) WriteUint32(v uint32) error {
	return b.put(4, func(p []byte) { buf.PutU32(p, 0, v) })
}

func (b *Buffer) WriteUint64(v uint64) error {
	return b.put(8, func(p []byte) { buf.PutU64(p, 0, v) })
}

func (b *Buffer) WriteInt16(v int16) error { return b.WriteUint16(uint16(v)) }
func (b *Buffer) WriteInt32(v int32) error { return b.WriteUint32(uint32(v)) }
func (b *Buffer) WriteInt64(v int64) error { return b.WriteUint64(uint64(v)) }

func (b *Buffer) WriteFloat32(v float32) error {
	return b.put(4, func(p []byte) { buf.PutF32(p, 0, v) })
}

func (b *Buffer) WriteFloat64(v float64) error {
	return b.put(8, func(p []byte) { buf.PutF64(p, 0, v) })
}

func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.get(2)
	if err != nil {
		return 0, err
	}
	return buf.U16LE(p, 0), nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.get(4)
	if err != nil {
		return 0, err
	}
	return buf.U32LE(p, 0), nil
}

func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.get(8)
	if err != nil {
		return 0, err
	}
	return buf.U64LE(p, 0), nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat32() (float32, error) {
	p, err := b.get(4)
	if err != nil {
		return 0, err
	}
	return buf.F32LE(p, 0), nil
}

func (b *Buffer) ReadFloat64() (float64, error) {
	p, err := b.get(8)
	if err != nil {
		return 0, err
	}
	return buf.F64LE(p, 0), nil
}
