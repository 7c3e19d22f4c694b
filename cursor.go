package etf

import (
	"encoding/binary"
	"math"
)

// Cursor reads fixed-width big-endian values and raw byte runs from a
// bounded byte slice.  It always knows how many bytes remain and never reads
// past its bound; an attempt to do so returns a Truncated error and leaves
// the read position unchanged.
//
// Slices returned by ReadBytes point directly into the underlying buffer and
// are only valid as long as the caller leaves that buffer untouched.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor over buf.  The cursor's bound is len(buf).
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

// Offset returns the current read position.
func (c *Cursor) Offset() int { return c.pos }

// take returns the next n bytes and advances past them.
func (c *Cursor) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, newError(Truncated, c.pos, "negative length %d", n)
	}
	if n > len(c.buf)-c.pos {
		return nil, newError(Truncated, c.pos, "need %d bytes, have %d", n, len(c.buf)-c.pos)
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadUint8 reads one unsigned byte.
func (c *Cursor) ReadUint8() (uint8, error) {
	if c.pos >= len(c.buf) {
		return 0, newError(Truncated, c.pos, "need 1 byte, have 0")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadInt8 reads one signed byte.
func (c *Cursor) ReadInt8() (int8, error) {
	b, err := c.ReadUint8()
	return int8(b), err
}

// ReadUint16 reads a big-endian unsigned 16-bit integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadInt32 reads a big-endian signed 32-bit integer.
func (c *Cursor) ReadInt32() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadInt64 reads a big-endian signed 64-bit integer.
func (c *Cursor) ReadInt64() (int64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadFloat32 reads a big-endian IEEE 754 single.
func (c *Cursor) ReadFloat32() (float32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// ReadFloat64 reads a big-endian IEEE 754 double.
func (c *Cursor) ReadFloat64() (float64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadBytes returns the next n bytes without copying them.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	return c.take(n)
}
