package etf

import (
	"encoding/binary"
	"math"
	"math/bits"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

// Encoder encodes Documents into messages.
//
// An encoder built in reuse mode keeps its staging buffer and zlib state
// between calls and must not be used by more than one goroutine at a time.
// A stateless encoder may be shared freely once configured.
type Encoder struct {
	reuse    bool
	compress bool
	level    int
	maxDepth int

	staging  []byte
	deflater *deflater
}

// NewEncoder returns a new encoder.  If reuse is true, staging buffers and
// compression state are retained across calls.
func NewEncoder(reuse bool) *Encoder {
	return &Encoder{
		reuse:    reuse,
		level:    zlib.DefaultCompression,
		maxDepth: defaultMaxDepth,
	}
}

// Compress toggles wrapping the message's term in a compressed term.
func (e *Encoder) Compress(b bool) {
	e.compress = b
}

// CompressionLevel sets the zlib level used when compression is on.  The
// default is zlib.DefaultCompression.
func (e *Encoder) CompressionLevel(level int) {
	e.level = level
	e.deflater = nil
}

// MaxDepth sets the maximum nesting depth of lists and maps.  The default is
// 200.  Exceeding it, as a map that contains itself would, is an error.
func (e *Encoder) MaxDepth(n int) {
	e.maxDepth = n
}

// Encode appends the message encoding of doc to out.  If out is not large
// enough, a new buffer will be allocated on demand.  The final buffer is
// returned, just like with `append`.  The document must be a map.
func (e *Encoder) Encode(out []byte, doc Document) ([]byte, error) {
	if doc.Kind() != KindMap {
		return nil, newError(InvalidEncodeType, -1, "message root must be a map, got %s", doc.Kind())
	}

	out = append(out, FormatVersion)
	if !e.compress {
		return e.appendTerm(out, doc, 0)
	}

	var staging []byte
	if e.reuse {
		staging = e.staging[:0]
	}
	staging, err := e.appendTerm(staging, doc, 0)
	if err != nil {
		return nil, err
	}
	if e.reuse {
		e.staging = staging
	}
	if len(staging) > math.MaxInt32 {
		return nil, newError(InvalidEncodeType, -1, "uncompressed term of %d bytes", len(staging))
	}

	out = append(out, byte(TagCompressed))
	out = appendUint32(out, uint32(len(staging)))

	f := e.deflater
	if f == nil {
		f = &deflater{level: e.level}
		if e.reuse {
			e.deflater = f
		}
	}
	out, err = f.deflate(out, staging)
	if err != nil {
		return nil, wrapError(InvalidEncodeType, -1, err, "compressing term")
	}
	return out, nil
}

func appendUint16(out []byte, v uint16) []byte {
	return append(out, byte(v>>8), byte(v))
}

func appendUint32(out []byte, v uint32) []byte {
	return append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func overwriteLength(out []byte, pos int, n int) {
	binary.BigEndian.PutUint32(out[pos:pos+4], uint32(n))
}

func (e *Encoder) appendTerm(out []byte, doc Document, depth int) ([]byte, error) {
	switch doc.Kind() {
	case KindText:
		s, _ := doc.TextOK()
		return appendBinary(out, s)
	case KindMap:
		m, _ := doc.MapOK()
		return e.appendMap(out, m, depth)
	case KindInt32:
		v, _ := doc.Int32OK()
		if v >= 0 && v <= math.MaxUint8 {
			return append(out, byte(TagSmallInteger), byte(v)), nil
		}
		out = append(out, byte(TagInteger))
		return appendUint32(out, uint32(v)), nil
	case KindInt64:
		v, _ := doc.Int64OK()
		return appendSmallBig(out, v), nil
	case KindFloat64:
		v, _ := doc.Float64OK()
		out = append(out, byte(TagNewFloat))
		return binary.BigEndian.AppendUint64(out, math.Float64bits(v)), nil
	case KindList:
		elems, _ := doc.ListOK()
		return e.appendList(out, elems, depth)
	case KindByteList:
		b, _ := doc.ByteListOK()
		return e.appendByteList(out, b), nil
	case KindBool:
		if b, _ := doc.BoolOK(); b {
			return appendAtom(out, "true")
		}
		return appendAtom(out, "false")
	case KindNull:
		return appendAtom(out, "nil")
	default:
		return nil, newError(InvalidEncodeType, -1, "no encoding for %s document", doc.Kind())
	}
}

func (e *Encoder) appendMap(out []byte, m *Map, depth int) ([]byte, error) {
	if depth >= e.maxDepth {
		return nil, newError(DepthExceeded, -1, "limit is %d", e.maxDepth)
	}
	n := m.Len()
	if n > math.MaxInt32 {
		return nil, newError(InvalidEncodeType, -1, "map with %d entries", n)
	}
	out = append(out, byte(TagMap))
	out = appendUint32(out, uint32(n))

	var err error
	for i, k := range m.Keys() {
		out, err = appendBinary(out, k)
		if err != nil {
			return nil, err
		}
		out, err = e.appendTerm(out, m.vals[i], depth+1)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Encoder) appendList(out []byte, elems []Document, depth int) ([]byte, error) {
	if depth >= e.maxDepth {
		return nil, newError(DepthExceeded, -1, "limit is %d", e.maxDepth)
	}
	if len(elems) > math.MaxInt32 {
		return nil, newError(InvalidEncodeType, -1, "list with %d elements", len(elems))
	}
	out = append(out, byte(TagList))
	out = appendUint32(out, uint32(len(elems)))

	var err error
	for _, elem := range elems {
		out, err = e.appendTerm(out, elem, depth+1)
		if err != nil {
			return nil, err
		}
	}
	return append(out, byte(TagNil)), nil
}

// appendByteList writes a byte list as a string term.  Lists too long for
// the string term's 16-bit length are written as lists of small integers.
func (e *Encoder) appendByteList(out []byte, b []byte) []byte {
	if len(b) <= maxByteListLength {
		out = append(out, byte(TagString))
		out = appendUint16(out, uint16(len(b)))
		return append(out, b...)
	}
	out = append(out, byte(TagList))
	out = appendUint32(out, uint32(len(b)))
	for _, v := range b {
		out = append(out, byte(TagSmallInteger), v)
	}
	return append(out, byte(TagNil))
}

// appendSmallBig writes v as a sign byte plus the fewest little-endian
// magnitude bytes that hold |v|.  Zero has no magnitude bytes.
func appendSmallBig(out []byte, v int64) []byte {
	var sign byte
	mag := uint64(v)
	if v < 0 {
		sign = 1
		mag = uint64(-v)
	}
	n := (bits.Len64(mag) + 7) / 8
	out = append(out, byte(TagSmallBig), byte(n), sign)
	for i := 0; i < n; i++ {
		out = append(out, byte(mag))
		mag >>= 8
	}
	return out
}

// appendAtom writes s as an atom.  Atoms are limited to 7-bit ASCII without
// NUL.
func appendAtom(out []byte, s string) ([]byte, error) {
	if len(s) > maxAtomLength {
		return nil, newError(InvalidEncodeType, -1, "atom of %d bytes", len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= utf8.RuneSelf {
			return nil, newError(InvalidEncodeType, -1, "non-ASCII byte 0x%02x in atom %q", s[i], s)
		}
	}
	out = append(out, byte(TagAtom))
	out = appendUint16(out, uint16(len(s)))
	return append(out, s...), nil
}

// appendBinary writes s as a binary term.  The UTF-8 bytes are emitted one
// code point at a time, with invalid input bytes replaced by U+FFFD, and the
// length is patched in once the byte count is known.
func appendBinary(out []byte, s string) ([]byte, error) {
	out = append(out, byte(TagBinary))
	lengthPos := len(out)
	out = append(out, 0, 0, 0, 0)
	start := len(out)

	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			out = append(out, c)
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r < 0x800:
			out = append(out,
				0xC0|byte(r>>6),
				0x80|byte(r)&0x3F)
		case r < 0x10000:
			out = append(out,
				0xE0|byte(r>>12),
				0x80|byte(r>>6)&0x3F,
				0x80|byte(r)&0x3F)
		default:
			out = append(out,
				0xF0|byte(r>>18),
				0x80|byte(r>>12)&0x3F,
				0x80|byte(r>>6)&0x3F,
				0x80|byte(r)&0x3F)
		}
	}

	n := len(out) - start
	if n > math.MaxInt32 {
		return nil, newError(InvalidEncodeType, -1, "binary of %d bytes", n)
	}
	overwriteLength(out, lengthPos, n)
	return out, nil
}
