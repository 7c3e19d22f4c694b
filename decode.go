package etf

import (
	"bytes"
	"math"
)

const (
	defaultMaxDepth       = 200
	defaultMaxInflateSize = 64 << 20
)

// Decoder decodes messages into Documents.
//
// A decoder built in reuse mode keeps its scratch buffers, zlib state and
// (if enabled) its map key intern cache between calls; it must not be used
// by more than one goroutine at a time.  A stateless decoder allocates its
// scratch storage per call and may be shared freely once configured.
type Decoder struct {
	reuse          bool
	keyCache       bool
	maxDepth       int
	maxInflateSize int

	scratch  *scratch
	keys     *interner
	inflater *inflater
}

// NewDecoder returns a new decoder.  If reuse is true, scratch buffers and
// decompression state are retained across calls.
func NewDecoder(reuse bool) *Decoder {
	d := &Decoder{
		reuse:          reuse,
		maxDepth:       defaultMaxDepth,
		maxInflateSize: defaultMaxInflateSize,
	}
	if reuse {
		d.scratch = &scratch{}
		d.inflater = &inflater{}
	}
	return d
}

// KeyCache toggles interning of map keys, so keys repeated across messages
// share one string.  It only has an effect in reuse mode.
func (d *Decoder) KeyCache(b bool) {
	d.keyCache = b && d.reuse
	if d.keyCache && d.keys == nil {
		d.keys = newInterner()
	}
}

// MaxDepth sets the maximum nesting depth of lists and maps, and separately
// of compressed terms inside compressed terms.  The default is 200.
func (d *Decoder) MaxDepth(n int) {
	d.maxDepth = n
}

// MaxInflateSize sets the largest uncompressed size a compressed term may
// declare.  The default is 64 MiB.
func (d *Decoder) MaxInflateSize(n int) {
	d.maxInflateSize = n
}

// Decode decodes a single message from buf.  The message must start with
// the format version byte and hold a map.  Bytes after the message's term
// are ignored.  The returned Document does not reference buf.
func (d *Decoder) Decode(buf []byte) (Document, error) {
	return d.DecodeCursor(NewCursor(buf))
}

// DecodeCursor decodes a single message from c, leaving c positioned after
// the message's term.
func (d *Decoder) DecodeCursor(c *Cursor) (Document, error) {
	st := decodeState{
		maxDepth:       d.maxDepth,
		maxInflateSize: d.maxInflateSize,
		scratch:        d.scratch,
		inflater:       d.inflater,
	}
	if d.keyCache {
		st.keys = d.keys
	}
	return st.decodeMessage(c)
}

// decodeState is the per-call decoding state.  The scratch storage it points
// to belongs to the Decoder in reuse mode and to the call otherwise.
type decodeState struct {
	depth          int
	level          int
	maxDepth       int
	maxInflateSize int

	scratch  *scratch
	keys     *interner
	inflater *inflater
}

func (st *decodeState) decodeMessage(c *Cursor) (Document, error) {
	pos := c.Offset()
	v, err := c.ReadUint8()
	if err != nil {
		return Document{}, err
	}
	if v != FormatVersion {
		return Document{}, newError(MalformedEnvelope, pos, "expected version byte %d, got %d", FormatVersion, v)
	}

	pos = c.Offset()
	doc, err := st.decodeTerm(c, false)
	if err != nil {
		return Document{}, err
	}
	if doc.Kind() != KindMap {
		return Document{}, newError(MalformedEnvelope, pos, "root term must be a map, got %s", doc.Kind())
	}
	return doc, nil
}

func (st *decodeState) decodeTerm(c *Cursor, isKey bool) (Document, error) {
	pos := c.Offset()
	tag, err := c.ReadUint8()
	if err != nil {
		return Document{}, err
	}

	switch Tag(tag) {
	case TagSmallInteger:
		v, err := c.ReadUint8()
		if err != nil {
			return Document{}, err
		}
		return Int32(int32(v)), nil
	case TagInteger:
		v, err := c.ReadInt32()
		if err != nil {
			return Document{}, err
		}
		return Int32(v), nil
	case TagNewFloat:
		v, err := c.ReadFloat64()
		if err != nil {
			return Document{}, err
		}
		return Float64(v), nil
	case TagAtom:
		return st.decodeAtom(c, isKey)
	case TagNil:
		return List(), nil
	case TagString:
		return st.decodeByteList(c)
	case TagList:
		return st.decodeList(c, pos)
	case TagBinary:
		return st.decodeBinary(c, isKey)
	case TagSmallBig:
		return st.decodeSmallBig(c, pos)
	case TagMap:
		return st.decodeMap(c, pos)
	case TagCompressed:
		return st.decodeCompressed(c, pos)
	default:
		return Document{}, newError(UnsupportedTag, pos, "tag %d", tag)
	}
}

// text materializes a span as a string, going through the key cache for
// map keys.
func (st *decodeState) text(span []byte, isKey bool) string {
	if isKey && st.keys != nil {
		return st.keys.intern(span)
	}
	return string(span)
}

func (st *decodeState) decodeAtom(c *Cursor, isKey bool) (Document, error) {
	n, err := c.ReadUint16()
	if err != nil {
		return Document{}, err
	}
	span, err := c.ReadBytes(int(n))
	if err != nil {
		return Document{}, err
	}

	switch {
	case bytes.Equal(span, atomNil):
		return Null(), nil
	case bytes.Equal(span, atomTrue):
		return Bool(true), nil
	case bytes.Equal(span, atomFalse):
		return Bool(false), nil
	}
	return Text(st.text(span, isKey)), nil
}

func (st *decodeState) decodeBinary(c *Cursor, isKey bool) (Document, error) {
	n, err := c.ReadInt32()
	if err != nil {
		return Document{}, err
	}
	span, err := c.ReadBytes(int(n))
	if err != nil {
		return Document{}, err
	}
	return Text(st.text(span, isKey)), nil
}

func (st *decodeState) decodeByteList(c *Cursor) (Document, error) {
	n, err := c.ReadUint16()
	if err != nil {
		return Document{}, err
	}
	span, err := c.ReadBytes(int(n))
	if err != nil {
		return Document{}, err
	}
	elems := make([]byte, len(span))
	copy(elems, span)
	return ByteList(elems), nil
}

func (st *decodeState) decodeSmallBig(c *Cursor, pos int) (Document, error) {
	n, err := c.ReadUint8()
	if err != nil {
		return Document{}, err
	}
	sign, err := c.ReadInt8()
	if err != nil {
		return Document{}, err
	}
	if n > maxBigMagnitude {
		return Document{}, newError(UnsupportedMagnitude, pos, "%d magnitude bytes", n)
	}
	span, err := c.ReadBytes(int(n))
	if err != nil {
		return Document{}, err
	}

	// Magnitude is little-endian.
	var mag uint64
	for i, b := range span {
		mag |= uint64(b) << (8 * uint(i))
	}

	if sign == 0 {
		if mag > math.MaxInt64 {
			return Document{}, newError(UnsupportedMagnitude, pos, "%d overflows int64", mag)
		}
		return Int64(int64(mag)), nil
	}
	if mag > 1<<63 {
		return Document{}, newError(UnsupportedMagnitude, pos, "-%d overflows int64", mag)
	}
	return Int64(-int64(mag)), nil
}

func (st *decodeState) enter(pos int) error {
	st.depth++
	if st.depth > st.maxDepth {
		return newError(DepthExceeded, pos, "limit is %d", st.maxDepth)
	}
	return nil
}

// sizeHint bounds a preallocation by what the remaining input could hold.
func sizeHint(n int32, remaining, perElem int) int {
	hint := int(n)
	if limit := remaining / perElem; hint > limit {
		hint = limit
	}
	return hint
}

func (st *decodeState) decodeList(c *Cursor, pos int) (Document, error) {
	if err := st.enter(pos); err != nil {
		return Document{}, err
	}
	defer func() { st.depth-- }()

	n, err := c.ReadInt32()
	if err != nil {
		return Document{}, err
	}
	if n < 0 {
		return Document{}, newError(Truncated, pos, "negative list length %d", n)
	}

	elems := make([]Document, 0, sizeHint(n, c.Remaining(), 1))
	for i := int32(0); i < n; i++ {
		elem, err := st.decodeTerm(c, false)
		if err != nil {
			return Document{}, err
		}
		elems = append(elems, elem)
	}

	// The tail of a proper list is nil, but any well-formed term is
	// accepted and dropped.
	if _, err := st.decodeTerm(c, false); err != nil {
		return Document{}, err
	}
	return List(elems...), nil
}

func (st *decodeState) decodeMap(c *Cursor, pos int) (Document, error) {
	if err := st.enter(pos); err != nil {
		return Document{}, err
	}
	defer func() { st.depth-- }()

	n, err := c.ReadInt32()
	if err != nil {
		return Document{}, err
	}
	if n < 0 {
		return Document{}, newError(Truncated, pos, "negative map arity %d", n)
	}

	m := NewMap(sizeHint(n, c.Remaining(), 2))
	for i := int32(0); i < n; i++ {
		keyPos := c.Offset()
		key, err := st.decodeTerm(c, true)
		if err != nil {
			return Document{}, err
		}
		k, ok := key.TextOK()
		if !ok {
			return Document{}, newError(NonStringKey, keyPos, "map key is %s", key.Kind())
		}
		val, err := st.decodeTerm(c, false)
		if err != nil {
			return Document{}, err
		}
		m.Set(k, val)
	}
	return MapDoc(m), nil
}

func (st *decodeState) decodeCompressed(c *Cursor, pos int) (Document, error) {
	// A compressed term adds no document nesting, but compressed terms
	// nested inside one another share the depth limit.
	if st.level >= st.maxDepth {
		return Document{}, newError(DepthExceeded, pos, "limit is %d", st.maxDepth)
	}

	size, err := c.ReadInt32()
	if err != nil {
		return Document{}, err
	}
	if size < 0 {
		return Document{}, newError(DecompressionMismatch, pos, "negative uncompressed size %d", size)
	}
	if int(size) > st.maxInflateSize {
		return Document{}, newError(DecompressionMismatch, pos, "uncompressed size %d exceeds limit %d", size, st.maxInflateSize)
	}

	// The compressed payload runs to the end of the enclosing bound.
	payload, err := c.ReadBytes(c.Remaining())
	if err != nil {
		return Document{}, err
	}

	if st.scratch == nil {
		st.scratch = &scratch{}
	}
	if st.inflater == nil {
		st.inflater = &inflater{}
	}
	buf, err := st.inflater.inflate(st.scratch.get(st.level), int(size), payload)
	st.scratch.keep(st.level, buf)
	if err != nil {
		return Document{}, wrapError(DecompressionMismatch, pos, err, "")
	}

	st.level++
	defer func() { st.level-- }()
	return st.decodeTerm(NewCursor(buf), false)
}
