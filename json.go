// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package etf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16BEBOM = []byte{0xFE, 0xFF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf32BEBOM = []byte{0x00, 0x00, 0xFE, 0xFF}
	utf32LEBOM = []byte{0xFF, 0xFE, 0x00, 0x00}
)

// Numbers longer than this are rejected rather than copied.
const numberPeekWidth = 512

// JSONDecoder reads and decodes JSON objects into Documents from a buffered
// input stream.  Objects may be separated by optional white space or may be
// in a well-formed JSON array.  This is the gateway's other encoding, so a
// JSON payload and its binary counterpart decode to equal Documents, except
// that JSON has no byte lists and cannot tell 1.0 from 1.
//
// Object keys are interned for the life of the decoder.
type JSONDecoder struct {
	arrayFinished bool
	arrayStarted  bool
	curDepth      int
	json          *bufio.Reader
	keys          *interner
	maxDepth      int
	text          []byte
}

func newJSONDecoder(json *bufio.Reader) *JSONDecoder {
	if json.Size() < 8192 {
		json = bufio.NewReaderSize(json, 8192)
	}
	return &JSONDecoder{
		json:     json,
		keys:     newInterner(),
		maxDepth: defaultMaxDepth,
	}
}

// NewJSONDecoder returns a new decoder.  If a UTF-8 byte-order-mark (BOM)
// exists, it will be stripped.  Because only UTF-8 is supported, other BOMs
// are errors.  This function consumes leading white space and checks if the
// first character is '['.  If so, the input format is expected to be a
// single JSON array of objects and the stream will consist of the objects in
// the array.  Any read error (including io.EOF) will be returned.
func NewJSONDecoder(json *bufio.Reader) (*JSONDecoder, error) {
	d := newJSONDecoder(json)
	err := handleBOM(d.json)
	if err != nil {
		return nil, err
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before an object is read, EOF is valid.
		if err == io.EOF {
			return nil, err
		}
		return nil, newReadError(err)
	}

	switch ch {
	case '[':
		d.arrayStarted = true
	default:
		err = d.json.UnreadByte()
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// MaxDepth sets the maximum allowed depth of a JSON object.  The default is
// 200.
func (d *JSONDecoder) MaxDepth(n int) {
	d.maxDepth = n
}

// Decode converts a single JSON object from the input stream into a map
// Document.  The function returns io.EOF if no objects remain in the stream.
func (d *JSONDecoder) Decode() (Document, error) {
	if d.arrayFinished {
		return Document{}, io.EOF
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before reading a new object, EOF is valid.
		if err == io.EOF {
			return Document{}, err
		}
		return Document{}, newReadError(err)
	}

	switch ch {
	case '{':
	case ']':
		if d.arrayStarted {
			d.arrayFinished = true
			return Document{}, io.EOF
		}
		return Document{}, d.parseError(ch, "Decode only supports object decoding")
	default:
		return Document{}, d.parseError(ch, "Decode only supports object decoding")
	}

	doc, err := d.decodeObject()
	if err != nil {
		return Document{}, err
	}

	// In array mode, consume the comma or the closing ']'.
	if d.arrayStarted {
		ch, err := d.readAfterWS()
		if err != nil {
			return Document{}, newReadError(err)
		}

		switch ch {
		case ',':
			// nothing
		case ']':
			d.arrayFinished = true
		default:
			return Document{}, d.parseError(ch, "expecting value-separator or end of array")
		}
	}

	return doc, nil
}

// FromJSON converts a single JSON object to a map Document.  The function
// returns io.EOF if the input is empty.
func FromJSON(in []byte) (Document, error) {
	jd, err := NewJSONDecoder(bufio.NewReader(bytes.NewReader(in)))
	if err != nil {
		return Document{}, err
	}
	return jd.Decode()
}

// UnmarshalJSON implements json.Unmarshaler.  Any JSON value is accepted.
func (d *Document) UnmarshalJSON(b []byte) error {
	jd := newJSONDecoder(bufio.NewReader(bytes.NewReader(b)))
	v, err := jd.decodeValue()
	if err != nil {
		return err
	}
	ch, err := jd.readAfterWS()
	if err == nil {
		return jd.parseError(ch, "unexpected data after value")
	}
	if err != io.EOF {
		return newReadError(err)
	}
	*d = v
	return nil
}

func (d *JSONDecoder) decodeValue() (Document, error) {
	ch, err := d.readAfterWS()
	if err != nil {
		return Document{}, newReadError(err)
	}

	switch ch {
	case '{':
		return d.decodeObject()
	case '[':
		return d.decodeArray()
	case 't':
		return d.decodeLiteral(ch, "rue", Bool(true))
	case 'f':
		return d.decodeLiteral(ch, "alse", Bool(false))
	case 'n':
		return d.decodeLiteral(ch, "ull", Null())
	case '"':
		err = d.readString()
		if err != nil {
			return Document{}, err
		}
		return Text(string(d.text)), nil
	default:
		// Either a number or an error.
		err = d.json.UnreadByte()
		if err != nil {
			return Document{}, err
		}
		return d.decodeNumber()
	}
}

// decodeObject decodes the members of an object whose '{' has been read.
func (d *JSONDecoder) decodeObject() (Document, error) {
	d.curDepth++
	if d.curDepth > d.maxDepth {
		return Document{}, newError(DepthExceeded, -1, "limit is %d", d.maxDepth)
	}
	defer func() { d.curDepth-- }()

	m := NewMap(0)

	// Check for empty object or start of key
	ch, err := d.readAfterWS()
	if err != nil {
		return Document{}, newReadError(err)
	}
	switch ch {
	case '}':
		return MapDoc(m), nil
	case '"':
	default:
		return Document{}, d.parseError(ch, "expecting key or end of object")
	}

	for {
		// The key's opening quote has been read.
		err = d.readString()
		if err != nil {
			return Document{}, err
		}
		key := d.keys.intern(d.text)

		err = d.readCharAfterWS(':')
		if err != nil {
			return Document{}, err
		}

		v, err := d.decodeValue()
		if err != nil {
			return Document{}, err
		}
		m.Set(key, v)

		ch, err = d.readAfterWS()
		if err != nil {
			return Document{}, newReadError(err)
		}
		switch ch {
		case ',':
			// Next non-WS character must be quote to start key
			ch, err = d.readAfterWS()
			if err != nil {
				return Document{}, newReadError(err)
			}
			if ch != '"' {
				return Document{}, d.parseError(ch, "expecting key")
			}
		case '}':
			return MapDoc(m), nil
		default:
			return Document{}, d.parseError(ch, "expecting value-separator or end of object")
		}
	}
}

// decodeArray decodes the elements of an array whose '[' has been read.
func (d *JSONDecoder) decodeArray() (Document, error) {
	d.curDepth++
	if d.curDepth > d.maxDepth {
		return Document{}, newError(DepthExceeded, -1, "limit is %d", d.maxDepth)
	}
	defer func() { d.curDepth-- }()

	ch, err := d.readAfterWS()
	if err != nil {
		return Document{}, newReadError(err)
	}

	// Case: empty array
	if ch == ']' {
		return List(), nil
	}

	// Not empty: unread the byte for decodeValue to check
	err = d.json.UnreadByte()
	if err != nil {
		return Document{}, err
	}

	var elems []Document
	for {
		v, err := d.decodeValue()
		if err != nil {
			return Document{}, err
		}
		elems = append(elems, v)

		ch, err = d.readAfterWS()
		if err != nil {
			return Document{}, newReadError(err)
		}
		switch ch {
		case ',':
		case ']':
			return List(elems...), nil
		default:
			return Document{}, d.parseError(ch, "expecting value-separator or end of array")
		}
	}
}

// decodeLiteral checks the rest of true, false or null after its first
// character.
func (d *JSONDecoder) decodeLiteral(first byte, rest string, v Document) (Document, error) {
	buf, err := d.json.Peek(len(rest))
	if err != nil {
		return Document{}, newReadError(err)
	}
	if string(buf) != rest {
		return Document{}, d.parseError(first, fmt.Sprintf("expecting %c%s", first, rest))
	}
	_, err = d.json.Discard(len(rest))
	if err != nil {
		return Document{}, fmt.Errorf("unexpected error discarding buffered reader: %v", err)
	}
	return v, nil
}

func (d *JSONDecoder) decodeNumber() (Document, error) {
	var isFloat bool
	var terminated bool

	buf, err := d.json.Peek(numberPeekWidth)
	if err != nil {
		// here, io.EOF is OK, since we're peeking and may hit end of
		// object
		if err != io.EOF {
			return Document{}, err
		}
	}

	// Find where the number appears to ends and if it's a float.
	var i int
LOOP:
	for i = 0; i < len(buf); i++ {
		switch buf[i] {
		case 'e', 'E', '.':
			isFloat = true
		case ' ', '\t', '\n', '\r', ',', ']', '}':
			terminated = true
			break LOOP
		}
	}

	// A number may end the input; the caller decides if that is truncation.
	if !terminated && len(buf) >= numberPeekWidth {
		return Document{}, d.parseError(buf[i-1], "number too long")
	}
	if i == 0 || !validNumber(buf[:i]) {
		return Document{}, d.parseError(buf[0], "invalid number")
	}

	var doc Document
	if isFloat {
		doc, err = parseFloat(buf[:i])
	} else {
		doc, err = parseInt(buf[:i])
	}
	if err != nil {
		return Document{}, err
	}

	// i is at terminator or whitespace, so discard just before that.
	_, err = d.json.Discard(i)
	if err != nil {
		return Document{}, fmt.Errorf("unexpected error discarding buffered reader: %v", err)
	}
	return doc, nil
}

func parseFloat(buf []byte) (Document, error) {
	n, err := strconv.ParseFloat(string(buf), 64)
	if err != nil {
		return Document{}, newError(Syntax, -1, "float conversion: value out of range: %s", buf)
	}
	return Float64(n), nil
}

// parseInt returns an Int32 when the value fits, then an Int64, and falls
// back to a Float64 for integers beyond 64 bits.
func parseInt(buf []byte) (Document, error) {
	n, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return parseFloat(buf)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return Int64(n), nil
	}
	return Int32(int32(n)), nil
}

// validNumber checks the JSON number grammar, which is stricter than what
// strconv accepts.
func validNumber(b []byte) bool {
	i := 0
	if b[i] == '-' {
		i++
	}
	switch {
	case i >= len(b):
		return false
	case b[i] == '0':
		i++
	case isDigit(b[i]):
		for i < len(b) && isDigit(b[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(b) && b[i] == '.' {
		i++
		start := i
		for i < len(b) && isDigit(b[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		start := i
		for i < len(b) && isDigit(b[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// readString reads the rest of a string whose opening quote has been read,
// leaving the unescaped bytes in d.text.  Escaped surrogate pairs are
// combined; unpaired surrogates become U+FFFD.
func (d *JSONDecoder) readString() error {
	d.text = d.text[:0]
	pending := rune(-1)
	flush := func() {
		if pending >= 0 {
			d.text = utf8.AppendRune(d.text, utf8.RuneError)
			pending = -1
		}
	}

	var terminated bool
	var charsNeeded = 1

	for !terminated {
		// peek ahead 64 bytes
		buf, err := d.json.Peek(64)
		if err != nil {
			// here, io.EOF is OK, since we're only peeking and may hit end of
			// object
			if err != io.EOF {
				return err
			}
		}

		// if not enough chars, input ended before closing quote or end of
		// escape sequence
		if len(buf) < charsNeeded {
			return newReadError(io.ErrUnexpectedEOF)
		}

		var i int
	INNER:
		for i = 0; i < len(buf); i++ {
			ch := buf[i]
			switch ch {
			case '\\':
				// need at least two chars in buf
				if len(buf)-i < 2 {
					charsNeeded = 2
					break INNER
				}
				if buf[i+1] != 'u' {
					flush()
				}

				switch buf[i+1] {
				case '"', '\\', '/':
					d.text = append(d.text, buf[i+1])
				case 'b':
					d.text = append(d.text, '\b')
				case 'f':
					d.text = append(d.text, '\f')
				case 'n':
					d.text = append(d.text, '\n')
				case 'r':
					d.text = append(d.text, '\r')
				case 't':
					d.text = append(d.text, '\t')
				case 'u':
					// "\uXXXX" needs 6 chars total from i
					if len(buf)-i < 6 {
						charsNeeded = 6
						break INNER
					}
					r, ok := hexRune(buf[i+2 : i+6])
					if !ok {
						return d.parseError(ch, "invalid unicode escape")
					}
					switch {
					case pending >= 0 && r >= 0xDC00 && r <= 0xDFFF:
						d.text = utf8.AppendRune(d.text, utf16.DecodeRune(pending, r))
						pending = -1
					case r >= 0xD800 && r <= 0xDBFF:
						flush()
						pending = r
					default:
						// A lone low surrogate is appended as U+FFFD.
						flush()
						d.text = utf8.AppendRune(d.text, r)
					}
					i += 4
				default:
					return d.parseError(ch, fmt.Sprintf("unknown escape '%s'", string(buf[i+1])))
				}
				i++
				// escape done, go back to needing only one char at a time
				charsNeeded = 1
			case '"':
				flush()
				terminated = true
				break INNER
			default:
				if ch < 0x20 {
					return d.parseError(ch, "unescaped control character in string")
				}
				flush()
				d.text = append(d.text, ch)
			}
		}

		// If terminated, closing quote is at index i, so discard i + 1 bytes
		// to include it, otherwise only discard i bytes to skip the text
		// we've copied.
		if terminated {
			_, err = d.json.Discard(i + 1)
		} else {
			_, err = d.json.Discard(i)
		}
		if err != nil {
			return fmt.Errorf("unexpected error discarding buffered reader: %v", err)
		}
	}

	return nil
}

func hexRune(b []byte) (rune, bool) {
	var r rune
	for _, c := range b {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c-'a') + 10
		case c >= 'A' && c <= 'F':
			r |= rune(c-'A') + 10
		default:
			return 0, false
		}
	}
	return r, true
}

func (d *JSONDecoder) readAfterWS() (byte, error) {
	for {
		ch, err := d.json.ReadByte()
		if err != nil {
			return 0, err
		}
		switch ch {
		case ' ', '\t', '\n', '\r':
		default:
			return ch, nil
		}
	}
}

func (d *JSONDecoder) readCharAfterWS(b byte) error {
	ch, err := d.readAfterWS()
	if err != nil {
		return newReadError(err)
	}
	if ch != b {
		return d.parseError(ch, fmt.Sprintf("expecting '%c'", b))
	}
	return nil
}

func (d *JSONDecoder) parseError(ch byte, msg string) error {
	after, _ := d.json.Peek(20)
	return newError(Syntax, -1, "%s on char '%s', followed by '%s...'", msg, string(ch), after)
}

// detect/discard/error on BOM. Inability to peek is a NOP and
// will be handled by the normal parser
func handleBOM(r *bufio.Reader) error {
	// Peek 2 byte BOMs
	preamble, err := r.Peek(2)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf16BEBOM) || bytes.Equal(preamble, utf16LEBOM) {
		return newError(Syntax, 0, "detected unsupported UTF-16 BOM")
	}

	// Peek 3 byte BOM; UTF-8 is supported, so discard them if found.
	preamble, err = r.Peek(3)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf8BOM) {
		_, _ = r.Discard(3)
	}

	// Peek 4 byte BOMs
	preamble, err = r.Peek(4)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf32BEBOM) || bytes.Equal(preamble, utf32LEBOM) {
		return newError(Syntax, 0, "detected unsupported UTF-32 BOM")
	}

	return nil
}

// newReadError is used when we expect to be able to read and fail.  If the
// error is EOF, we convert it to UnexpectedEOF because we aren't between
// top-level objects.
func newReadError(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err == io.ErrUnexpectedEOF {
		return wrapError(Truncated, -1, err, "error reading json")
	}
	return fmt.Errorf("error reading json: %w", err)
}
