package etf

import (
	"fmt"
	"math"
)

// Kind identifies the variant held by a Document.
type Kind uint8

const (
	// KindInvalid is the kind of the zero Document.  It has no encoding.
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInt32
	KindInt64
	KindFloat64
	KindText
	KindByteList
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindText:
		return "text"
	case KindByteList:
		return "bytelist"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Document is a dynamic value decoded from, or to be encoded into, a
// message.  Documents are built with the constructor functions (Null, Bool,
// Int32, Int64, Float64, Text, ByteList, List and MapDoc) and inspected with
// Kind and the *OK accessors.
type Document struct {
	kind Kind
	num  uint64
	str  string
	raw  []byte
	list []Document
	m    *Map
}

// Null returns the null document.
func Null() Document { return Document{kind: KindNull} }

// Bool returns a boolean document.
func Bool(b bool) Document {
	d := Document{kind: KindBool}
	if b {
		d.num = 1
	}
	return d
}

// Int32 returns a 32-bit integer document.
func Int32(i int32) Document { return Document{kind: KindInt32, num: uint64(int64(i))} }

// Int64 returns a 64-bit integer document.
func Int64(i int64) Document { return Document{kind: KindInt64, num: uint64(i)} }

// Float64 returns a floating point document.
func Float64(f float64) Document { return Document{kind: KindFloat64, num: math.Float64bits(f)} }

// Text returns a text document.
func Text(s string) Document { return Document{kind: KindText, str: s} }

// ByteList returns a byte list document.  Each byte is an element with a
// value between 0 and 255.  The slice is not copied.
func ByteList(b []byte) Document {
	if b == nil {
		b = []byte{}
	}
	return Document{kind: KindByteList, raw: b}
}

// List returns a list document holding elems.  The slice is not copied.
func List(elems ...Document) Document {
	if elems == nil {
		elems = []Document{}
	}
	return Document{kind: KindList, list: elems}
}

// MapDoc returns a map document for m.  A nil m is an empty map.
func MapDoc(m *Map) Document {
	if m == nil {
		m = NewMap(0)
	}
	return Document{kind: KindMap, m: m}
}

// Kind returns the variant held by d.
func (d Document) Kind() Kind { return d.kind }

// IsNull reports whether d is the null document.
func (d Document) IsNull() bool { return d.kind == KindNull }

// BoolOK returns the boolean held by d and whether d is a bool.
func (d Document) BoolOK() (bool, bool) { return d.num != 0, d.kind == KindBool }

// Int32OK returns the 32-bit integer held by d and whether d is an int32.
func (d Document) Int32OK() (int32, bool) { return int32(int64(d.num)), d.kind == KindInt32 }

// Int64OK returns the 64-bit integer held by d and whether d is an int64.
func (d Document) Int64OK() (int64, bool) { return int64(d.num), d.kind == KindInt64 }

// Float64OK returns the float held by d and whether d is a float64.
func (d Document) Float64OK() (float64, bool) {
	return math.Float64frombits(d.num), d.kind == KindFloat64
}

// TextOK returns the text held by d and whether d is text.
func (d Document) TextOK() (string, bool) { return d.str, d.kind == KindText }

// ByteListOK returns the bytes held by d and whether d is a byte list.  The
// returned slice must not be modified.
func (d Document) ByteListOK() ([]byte, bool) { return d.raw, d.kind == KindByteList }

// ListOK returns the elements held by d and whether d is a list.  The
// returned slice must not be modified.
func (d Document) ListOK() ([]Document, bool) { return d.list, d.kind == KindList }

// MapOK returns the map held by d and whether d is a map.
func (d Document) MapOK() (*Map, bool) { return d.m, d.kind == KindMap }

// Len returns the number of elements of a list, byte list or map, the byte
// length of text, and zero for every other kind.
func (d Document) Len() int {
	switch d.kind {
	case KindText:
		return len(d.str)
	case KindByteList:
		return len(d.raw)
	case KindList:
		return len(d.list)
	case KindMap:
		return d.m.Len()
	}
	return 0
}

// Equal reports whether d and o hold the same value.  Maps compare equal
// regardless of key order.  Floats compare by bit pattern, so NaN equals an
// identical NaN and 0.0 differs from -0.0.
func (d Document) Equal(o Document) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindInvalid, KindNull:
		return true
	case KindBool, KindInt32, KindInt64, KindFloat64:
		return d.num == o.num
	case KindText:
		return d.str == o.str
	case KindByteList:
		if len(d.raw) != len(o.raw) {
			return false
		}
		for i := range d.raw {
			if d.raw[i] != o.raw[i] {
				return false
			}
		}
		return true
	case KindList:
		if len(d.list) != len(o.list) {
			return false
		}
		for i := range d.list {
			if !d.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return d.m.Equal(o.m)
	}
	return false
}

// String returns a compact debugging representation of d.
func (d Document) String() string {
	switch d.kind {
	case KindNull:
		return "null"
	case KindBool:
		b, _ := d.BoolOK()
		return fmt.Sprint(b)
	case KindInt32:
		i, _ := d.Int32OK()
		return fmt.Sprintf("int32(%d)", i)
	case KindInt64:
		i, _ := d.Int64OK()
		return fmt.Sprintf("int64(%d)", i)
	case KindFloat64:
		f, _ := d.Float64OK()
		return fmt.Sprintf("float64(%v)", f)
	case KindText:
		return fmt.Sprintf("%q", d.str)
	case KindByteList:
		return fmt.Sprintf("bytelist%v", d.raw)
	case KindList:
		return fmt.Sprint(d.list)
	case KindMap:
		return d.m.String()
	}
	return "invalid"
}

// Map is an insertion-ordered map from text keys to documents.  Keys are
// unique; setting an existing key replaces its value in place.  The zero
// value is an empty map ready to use.
type Map struct {
	keys  []string
	vals  []Document
	index map[string]int
}

// NewMap returns an empty map with room for n entries.
func NewMap(n int) *Map {
	return &Map{
		keys:  make([]string, 0, n),
		vals:  make([]Document, 0, n),
		index: make(map[string]int, n),
	}
}

// Len returns the number of entries.  A nil map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Set stores v under key and returns m for chaining.
func (m *Map) Set(key string, v Document) *Map {
	if i, ok := m.index[key]; ok {
		m.vals[i] = v
		return m
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, v)
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Document, bool) {
	if m == nil {
		return Document{}, false
	}
	i, ok := m.index[key]
	if !ok {
		return Document{}, false
	}
	return m.vals[i], true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if m == nil {
		return false
	}
	i, ok := m.index[key]
	if !ok {
		return false
	}
	copy(m.keys[i:], m.keys[i+1:])
	copy(m.vals[i:], m.vals[i+1:])
	m.keys = m.keys[:len(m.keys)-1]
	m.vals[len(m.vals)-1] = Document{}
	m.vals = m.vals[:len(m.vals)-1]
	delete(m.index, key)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Keys returns the keys in insertion order.  The slice must not be modified.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, v Document) bool) {
	if m == nil {
		return
	}
	for i, k := range m.keys {
		if !fn(k, m.vals[i]) {
			return
		}
	}
}

// Equal reports whether m and o hold the same entries, in any order.
func (m *Map) Equal(o *Map) bool {
	if m.Len() != o.Len() {
		return false
	}
	for i, k := range m.Keys() {
		v, ok := o.Get(k)
		if !ok || !m.vals[i].Equal(v) {
			return false
		}
	}
	return true
}

func (m *Map) String() string {
	s := "{"
	m.Range(func(k string, v Document) bool {
		if len(s) > 1 {
			s += ", "
		}
		s += fmt.Sprintf("%q: %v", k, v)
		return true
	})
	return s + "}"
}
