package etf

import (
	"math"
	"strconv"
)

// Array is the element slice of a list document, with typed getters by
// index.
type Array []Document

// GetString returns the text stored under key.  Numbers and booleans are
// formatted as text.
func (m *Map) GetString(key string) (string, error) {
	v, err := m.lookup(key)
	if err != nil {
		return "", err
	}
	return asString(v, key)
}

// GetInt returns the 32-bit integer stored under key.  Text is parsed in
// base 10.
func (m *Map) GetInt(key string) (int32, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	return asInt(v, key)
}

// GetLong returns the integer stored under key.  Text is parsed in base 10.
func (m *Map) GetLong(key string) (int64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	return asLong(v, key)
}

// GetUnsignedLong returns the unsigned 64-bit integer stored under key as
// its int64 bit pattern.  Snowflake IDs above 2^63-1 arrive as text and come
// back negative.
func (m *Map) GetUnsignedLong(key string) (int64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	return asUnsignedLong(v, key)
}

// GetDouble returns the number stored under key as a float64.
func (m *Map) GetDouble(key string) (float64, error) {
	v, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	return asDouble(v, key)
}

// GetBool returns the boolean stored under key.  The texts "true" and
// "false" are accepted.
func (m *Map) GetBool(key string) (bool, error) {
	v, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	return asBool(v, key)
}

// GetMap returns the map stored under key.
func (m *Map) GetMap(key string) (*Map, error) {
	v, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return asMap(v, key)
}

// GetList returns the elements of the list stored under key.
func (m *Map) GetList(key string) (Array, error) {
	v, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return asList(v, key)
}

// IsNull reports whether key is absent or holds null.
func (m *Map) IsNull(key string) bool {
	v, ok := m.Get(key)
	return !ok || v.IsNull()
}

func (m *Map) lookup(key string) (Document, error) {
	v, ok := m.Get(key)
	if !ok {
		return Document{}, newError(MissingKey, -1, "no value for %q", key)
	}
	return v, nil
}

func (a Array) lookup(i int) (Document, string, error) {
	label := strconv.Itoa(i)
	if i < 0 || i >= len(a) {
		return Document{}, label, newError(MissingKey, -1, "no element at index %d of %d", i, len(a))
	}
	return a[i], label, nil
}

// GetString returns the text at index i.
func (a Array) GetString(i int) (string, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return "", err
	}
	return asString(v, label)
}

// GetInt returns the 32-bit integer at index i.
func (a Array) GetInt(i int) (int32, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return 0, err
	}
	return asInt(v, label)
}

// GetLong returns the integer at index i.
func (a Array) GetLong(i int) (int64, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return 0, err
	}
	return asLong(v, label)
}

// GetUnsignedLong returns the unsigned integer at index i as its int64 bit
// pattern.
func (a Array) GetUnsignedLong(i int) (int64, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return 0, err
	}
	return asUnsignedLong(v, label)
}

// GetDouble returns the number at index i as a float64.
func (a Array) GetDouble(i int) (float64, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return 0, err
	}
	return asDouble(v, label)
}

// GetBool returns the boolean at index i.
func (a Array) GetBool(i int) (bool, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return false, err
	}
	return asBool(v, label)
}

// GetMap returns the map at index i.
func (a Array) GetMap(i int) (*Map, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return nil, err
	}
	return asMap(v, label)
}

// GetList returns the elements of the list at index i.
func (a Array) GetList(i int) (Array, error) {
	v, label, err := a.lookup(i)
	if err != nil {
		return nil, err
	}
	return asList(v, label)
}

// IsNull reports whether index i is out of range or holds null.
func (a Array) IsNull(i int) bool {
	return i < 0 || i >= len(a) || a[i].IsNull()
}

func mismatch(v Document, label, want string) error {
	return newError(TypeMismatch, -1, "value for %s is %s, not %s", label, v.Kind(), want)
}

func asString(v Document, label string) (string, error) {
	switch v.Kind() {
	case KindText:
		s, _ := v.TextOK()
		return s, nil
	case KindBool:
		b, _ := v.BoolOK()
		return strconv.FormatBool(b), nil
	case KindInt32:
		i, _ := v.Int32OK()
		return strconv.FormatInt(int64(i), 10), nil
	case KindInt64:
		i, _ := v.Int64OK()
		return strconv.FormatInt(i, 10), nil
	case KindFloat64:
		f, _ := v.Float64OK()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", mismatch(v, label, "text")
}

func asInt(v Document, label string) (int32, error) {
	switch v.Kind() {
	case KindInt32:
		i, _ := v.Int32OK()
		return i, nil
	case KindInt64:
		i, _ := v.Int64OK()
		if i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
	case KindText:
		s, _ := v.TextOK()
		if i, err := strconv.ParseInt(s, 10, 32); err == nil {
			return int32(i), nil
		}
	}
	return 0, mismatch(v, label, "int32")
}

func asLong(v Document, label string) (int64, error) {
	switch v.Kind() {
	case KindInt32:
		i, _ := v.Int32OK()
		return int64(i), nil
	case KindInt64:
		i, _ := v.Int64OK()
		return i, nil
	case KindText:
		s, _ := v.TextOK()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
	}
	return 0, mismatch(v, label, "int64")
}

func asUnsignedLong(v Document, label string) (int64, error) {
	switch v.Kind() {
	case KindInt32, KindInt64:
		return asLong(v, label)
	case KindText:
		s, _ := v.TextOK()
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return int64(u), nil
		}
	}
	return 0, mismatch(v, label, "uint64")
}

func asDouble(v Document, label string) (float64, error) {
	switch v.Kind() {
	case KindFloat64:
		f, _ := v.Float64OK()
		return f, nil
	case KindInt32:
		i, _ := v.Int32OK()
		return float64(i), nil
	case KindInt64:
		i, _ := v.Int64OK()
		return float64(i), nil
	case KindText:
		s, _ := v.TextOK()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	return 0, mismatch(v, label, "float64")
}

func asBool(v Document, label string) (bool, error) {
	switch v.Kind() {
	case KindBool:
		b, _ := v.BoolOK()
		return b, nil
	case KindText:
		switch s, _ := v.TextOK(); s {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, mismatch(v, label, "bool")
}

func asMap(v Document, label string) (*Map, error) {
	if m, ok := v.MapOK(); ok {
		return m, nil
	}
	return nil, mismatch(v, label, "map")
}

func asList(v Document, label string) (Array, error) {
	if l, ok := v.ListOK(); ok {
		return Array(l), nil
	}
	return nil, mismatch(v, label, "list")
}
