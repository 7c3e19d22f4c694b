package etf

import "math"

// Interface returns d as plain Go values: nil, bool, int32, int64, float64,
// string, []byte, []any or map[string]any.  Map key order is lost.
func (d Document) Interface() any {
	switch d.kind {
	case KindBool:
		b, _ := d.BoolOK()
		return b
	case KindInt32:
		i, _ := d.Int32OK()
		return i
	case KindInt64:
		i, _ := d.Int64OK()
		return i
	case KindFloat64:
		f, _ := d.Float64OK()
		return f
	case KindText:
		return d.str
	case KindByteList:
		return d.raw
	case KindList:
		out := make([]any, len(d.list))
		for i, v := range d.list {
			out[i] = v.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, d.m.Len())
		d.m.Range(func(k string, v Document) bool {
			out[k] = v.Interface()
			return true
		})
		return out
	}
	return nil
}

// FromInterface builds a Document from plain Go values, such as those
// produced by Interface or by the JSON, CBOR and YAML decoders.  Integers
// become Int32 when they fit and Int64 otherwise; unsigned values above
// 2^63-1 are rejected.  Maps must have string keys and are converted in no
// particular order.
func FromInterface(v any) (Document, error) {
	return fromInterface(v, 0)
}

func fromInterface(v any, depth int) (Document, error) {
	if depth > defaultMaxDepth {
		return Document{}, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
	}
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Document:
		return x, nil
	case *Map:
		return MapDoc(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return fromInt64(int64(x)), nil
	case int8:
		return Int32(int32(x)), nil
	case int16:
		return Int32(int32(x)), nil
	case int32:
		return Int32(x), nil
	case int64:
		return fromInt64(x), nil
	case uint:
		return fromUint64(uint64(x))
	case uint8:
		return Int32(int32(x)), nil
	case uint16:
		return Int32(int32(x)), nil
	case uint32:
		return fromInt64(int64(x)), nil
	case uint64:
		return fromUint64(x)
	case float32:
		return Float64(float64(x)), nil
	case float64:
		return Float64(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return ByteList(x), nil
	case []any:
		elems := make([]Document, len(x))
		for i, e := range x {
			d, err := fromInterface(e, depth+1)
			if err != nil {
				return Document{}, err
			}
			elems[i] = d
		}
		return List(elems...), nil
	case map[string]any:
		m := NewMap(len(x))
		for k, e := range x {
			d, err := fromInterface(e, depth+1)
			if err != nil {
				return Document{}, err
			}
			m.Set(k, d)
		}
		return MapDoc(m), nil
	case map[any]any:
		m := NewMap(len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return Document{}, newError(NonStringKey, -1, "map key of type %T", k)
			}
			d, err := fromInterface(e, depth+1)
			if err != nil {
				return Document{}, err
			}
			m.Set(ks, d)
		}
		return MapDoc(m), nil
	}
	return Document{}, newError(InvalidEncodeType, -1, "no document for Go type %T", v)
}

func fromInt64(i int64) Document {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return Int64(i)
	}
	return Int32(int32(i))
}

func fromUint64(u uint64) (Document, error) {
	if u > math.MaxInt64 {
		return Document{}, newError(UnsupportedMagnitude, -1, "%d overflows int64", u)
	}
	return fromInt64(int64(u)), nil
}
