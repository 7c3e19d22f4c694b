package etf

import (
	"bytes"
	"math"
	"strconv"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// AppendJSON appends the JSON text of doc to out.  Maps keep their key order.
// Byte lists are written as arrays of numbers, and floats always carry a
// fraction or exponent so they read back as floats.  NaN and infinities have
// no JSON form and are rejected.
func AppendJSON(out []byte, doc Document) ([]byte, error) {
	return appendJSONValue(out, doc, 0)
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, d)
}

func appendJSONValue(out []byte, doc Document, depth int) ([]byte, error) {
	switch doc.Kind() {
	case KindNull:
		return append(out, "null"...), nil
	case KindBool:
		b, _ := doc.BoolOK()
		return strconv.AppendBool(out, b), nil
	case KindInt32:
		v, _ := doc.Int32OK()
		return strconv.AppendInt(out, int64(v), 10), nil
	case KindInt64:
		v, _ := doc.Int64OK()
		return strconv.AppendInt(out, v, 10), nil
	case KindFloat64:
		v, _ := doc.Float64OK()
		return appendJSONFloat(out, v)
	case KindText:
		s, _ := doc.TextOK()
		return appendJSONString(out, s), nil
	case KindByteList:
		b, _ := doc.ByteListOK()
		out = append(out, '[')
		for i, v := range b {
			if i > 0 {
				out = append(out, ',')
			}
			out = strconv.AppendUint(out, uint64(v), 10)
		}
		return append(out, ']'), nil
	case KindList:
		if depth >= defaultMaxDepth {
			return nil, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
		}
		elems, _ := doc.ListOK()
		out = append(out, '[')
		var err error
		for i, elem := range elems {
			if i > 0 {
				out = append(out, ',')
			}
			out, err = appendJSONValue(out, elem, depth+1)
			if err != nil {
				return nil, err
			}
		}
		return append(out, ']'), nil
	case KindMap:
		if depth >= defaultMaxDepth {
			return nil, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
		}
		m, _ := doc.MapOK()
		out = append(out, '{')
		var err error
		for i, k := range m.Keys() {
			if i > 0 {
				out = append(out, ',')
			}
			out = appendJSONString(out, k)
			out = append(out, ':')
			out, err = appendJSONValue(out, m.vals[i], depth+1)
			if err != nil {
				return nil, err
			}
		}
		return append(out, '}'), nil
	default:
		return nil, newError(InvalidEncodeType, -1, "no JSON form for %s document", doc.Kind())
	}
}

func appendJSONFloat(out []byte, f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, newError(InvalidEncodeType, -1, "no JSON form for float %v", f)
	}
	start := len(out)
	out = strconv.AppendFloat(out, f, 'g', -1, 64)
	if !bytes.ContainsAny(out[start:], ".eE") {
		out = append(out, '.', '0')
	}
	return out, nil
}

// appendJSONString writes s as a quoted JSON string.  Invalid UTF-8 is
// replaced by U+FFFD.
func appendJSONString(out []byte, s string) []byte {
	out = append(out, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			out = append(out, s[start:i]...)
			switch c {
			case '"', '\\':
				out = append(out, '\\', c)
			case '\n':
				out = append(out, '\\', 'n')
			case '\r':
				out = append(out, '\\', 'r')
			case '\t':
				out = append(out, '\\', 't')
			default:
				out = append(out, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, s[start:i]...)
			out = append(out, "\ufffd"...)
			i += size
			start = i
			continue
		}
		i += size
	}
	out = append(out, s[start:]...)
	return append(out, '"')
}
