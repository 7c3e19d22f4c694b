package etf

import (
	"strconv"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Array keys in BSON are decimal indexes; the common ones are precomputed.
var arrayKeys [256]string

func init() {
	for i := range arrayKeys {
		arrayKeys[i] = strconv.Itoa(i)
	}
}

func arrayKey(i int) string {
	if i < len(arrayKeys) {
		return arrayKeys[i]
	}
	return strconv.Itoa(i)
}

// AppendBSON appends the BSON encoding of a map document to out.  Byte lists
// become binary values of subtype 0.
func AppendBSON(out []byte, doc Document) ([]byte, error) {
	m, ok := doc.MapOK()
	if !ok {
		return nil, newError(InvalidEncodeType, -1, "BSON root must be a map, got %s", doc.Kind())
	}
	return appendBSONDocument(out, m, 0)
}

func appendBSONDocument(out []byte, m *Map, depth int) ([]byte, error) {
	if depth >= defaultMaxDepth {
		return nil, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
	}
	idx, out := bsoncore.AppendDocumentStart(out)
	var err error
	for i, k := range m.Keys() {
		out, err = appendBSONElement(out, k, m.vals[i], depth)
		if err != nil {
			return nil, err
		}
	}
	out, err = bsoncore.AppendDocumentEnd(out, idx)
	if err != nil {
		return nil, wrapError(InvalidEncodeType, -1, err, "")
	}
	return out, nil
}

func appendBSONElement(out []byte, key string, v Document, depth int) ([]byte, error) {
	switch v.Kind() {
	case KindNull:
		return bsoncore.AppendNullElement(out, key), nil
	case KindBool:
		b, _ := v.BoolOK()
		return bsoncore.AppendBooleanElement(out, key, b), nil
	case KindInt32:
		i, _ := v.Int32OK()
		return bsoncore.AppendInt32Element(out, key, i), nil
	case KindInt64:
		i, _ := v.Int64OK()
		return bsoncore.AppendInt64Element(out, key, i), nil
	case KindFloat64:
		f, _ := v.Float64OK()
		return bsoncore.AppendDoubleElement(out, key, f), nil
	case KindText:
		s, _ := v.TextOK()
		return bsoncore.AppendStringElement(out, key, s), nil
	case KindByteList:
		b, _ := v.ByteListOK()
		return bsoncore.AppendBinaryElement(out, key, 0x00, b), nil
	case KindMap:
		m, _ := v.MapOK()
		out = bsoncore.AppendHeader(out, bsontype.EmbeddedDocument, key)
		return appendBSONDocument(out, m, depth+1)
	case KindList:
		if depth+1 >= defaultMaxDepth {
			return nil, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
		}
		elems, _ := v.ListOK()
		idx, out := bsoncore.AppendArrayElementStart(out, key)
		var err error
		for i, elem := range elems {
			out, err = appendBSONElement(out, arrayKey(i), elem, depth+1)
			if err != nil {
				return nil, err
			}
		}
		out, err = bsoncore.AppendArrayEnd(out, idx)
		if err != nil {
			return nil, wrapError(InvalidEncodeType, -1, err, "")
		}
		return out, nil
	}
	return nil, newError(InvalidEncodeType, -1, "no BSON form for %s document", v.Kind())
}

// FromBSON converts a BSON document to a map document.  BSON types without a
// document counterpart, such as ObjectIDs and dates, are TypeMismatch errors.
func FromBSON(in []byte) (Document, error) {
	doc := bsoncore.Document(in)
	if err := doc.Validate(); err != nil {
		return Document{}, wrapError(MalformedEnvelope, -1, err, "invalid BSON")
	}
	m, err := fromBSONDocument(doc, 0)
	if err != nil {
		return Document{}, err
	}
	return MapDoc(m), nil
}

func fromBSONDocument(doc bsoncore.Document, depth int) (*Map, error) {
	if depth >= defaultMaxDepth {
		return nil, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
	}
	elems, err := doc.Elements()
	if err != nil {
		return nil, wrapError(MalformedEnvelope, -1, err, "invalid BSON")
	}
	m := NewMap(len(elems))
	for _, e := range elems {
		v, err := fromBSONValue(e.Key(), e.Value(), depth)
		if err != nil {
			return nil, err
		}
		m.Set(e.Key(), v)
	}
	return m, nil
}

func fromBSONValue(key string, v bsoncore.Value, depth int) (Document, error) {
	switch v.Type {
	case bsontype.Null:
		return Null(), nil
	case bsontype.Boolean:
		return Bool(v.Boolean()), nil
	case bsontype.Int32:
		return Int32(v.Int32()), nil
	case bsontype.Int64:
		return Int64(v.Int64()), nil
	case bsontype.Double:
		return Float64(v.Double()), nil
	case bsontype.String:
		return Text(v.StringValue()), nil
	case bsontype.Binary:
		subtype, data := v.Binary()
		if subtype != 0x00 {
			break
		}
		b := make([]byte, len(data))
		copy(b, data)
		return ByteList(b), nil
	case bsontype.EmbeddedDocument:
		m, err := fromBSONDocument(bsoncore.Document(v.Data), depth+1)
		if err != nil {
			return Document{}, err
		}
		return MapDoc(m), nil
	case bsontype.Array:
		if depth+1 >= defaultMaxDepth {
			return Document{}, newError(DepthExceeded, -1, "limit is %d", defaultMaxDepth)
		}
		vals, err := bsoncore.Document(v.Data).Values()
		if err != nil {
			return Document{}, wrapError(MalformedEnvelope, -1, err, "invalid BSON array")
		}
		elems := make([]Document, len(vals))
		for i, ev := range vals {
			elems[i], err = fromBSONValue(arrayKey(i), ev, depth+1)
			if err != nil {
				return Document{}, err
			}
		}
		return List(elems...), nil
	}
	return Document{}, newError(TypeMismatch, -1, "BSON %s under %q has no document form", v.Type, key)
}
