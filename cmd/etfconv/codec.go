package main

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/xdg-go/etf"
)

// formats lists the names accepted by --from and --to.
var formats = []string{"etf", "json", "bson", "cbor", "yaml"}

// cborEnc writes core deterministic CBOR, so map keys come out sorted.
var cborEnc cbor.EncMode

// cborDec decodes maps under any-typed targets as map[string]any.
var cborDec cbor.DecMode

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("etfconv: CBOR encoder initialization failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("etfconv: CBOR decoder initialization failed: " + err.Error())
	}
}

// converter holds the codec state shared by every input of one run.
type converter struct {
	from, to string
	dec      *etf.Decoder
	enc      *etf.Encoder
}

func newConverter(from, to string, reuse, compress bool) (*converter, error) {
	if !validFormat(from) {
		return nil, fmt.Errorf("unknown input format %q", from)
	}
	if !validFormat(to) {
		return nil, fmt.Errorf("unknown output format %q", to)
	}
	c := &converter{
		from: from,
		to:   to,
		dec:  etf.NewDecoder(reuse),
		enc:  etf.NewEncoder(reuse),
	}
	c.dec.KeyCache(reuse)
	c.enc.Compress(compress)
	return c, nil
}

func validFormat(name string) bool {
	for _, f := range formats {
		if f == name {
			return true
		}
	}
	return false
}

// convert decodes in from the input format and appends its encoding in the
// output format to out.
func (c *converter) convert(out, in []byte) ([]byte, error) {
	doc, err := c.decode(in)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c.from, err)
	}
	out, err = c.encode(out, doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c.to, err)
	}
	return out, nil
}

func (c *converter) decode(in []byte) (etf.Document, error) {
	switch c.from {
	case "etf":
		return c.dec.Decode(in)
	case "json":
		return etf.FromJSON(in)
	case "bson":
		return etf.FromBSON(in)
	case "cbor":
		var v any
		if err := cborDec.Unmarshal(in, &v); err != nil {
			return etf.Document{}, err
		}
		return etf.FromInterface(v)
	case "yaml":
		var v any
		if err := yaml.Unmarshal(in, &v); err != nil {
			return etf.Document{}, err
		}
		return etf.FromInterface(v)
	}
	return etf.Document{}, fmt.Errorf("unknown input format %q", c.from)
}

func (c *converter) encode(out []byte, doc etf.Document) ([]byte, error) {
	switch c.to {
	case "etf":
		return c.enc.Encode(out, doc)
	case "json":
		out, err := etf.AppendJSON(out, doc)
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "bson":
		return etf.AppendBSON(out, doc)
	case "cbor":
		b, err := cborEnc.Marshal(doc.Interface())
		if err != nil {
			return nil, err
		}
		return append(out, b...), nil
	case "yaml":
		b, err := yaml.Marshal(yamlNode(doc))
		if err != nil {
			return nil, err
		}
		return append(out, b...), nil
	}
	return nil, fmt.Errorf("unknown output format %q", c.to)
}

// yamlNode builds a YAML tree from doc.  Unlike marshaling a Go map, the
// tree keeps map keys in document order.
func yamlNode(doc etf.Document) *yaml.Node {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}

	switch doc.Kind() {
	case etf.KindBool:
		b, _ := doc.BoolOK()
		return scalar("!!bool", strconv.FormatBool(b))
	case etf.KindInt32:
		i, _ := doc.Int32OK()
		return scalar("!!int", strconv.FormatInt(int64(i), 10))
	case etf.KindInt64:
		i, _ := doc.Int64OK()
		return scalar("!!int", strconv.FormatInt(i, 10))
	case etf.KindFloat64:
		f, _ := doc.Float64OK()
		switch {
		case math.IsNaN(f):
			return scalar("!!float", ".nan")
		case math.IsInf(f, 1):
			return scalar("!!float", ".inf")
		case math.IsInf(f, -1):
			return scalar("!!float", "-.inf")
		}
		return scalar("!!float", strconv.FormatFloat(f, 'g', -1, 64))
	case etf.KindText:
		s, _ := doc.TextOK()
		return scalar("!!str", s)
	case etf.KindByteList:
		b, _ := doc.ByteListOK()
		return scalar("!!binary", base64.StdEncoding.EncodeToString(b))
	case etf.KindList:
		elems, _ := doc.ListOK()
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range elems {
			n.Content = append(n.Content, yamlNode(e))
		}
		return n
	case etf.KindMap:
		m, _ := doc.MapOK()
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		m.Range(func(k string, v etf.Document) bool {
			n.Content = append(n.Content, scalar("!!str", k), yamlNode(v))
			return true
		})
		return n
	}
	return scalar("!!null", "null")
}
