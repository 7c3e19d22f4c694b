package etf

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
)

// mustHex decodes a hex test vector, ignoring spaces.
func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("error decoding test vector %q: %v", s, err)
	}
	return b
}

// mustHexF is mustHex for fuzz seeds.
func mustHexF(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

// normalizeText replaces each invalid UTF-8 byte in text and keys with
// U+FFFD, as the encoder does.
func normalizeText(d Document) Document {
	fix := func(s string) string { return string([]rune(s)) }
	switch d.Kind() {
	case KindText:
		s, _ := d.TextOK()
		return Text(fix(s))
	case KindList:
		elems, _ := d.ListOK()
		out := make([]Document, len(elems))
		for i, e := range elems {
			out[i] = normalizeText(e)
		}
		return List(out...)
	case KindMap:
		m, _ := d.MapOK()
		out := NewMap(m.Len())
		m.Range(func(k string, v Document) bool {
			out.Set(fix(k), normalizeText(v))
			return true
		})
		return MapDoc(out)
	}
	return d
}

// obj builds a map document from alternating keys and values.
func obj(kv ...interface{}) Document {
	m := NewMap(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1].(Document))
	}
	return MapDoc(m)
}

// checkErr reports whether err matches an expected kind and message
// fragment.  A zero kind or empty fragment is not checked.
func checkErr(t *testing.T, err error, kind ErrorKind, errStr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error (%v, %q), but got none", kind, errStr)
	}
	if kind != 0 {
		var e *Error
		if !errors.As(err, &e) {
			t.Fatalf("error %v is not an *Error", err)
		}
		if e.Kind != kind {
			t.Errorf("expected error kind %v, but got %v (%v)", kind, e.Kind, err)
		}
	}
	if !strings.Contains(err.Error(), errStr) {
		t.Errorf("expected error with '%s', but got %v", errStr, err)
	}
}

type decodeTestCase struct {
	label  string
	input  string
	output Document
	kind   ErrorKind
	errStr string
}

func testWithDecode(t *testing.T, cases []decodeTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			got, err := Unmarshal(mustHex(t, c.input))
			if c.kind != 0 || c.errStr != "" {
				checkErr(t, err, c.kind, c.errStr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(c.output, got); diff != "" {
				t.Errorf("Decode mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type encodeTestCase struct {
	label  string
	input  Document
	output string
	kind   ErrorKind
	errStr string
}

func testWithEncode(t *testing.T, cases []encodeTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			buf, err := Marshal(c.input)
			if c.kind != 0 || c.errStr != "" {
				checkErr(t, err, c.kind, c.errStr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expect := mustHex(t, strings.ToLower(c.output))
			if !bytes.Equal(expect, buf) {
				t.Fatalf("Encode doesn't match expected:\nGot:    %v\nExpect: %v", hex.EncodeToString(buf), hex.EncodeToString(expect))
			}
		})
	}
}

type jsonTestCase struct {
	label  string
	input  string
	output string
	errStr string
}

// testWithJSON parses each input and compares the BSON rendering of the
// result with the expected hex.
func testWithJSON(t *testing.T, cases []jsonTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			doc, err := FromJSON([]byte(c.input))
			if c.errStr != "" {
				var got string
				if err != nil {
					got = err.Error()
				}
				if !strings.Contains(got, c.errStr) {
					t.Errorf("expected error with '%s', but got %v", c.errStr, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			buf, err := AppendBSON(make([]byte, 0, 256), doc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			expect := mustHex(t, strings.ToLower(c.output))
			if !bytes.Equal(expect, buf) {
				t.Fatalf("FromJSON doesn't match expected:\nGot:    %v\nExpect: %v", hex.EncodeToString(buf), hex.EncodeToString(expect))
			}
		})
	}
}

func convertWithGoDriver(input []byte) ([]byte, error) {
	var got bson.Raw
	err := bson.UnmarshalExtJSON(input, false, &got)
	return got, err
}
