// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package etf

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestFromJSON tests both the FromJSON function and various primitive types,
// including some error cases where needed for test coverage.  Outputs are
// the BSON rendering of the parsed document.
//
// Some tests adapted from the MongoDB BSON Corpus, licensed CC by-sa-nc:
// https://github.com/mongodb/specifications/blob/master/source/bson-corpus/bson-corpus.rst
func TestFromJSON(t *testing.T) {
	t.Parallel()

	cases := []jsonTestCase{
		// True
		{
			label:  "true ok",
			input:  `{"b" : true}`,
			output: "090000000862000100",
		},
		{
			label:  "true not ok",
			input:  `{"b" : t, "c": 1}`,
			errStr: "expecting true",
		},
		// False
		{
			label:  "false ok",
			input:  `{"b" : false}`,
			output: "090000000862000000",
		},
		{
			label:  "false not ok",
			input:  `{"b" : fake}`,
			errStr: "expecting false",
		},
		// Null
		{
			label:  "null ok",
			input:  `{"a" : null}`,
			output: "080000000A610000",
		},
		{
			label:  "null not ok",
			input:  `{"a" : nul}`,
			errStr: "expecting null",
		},
		// String
		{
			label:  "Empty string",
			input:  `{"a" : ""}`,
			output: "0D000000026100010000000000",
		},
		{
			label:  "Single character",
			input:  `{"a" : "b"}`,
			output: "0E00000002610002000000620000",
		},
		{
			label:  "Multi-character",
			input:  `{"a" : "abababababab"}`,
			output: "190000000261000D0000006162616261626162616261620000",
		},
		{
			label:  "two-byte UTF-8 (\u00e9)",
			input:  `{"a" : "\u00e9\u00e9\u00e9\u00e9\u00e9\u00e9"}`,
			output: "190000000261000D000000C3A9C3A9C3A9C3A9C3A9C3A90000",
		},
		{
			label:  "three-byte UTF-8 (\u2606)",
			input:  `{"a" : "\u2606\u2606\u2606\u2606"}`,
			output: "190000000261000D000000E29886E29886E29886E298860000",
		},
		{
			label:  "surrogate pair",
			input:  `{"a" : "\ud83d\ude00"}`,
			output: "1100000002610005000000F09F98800000",
		},
		{
			label:  "lone high surrogate",
			input:  `{"a" : "\ud83dx"}`,
			output: "1100000002610005000000EFBFBD780000",
		},
		{
			label:  "lone low surrogate",
			input:  `{"a" : "\ude00"}`,
			output: "1000000002610004000000EFBFBD0000",
		},
		{
			label:  "Embedded nulls",
			input:  `{"a" : "ab\u0000bab\u0000babab"}`,
			output: "190000000261000D0000006162006261620062616261620000",
		},
		{
			label:  "Required escapes",
			input:  `{"a":"ab\\\"\u0001\u0002\u0003\u0004\u0005\u0006\u0007\b\t\n\u000b\f\r\u000e\u000f\u0010\u0011\u0012\u0013\u0014\u0015\u0016\u0017\u0018\u0019\u001a\u001b\u001c\u001d\u001e\u001fab"}`,
			output: "320000000261002600000061625C220102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F61620000",
		},
		{
			label:  "escape on string copy buffer boundary",
			input:  `{"a" : "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa\n"}`,
			output: "4d000000026100410000006161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161616161610a0000",
		},
		{
			label:  "invalid unicode escape",
			input:  `{"a" : "\u00zz"}`,
			errStr: "invalid unicode escape",
		},
		{
			label:  "invalid unicode escape",
			input:  `{"a" : "\u+062"}`,
			errStr: "invalid unicode escape",
		},
		{
			label:  "invalid unicode escape",
			input:  `{"a" : "\u-062"}`,
			errStr: "invalid unicode escape",
		},
		{
			label:  "unknown escape",
			input:  `{"a" : "\U00e9"}`,
			errStr: "unknown escape",
		},
		{
			label:  "unescaped control character",
			input:  "{\"a\" : \"a\tb\"}",
			errStr: "unescaped control character",
		},
		// Int32
		{
			label:  "MinInt32",
			input:  `{"i" : -2147483648}`,
			output: "0C0000001069000000008000",
		},
		{
			label:  "MaxInt32",
			input:  `{"i" : 2147483647}`,
			output: "0C000000106900FFFFFF7F00",
		},
		{
			label:  "-1",
			input:  `{"i" : -1}`,
			output: "0C000000106900FFFFFFFF00",
		},
		{
			label:  "0",
			input:  `{"i" : 0}`,
			output: "0C0000001069000000000000",
		},
		{
			label:  "1",
			input:  `{"i" : 1}`,
			output: "0C0000001069000100000000",
		},
		{
			label:  "bad int",
			input:  `{"d" : 1234abc}`,
			errStr: "invalid number",
		},
		{
			label:  "leading zero",
			input:  `{"d" : 012}`,
			errStr: "invalid number",
		},
		{
			label:  "leading plus",
			input:  `{"d" : +1}`,
			errStr: "invalid number",
		},
		// Int64
		{
			label:  "MinInt64",
			input:  `{"a" : -9223372036854775808}`,
			output: "10000000126100000000000000008000",
		},
		{
			label:  "MaxInt64",
			input:  `{"a" : 9223372036854775807}`,
			output: "10000000126100FFFFFFFFFFFFFF7F00",
		},
		{
			label:  "beyond int64 becomes double",
			input:  `{"a" : 9223372036854775808}`,
			output: "10000000016100000000000000E04300",
		},
		// Float
		{
			label:  "+1.0",
			input:  `{"d" : 1.0}`,
			output: "10000000016400000000000000F03F00",
		},
		{
			label:  "-1.0",
			input:  `{"d" : -1.0}`,
			output: "10000000016400000000000000F0BF00",
		},
		{
			label:  "exponent",
			input:  `{"d" : 1e0}`,
			output: "10000000016400000000000000F03F00",
		},
		{
			label:  "bad float",
			input:  `{"d" : -1.0a0}`,
			errStr: "invalid number",
		},
		{
			label:  "missing fraction",
			input:  `{"d" : 1.}`,
			errStr: "invalid number",
		},
		{
			label:  "float out of range",
			input:  `{"d" : 1e999}`,
			errStr: "value out of range",
		},
		// Multi-key
		{
			label:  "multikey",
			input:  `{"a":true, "b":false}`,
			output: "0d000000086100010862000000",
		},
		{
			label:  "multi-array",
			input:  `{"a":["b","c"]}`,
			output: "1f000000046100170000000230000200000062000231000200000063000000",
		},
		// Truncation
		{
			label:  "truncated key",
			input:  `{"a`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated string",
			input:  `{"a":"hello`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated escape",
			input:  `{"a":"\u00`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated integer",
			input:  `{"a":123`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated float",
			input:  `{"a":123.45`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated true",
			input:  `{"b" : t`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated false",
			input:  `{"b" : f`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated null",
			input:  `{"a" : n`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated array",
			input:  `{"a" : [`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated object",
			input:  `{`,
			errStr: "unexpected EOF",
		},
		// structural errors
		{
			label:  "first value key not string",
			input:  `{ 123:456 }`,
			errStr: "expecting key or end of object",
		},
		{
			label:  "second value key not string",
			input:  `{ "a": 457, 123:456 }`,
			errStr: "expecting key",
		},
		{
			label:  "first value missing colon",
			input:  `{ "a" 457 }`,
			errStr: "expecting ':'",
		},
		{
			label:  "second value missing colon",
			input:  `{ "a": 457, "b" 789 }`,
			errStr: "expecting ':'",
		},
		{
			label:  "third value not delimited",
			input:  `{ "a": 457, "b": 789 "c":123 }`,
			errStr: "expecting value-separator or end of object",
		},
		{
			label:  "third array value not delimited",
			input:  `{ "a": [ "hello", "world" 123 ] }`,
			errStr: "expecting value-separator or end of array",
		},
		{
			label:  "first array value invalid",
			input:  `{ "a": [ 123abc, "hello"] }`,
			errStr: "invalid number",
		},
		{
			label:  "second array value invalid",
			input:  `{ "a": [ "hello", 123abc ] }`,
			errStr: "invalid number",
		},
		{
			label:  "trailing comma in object",
			input:  `{ "a": 1, }`,
			errStr: "expecting key",
		},
		{
			label:  "trailing comma in array",
			input:  `{ "a": [1,] }`,
			errStr: "invalid number",
		},
		// BOMs
		{
			label:  "utf-8 BOM",
			input:  "\xef\xbb\xbf{\"a\":null}",
			output: "080000000A610000",
		},
		{
			label:  "utf-16 BOM",
			input:  "\xfe\xff{}",
			errStr: "detected unsupported UTF-16 BOM",
		},
	}

	testWithJSON(t, cases)
}

func TestNumberTooLong(t *testing.T) {
	t.Parallel()
	input := `{ "a": 0.` + strings.Repeat("0", numberPeekWidth) + `1 }`
	_, err := FromJSON([]byte(input))
	checkErr(t, err, Syntax, "number too long")
}

// The BSON rendering of parsed JSON agrees with the mongo driver's parser.
func TestFromJSONMatchesDriver(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"a":1,"b":-2147483649,"c":1.5,"d":"x\u00e9","e":[true,false,null,{}],"f":{"g":[[]]}}`,
		`{"op":0,"d":{"heartbeat_interval":41250,"_trace":["[\"gateway-prd-us-east1-b-0568\",{\"micros\":0.0}]"]}}`,
		`{"s":"\n\t\"\\/"}`,
		`{"big":123456789012,"exp":6.02e23}`,
	}
	for _, in := range inputs {
		doc, err := FromJSON([]byte(in))
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		got, err := AppendBSON(nil, doc)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		want, err := convertWithGoDriver([]byte(in))
		if err != nil {
			t.Fatalf("%s: driver error: %v", in, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s:\ngot:    %x\ndriver: %x", in, got, want)
		}
	}
}

func TestStreaming(t *testing.T) {
	t.Parallel()

	type testCase struct {
		label  string
		input  string
		count  int
		errStr string
	}

	cases := []testCase{
		// Document streams
		{
			label:  "no docs",
			input:  "",
			count:  0,
			errStr: io.EOF.Error(),
		},
		{
			label:  "1 doc",
			input:  "{}",
			count:  1,
			errStr: io.EOF.Error(),
		},
		{
			label:  "1 doc, leading WS",
			input:  " {}",
			count:  1,
			errStr: io.EOF.Error(),
		},
		{
			label:  "2 docs, no WS",
			input:  "{}{}",
			count:  2,
			errStr: io.EOF.Error(),
		},
		{
			label:  "2 docs, LF separated",
			input:  "{}\n{}",
			count:  2,
			errStr: io.EOF.Error(),
		},
		{
			label:  "3 docs, CRLF separated",
			input:  "{}\r\n{}\r\n{}",
			count:  3,
			errStr: io.EOF.Error(),
		},

		// Array of documents
		{
			label:  "array: no docs",
			input:  "[]",
			count:  0,
			errStr: io.EOF.Error(),
		},
		{
			label:  "array: one doc w/ WS",
			input:  "[ {} ]",
			count:  1,
			errStr: io.EOF.Error(),
		},
		{
			label:  "array: 3 docs",
			input:  "[{},{},{}]",
			count:  3,
			errStr: io.EOF.Error(),
		},
		{
			label:  "array: 2 arrays",
			input:  "[{},{},{}]\n[{}]",
			count:  3,
			errStr: io.EOF.Error(),
		},
		{
			label:  "array: no comma",
			input:  "[{} {}]",
			count:  0,
			errStr: "expecting value-separator or end of array",
		},
		{
			label:  "array: not terminated",
			input:  "[{},{}",
			count:  1,
			errStr: "unexpected EOF",
		},

		// Non documents in stream
		{
			label:  "non-document",
			input:  `42`,
			count:  0,
			errStr: "Decode only supports object decoding",
		},
		{
			label:  "non-document after document",
			input:  `{} 42`,
			count:  1,
			errStr: "Decode only supports object decoding",
		},
		{
			label:  "non-document in array",
			input:  `[42]`,
			count:  0,
			errStr: "Decode only supports object decoding",
		},
		{
			label:  "start with array terminator",
			input:  `]{"a":"b"}`,
			count:  0,
			errStr: "Decode only supports object decoding",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			var err error
			jsonReader := bufio.NewReader(bytes.NewReader([]byte(c.input)))
			jd, err := NewJSONDecoder(jsonReader)
			if err != nil && err != io.EOF {
				t.Fatalf("unexpected error: %v", err)
			}

			var n int
			for err == nil {
				_, err = jd.Decode()
				if err != nil {
					break
				}
				n++
			}
			if n != c.count {
				t.Errorf("expected %d docs, but got %d", c.count, n)
			}
			if !strings.Contains(err.Error(), c.errStr) {
				t.Errorf("expected error with '%s', but got %v", c.errStr, err)
			}
		})
	}
}

func TestDepthLimit(t *testing.T) {
	t.Parallel()

	input := `{"1":{"2":{"3":[{"5":"a"}]}}}`

	jd, err := NewJSONDecoder(bufio.NewReader(bytes.NewReader([]byte(input))))
	if err != nil {
		t.Fatal(err)
	}
	jd.MaxDepth(4)
	_, err = jd.Decode()
	checkErr(t, err, DepthExceeded, "limit is 4")

	jd, err = NewJSONDecoder(bufio.NewReader(bytes.NewReader([]byte(input))))
	if err != nil {
		t.Fatal(err)
	}
	jd.MaxDepth(5)
	_, err = jd.Decode()
	if err != nil {
		t.Fatalf("expected no error and got: %v", err)
	}
}

func TestJSONKeysInterned(t *testing.T) {
	t.Parallel()

	jd, err := NewJSONDecoder(bufio.NewReader(strings.NewReader(`{"id":1} {"id":2}`)))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := jd.Decode(); err != nil {
			t.Fatal(err)
		}
	}
	if jd.keys.size() != 1 {
		t.Errorf("got %d interned keys, want 1", jd.keys.size())
	}
}

func TestAppendJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label  string
		input  Document
		output string
		errStr string
	}{
		{"empty map", obj(), `{}`, ""},
		{"key order kept", obj("z", Int32(1), "a", Int32(2)), `{"z":1,"a":2}`, ""},
		{"scalars", List(Null(), Bool(true), Bool(false), Int32(-5), Int64(81384788765712384)), `[null,true,false,-5,81384788765712384]`, ""},
		{"whole float keeps fraction", Float64(2), `2.0`, ""},
		{"float", Float64(0.1), `0.1`, ""},
		{"large float", Float64(1e21), `1e+21`, ""},
		{"negative zero", Float64(math.Copysign(0, -1)), `-0.0`, ""},
		{"byte list", ByteList([]byte{0, 7, 255}), `[0,7,255]`, ""},
		{"empty list", List(), `[]`, ""},
		{"escapes", Text("a\"b\\c\n\r\t\x01/é"), `"a\"b\\c\n\r\t\u0001/é"`, ""},
		{"invalid utf-8", Text("a\xffb"), "\"a\ufffdb\"", ""},
		{"nested", obj("a", List(obj("b", Null()))), `{"a":[{"b":null}]}`, ""},
		{"nan", Float64(math.NaN()), "", "no JSON form for float NaN"},
		{"inf", obj("a", Float64(math.Inf(1))), "", "no JSON form for float +Inf"},
		{"zero document", obj("a", Document{}), "", "no JSON form for invalid document"},
	}

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			got, err := AppendJSON(nil, c.input)
			if c.errStr != "" {
				checkErr(t, err, InvalidEncodeType, c.errStr)
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != c.output {
				t.Errorf("got %s, want %s", got, c.output)
			}
		})
	}
}

// Documents convert to JSON and back unchanged, apart from byte lists
// becoming lists of integers.
func TestJSONRoundTrip(t *testing.T) {
	t.Parallel()

	doc := obj(
		"op", Int32(0),
		"d", obj(
			"id", Int64(81384788765712384),
			"ratio", Float64(2),
			"tiny", Float64(5e-324),
			"text", Text("é☆😀\u2028"),
			"flags", List(Bool(true), Null()),
			"bytes", ByteList([]byte{1, 2}),
		),
	)
	want := obj(
		"op", Int32(0),
		"d", obj(
			"id", Int64(81384788765712384),
			"ratio", Float64(2),
			"tiny", Float64(5e-324),
			"text", Text("é☆😀\u2028"),
			"flags", List(Bool(true), Null()),
			"bytes", List(Int32(1), Int32(2)),
		),
	)

	text, err := AppendJSON(nil, doc)
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromJSON(text)
	if err != nil {
		t.Fatalf("parsing %s: %v", text, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// The standard library accepts the output.
	var v map[string]interface{}
	if err := json.Unmarshal(text, &v); err != nil {
		t.Errorf("encoding/json rejects %s: %v", text, err)
	}
}

func TestDocumentJSONMarshalers(t *testing.T) {
	t.Parallel()

	type envelope struct {
		Op int      `json:"op"`
		D  Document `json:"d"`
	}

	var e envelope
	err := json.Unmarshal([]byte(`{"op":10,"d":{"heartbeat_interval":41250,"x":[1,"a"]}}`), &e)
	if err != nil {
		t.Fatal(err)
	}
	want := obj("heartbeat_interval", Int32(41250), "x", List(Int32(1), Text("a")))
	if diff := cmp.Diff(want, e.D); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	out, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"op":10,"d":{"heartbeat_interval":41250,"x":[1,"a"]}}` {
		t.Errorf("got %s", out)
	}

	var scalar Document
	if err := json.Unmarshal([]byte(` "s" `), &scalar); err != nil || !scalar.Equal(Text("s")) {
		t.Errorf("got %v, %v", scalar, err)
	}
	if err := scalar.UnmarshalJSON([]byte(`1 2`)); err == nil {
		t.Error("expected error for trailing data")
	}
}
