// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package etf

// Unmarshal decodes a single message into a Document using a stateless
// decoder.  The root of the message must be a map.
func Unmarshal(in []byte) (Document, error) {
	return NewDecoder(false).Decode(in)
}

// Marshal encodes a map Document into a new message using a stateless
// encoder.
func Marshal(doc Document) ([]byte, error) {
	return NewEncoder(false).Encode(nil, doc)
}

// Transcoder converts between the gateway's two encodings.  It holds a
// reuse-mode decoder and encoder, so it is not safe for concurrent use.
type Transcoder struct {
	dec *Decoder
	enc *Encoder
}

// NewTranscoder returns a transcoder with map key interning enabled.
func NewTranscoder() *Transcoder {
	t := &Transcoder{
		dec: NewDecoder(true),
		enc: NewEncoder(true),
	}
	t.dec.KeyCache(true)
	return t
}

// ToJSON converts a binary message to JSON text, appended to out.
func (t *Transcoder) ToJSON(out []byte, msg []byte) ([]byte, error) {
	doc, err := t.dec.Decode(msg)
	if err != nil {
		return nil, err
	}
	return AppendJSON(out, doc)
}

// FromJSON converts a JSON object to a binary message, appended to out.
func (t *Transcoder) FromJSON(out []byte, json []byte) ([]byte, error) {
	doc, err := FromJSON(json)
	if err != nil {
		return nil, err
	}
	return t.enc.Encode(out, doc)
}
