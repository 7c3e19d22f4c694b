// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package etf is a high-performance codec for the binary term format used as
// a compact alternative to JSON on the gateway push-protocol message stream.
// It decodes a message into a dynamic Document and encodes a Document back
// into a message, minimizing allocations along the way.
//
// Supported terms
//
// Only the term subset the gateway actually emits is supported: small
// integers, 4-byte integers, new floats, atoms, nil (the empty list),
// byte lists, lists, binaries, small big integers with at most 8 magnitude
// bytes, maps and the compressed wrapper.  Tuples, references, process
// identifiers, functions and larger big integers are rejected with an
// UnsupportedTag or UnsupportedMagnitude error rather than mis-decoded.
//
// A message starts with the format version byte 131 followed by exactly one
// term, which must be a map.
//
// Buffer reuse
//
// Decoders and encoders are built either in reuse mode, where scratch
// buffers, the zlib state and an optional map key intern cache are kept
// between calls, or in stateless mode, where every call allocates its own
// scratch storage.  Reuse-mode instances are not safe for concurrent use.
//
// Other encodings
//
// The same Document can be read from and written to JSON (the gateway's
// other encoding) and BSON, which makes it easy to persist decoded payloads
// or compare the two gateway encodings.
//
// Testing
//
// Encoding and decoding are tested for round trips on randomly generated
// documents, for truncation at every byte boundary, and the BSON bridge is
// checked against the MongoDB Go driver.
package etf
