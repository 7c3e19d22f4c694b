package etf

import "fmt"

// ErrorKind classifies decoding, encoding and access errors.
type ErrorKind int

const (
	// MalformedEnvelope is a missing version marker or a non-map root.
	MalformedEnvelope ErrorKind = iota + 1
	// UnsupportedTag is a term tag outside the supported set.
	UnsupportedTag
	// Truncated is a read past the end of the bounded input.
	Truncated
	// UnsupportedMagnitude is a big integer that does not fit in 64 bits.
	UnsupportedMagnitude
	// NonStringKey is a map key that is not text.
	NonStringKey
	// DecompressionMismatch is a compressed term whose inflated size or
	// stream end does not match its header.
	DecompressionMismatch
	// InvalidEncodeType is a value with no encoding rule.
	InvalidEncodeType
	// DepthExceeded is nesting beyond the configured maximum depth.
	DepthExceeded
	// MissingKey is a typed getter asked for an absent key or index.
	MissingKey
	// TypeMismatch is a typed getter asked for a value of another kind.
	TypeMismatch
	// Syntax is malformed JSON text.
	Syntax
)

var kindNames = map[ErrorKind]string{
	MalformedEnvelope:     "malformed envelope",
	UnsupportedTag:        "unsupported tag",
	Truncated:             "truncated input",
	UnsupportedMagnitude:  "unsupported magnitude",
	NonStringKey:          "non-string map key",
	DecompressionMismatch: "decompression mismatch",
	InvalidEncodeType:     "invalid encode type",
	DepthExceeded:         "maximum depth exceeded",
	MissingKey:            "missing key",
	TypeMismatch:          "type mismatch",
	Syntax:                "syntax error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error records a codec failure.  Offset is the position in the input (or in
// the inflated payload of a compressed term) where the failure was detected,
// or -1 when no input position applies.
type Error struct {
	Kind   ErrorKind
	Offset int
	msg    string
	err    error
}

// Sentinel errors for use with errors.Is.  Any *Error matches the sentinel of
// the same kind.
var (
	ErrMalformedEnvelope     = &Error{Kind: MalformedEnvelope, Offset: -1}
	ErrUnsupportedTag        = &Error{Kind: UnsupportedTag, Offset: -1}
	ErrTruncated             = &Error{Kind: Truncated, Offset: -1}
	ErrUnsupportedMagnitude  = &Error{Kind: UnsupportedMagnitude, Offset: -1}
	ErrNonStringKey          = &Error{Kind: NonStringKey, Offset: -1}
	ErrDecompressionMismatch = &Error{Kind: DecompressionMismatch, Offset: -1}
	ErrInvalidEncodeType     = &Error{Kind: InvalidEncodeType, Offset: -1}
	ErrDepthExceeded         = &Error{Kind: DepthExceeded, Offset: -1}
	ErrMissingKey            = &Error{Kind: MissingKey, Offset: -1}
	ErrTypeMismatch          = &Error{Kind: TypeMismatch, Offset: -1}
	ErrSyntax                = &Error{Kind: Syntax, Offset: -1}
)

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := "etf: " + e.Kind.String()
	if e.Offset >= 0 {
		s += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, offset int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Offset: offset, msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, offset int, err error, msg string) *Error {
	return &Error{Kind: kind, Offset: offset, msg: msg, err: err}
}
