package etf

import "fmt"

// Tag identifies the kind of a term on the wire.  Values are protocol
// constants.
type Tag byte

// FormatVersion is the first byte of every message.
const FormatVersion = 131

const (
	TagNewFloat     Tag = 70
	TagCompressed   Tag = 80
	TagSmallInteger Tag = 97
	TagInteger      Tag = 98
	TagAtom         Tag = 100
	TagNil          Tag = 106
	TagString       Tag = 107
	TagList         Tag = 108
	TagBinary       Tag = 109
	TagSmallBig     Tag = 110
	TagMap          Tag = 116
)

// Reserved atoms.
var (
	atomNil   = []byte("nil")
	atomTrue  = []byte("true")
	atomFalse = []byte("false")
)

const (
	maxAtomLength     = 1<<16 - 1
	maxByteListLength = 1<<16 - 1
	maxBigMagnitude   = 8
)

func (t Tag) String() string {
	switch t {
	case TagNewFloat:
		return "new_float"
	case TagCompressed:
		return "compressed"
	case TagSmallInteger:
		return "small_integer"
	case TagInteger:
		return "integer"
	case TagAtom:
		return "atom"
	case TagNil:
		return "nil"
	case TagString:
		return "string"
	case TagList:
		return "list"
	case TagBinary:
		return "binary"
	case TagSmallBig:
		return "small_big"
	case TagMap:
		return "map"
	default:
		return fmt.Sprintf("tag(%d)", byte(t))
	}
}
