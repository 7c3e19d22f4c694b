package etf

import "github.com/cespare/xxhash/v2"

const (
	defaultScratchSize = 4096
	maxInternEntries   = 4096
	maxInternKeyLength = 256
)

// scratch holds reusable byte buffers, one per nesting level.  A compressed
// term nested inside another compressed term is inflated into the next
// level's buffer so the buffer its parent is still reading stays intact.
// Buffers grow only as inflated output arrives, and each level keeps the
// largest buffer it has needed.
type scratch struct {
	levels [][]byte
}

// get returns the empty buffer for the given nesting level.
func (s *scratch) get(level int) []byte {
	if level < len(s.levels) {
		return s.levels[level][:0]
	}
	return nil
}

// keep stores b as the buffer for the given nesting level.
func (s *scratch) keep(level int, b []byte) {
	for len(s.levels) <= level {
		s.levels = append(s.levels, nil)
	}
	if cap(b) > cap(s.levels[level]) {
		s.levels[level] = b[:0]
	}
}

// grow returns b with room for more bytes, doubling its capacity from
// defaultScratchSize but never beyond limit.
func grow(b []byte, limit int) []byte {
	size := 2 * cap(b)
	if size < defaultScratchSize {
		size = defaultScratchSize
	}
	if size > limit {
		size = limit
	}
	nb := make([]byte, len(b), size)
	copy(nb, b)
	return nb
}

// interner maps raw byte spans to previously materialized strings, so map
// keys that repeat across messages are allocated once.  Spans are hashed and
// then compared by content against the owned string stored for each entry;
// the span itself is never retained, since the buffer it points into is
// overwritten by later reads.
type interner struct {
	buckets map[uint64][]string
	count   int
}

func newInterner() *interner {
	return &interner{buckets: make(map[uint64][]string)}
}

// intern returns the string for span, materializing and caching it on first
// sight.  Once the cache is full, or for overly long spans, a fresh string is
// returned without caching.
func (in *interner) intern(span []byte) string {
	if len(span) > maxInternKeyLength {
		return string(span)
	}
	h := xxhash.Sum64(span)
	for _, s := range in.buckets[h] {
		if s == string(span) {
			return s
		}
	}
	s := string(span)
	if in.count < maxInternEntries {
		in.buckets[h] = append(in.buckets[h], s)
		in.count++
	}
	return s
}

// size returns the number of cached strings.
func (in *interner) size() int { return in.count }
