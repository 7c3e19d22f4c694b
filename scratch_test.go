package etf

import (
	"fmt"
	"strings"
	"testing"
	"unsafe"
)

func TestScratchLevels(t *testing.T) {
	t.Parallel()

	var s scratch
	if b := s.get(3); b != nil {
		t.Fatalf("unused level has buffer of cap %d", cap(b))
	}

	a := append(s.get(0), "abc"...)
	s.keep(0, a)
	b := append(s.get(1), make([]byte, 5000)...)
	s.keep(1, b)

	a0 := s.get(0)
	if len(a0) != 0 || cap(a0) != cap(a) {
		t.Fatalf("level 0: got len %d cap %d", len(a0), cap(a0))
	}
	b1 := s.get(1)
	if cap(b1) != cap(b) || &b1[:1][0] != &b[0] {
		t.Fatal("level 1 buffer not kept")
	}
	if &a0[:1][0] == &b1[:1][0] {
		t.Error("levels share storage")
	}

	// A smaller buffer does not replace a larger one.
	s.keep(1, make([]byte, 3))
	if cap(s.get(1)) != cap(b) {
		t.Error("level 1 buffer shrank")
	}
}

func TestScratchGrow(t *testing.T) {
	t.Parallel()

	b := grow(nil, 10)
	if len(b) != 0 || cap(b) != 10 {
		t.Fatalf("small limit: got len %d cap %d", len(b), cap(b))
	}
	b = grow([]byte("xy"), 1<<20)
	if string(b) != "xy" || cap(b) != defaultScratchSize {
		t.Fatalf("got %q cap %d", b, cap(b))
	}
	b = grow(b[:cap(b)], 1<<20)
	if cap(b) != 2*defaultScratchSize || b[0] != 'x' {
		t.Fatalf("doubling: got cap %d", cap(b))
	}
	b = grow(b[:cap(b)], 3*defaultScratchSize)
	if cap(b) != 3*defaultScratchSize {
		t.Fatalf("capped: got cap %d", cap(b))
	}
}

func TestInterner(t *testing.T) {
	t.Parallel()

	in := newInterner()
	buf := []byte("guild_id")
	first := in.intern(buf)

	// Overwrite the source span; the cached string must not change.
	copy(buf, "xxxxxxxx")
	if first != "guild_id" {
		t.Fatalf("interned string aliases its source: %q", first)
	}

	second := in.intern([]byte("guild_id"))
	if unsafe.StringData(first) != unsafe.StringData(second) {
		t.Error("repeated key was allocated twice")
	}
	if in.size() != 1 {
		t.Errorf("got %d entries, want 1", in.size())
	}

	long := strings.Repeat("k", maxInternKeyLength+1)
	if got := in.intern([]byte(long)); got != long {
		t.Errorf("long key mangled")
	}
	if in.size() != 1 {
		t.Errorf("long key was cached")
	}
}

func TestInternerLimit(t *testing.T) {
	t.Parallel()

	in := newInterner()
	for i := 0; i < maxInternEntries+10; i++ {
		key := fmt.Sprintf("key%d", i)
		if got := in.intern([]byte(key)); got != key {
			t.Fatalf("got %q, want %q", got, key)
		}
	}
	if in.size() != maxInternEntries {
		t.Errorf("got %d entries, want %d", in.size(), maxInternEntries)
	}
}
