package alphabet

import (
	"math"
	"testing"
)

func TestNew_SizeAndOrder(t *testing.T) {
	c := New()
	if c.Len() != 158 {
		t.Fatalf("expected 158 characters, got %d", c.Len())
	}

	cases := []struct {
		r    rune
		code int
	}{
		{'А', 1},
		{'я', 64},
		{'A', 65},
		{'Z', 90},
		{'a', 91},
		{'z', 116},
		{'0', 117},
		{'9', 126},
		{' ', 127},
		{'~', 158},
	}
	for _, tc := range cases {
		if got := c.Encode(tc.r); got != tc.code {
			t.Fatalf("Encode(%q) = %d, want %d", tc.r, got, tc.code)
		}
	}
}

func TestDecodeEncode_RoundTripsEveryRune(t *testing.T) {
	c := Default()
	for _, r := range c.Runes() {
		if got := c.Decode(int64(c.Encode(r))); got != r {
			t.Fatalf("round trip for %q returned %q", r, got)
		}
	}
}

func TestEncode_UnknownFallsBackToSpace(t *testing.T) {
	c := Default()
	space := c.Encode(Space)
	for _, r := range []rune{'Ё', 'ё', '\n', '€', '_'} {
		if got := c.Encode(r); got != space {
			t.Fatalf("Encode(%q) = %d, want space code %d", r, got, space)
		}
	}
}

func TestEncode_NoSpaceFallsBackToOne(t *testing.T) {
	c := FromRunes([]rune("xyz"))
	if got := c.Encode('q'); got != 1 {
		t.Fatalf("expected 1 when space is absent, got %d", got)
	}
}

func TestDecode_TotalOverIntegers(t *testing.T) {
	c := Default()
	for _, code := range []int64{0, -1, 159, 1000, math.MinInt64, math.MaxInt64} {
		r := c.Decode(code)
		if r != Space {
			t.Fatalf("Decode(%d) = %q, want space", code, r)
		}
		if _, ok := c.Lookup(code); ok {
			t.Fatalf("Lookup(%d) reported ok", code)
		}
	}
}

func TestFromRunes_DuplicatesKeepFirstPosition(t *testing.T) {
	c := FromRunes([]rune("abca"))
	if c.Len() != 3 {
		t.Fatalf("expected 3 unique runes, got %d", c.Len())
	}
	if c.Encode('a') != 1 || c.Encode('c') != 3 {
		t.Fatalf("unexpected codes: a=%d c=%d", c.Encode('a'), c.Encode('c'))
	}
}

func TestRunes_ReturnsCopy(t *testing.T) {
	c := New()
	rs := c.Runes()
	rs[0] = '!'
	if c.Decode(1) != 'А' {
		t.Fatalf("mutating Runes() result changed the codec")
	}
}
