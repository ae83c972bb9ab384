// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package alphabet maps the characters rsaclass can encrypt to small positive
// integer codes and back. Codes are 1-indexed positions in a fixed alphabet of
// Cyrillic letters, Latin letters, digits and a set of punctuation symbols.
package alphabet

// Symbols is the punctuation block appended after the digits. Space is its
// first character and doubles as the substitute for unknown input.
const Symbols = " .!?,;:\"'()[]{}<>@#$%^&*+-=/\\|`~"

// Space is the rune returned by Decode for codes outside the alphabet.
const Space = ' '

// Codec is an immutable bidirectional rune/code mapping.
type Codec struct {
	runes []rune
	codes map[rune]int
}

var defaultCodec = New()

// Default returns the shared codec built from the standard alphabet.
func Default() *Codec {
	return defaultCodec
}

// New builds the standard alphabet: U+0410..U+044F, A-Z, a-z, 0-9, Symbols.
func New() *Codec {
	chars := make([]rune, 0, 64+26+26+10+len(Symbols))
	for r := rune(0x0410); r <= 0x044F; r++ {
		chars = append(chars, r)
	}
	for r := 'A'; r <= 'Z'; r++ {
		chars = append(chars, r)
	}
	for r := 'a'; r <= 'z'; r++ {
		chars = append(chars, r)
	}
	for r := '0'; r <= '9'; r++ {
		chars = append(chars, r)
	}
	for _, r := range Symbols {
		chars = append(chars, r)
	}
	return FromRunes(chars)
}

// FromRunes builds a codec over an arbitrary ordered rune list. Duplicates
// keep their first position.
func FromRunes(chars []rune) *Codec {
	c := &Codec{
		runes: make([]rune, 0, len(chars)),
		codes: make(map[rune]int, len(chars)),
	}
	for _, r := range chars {
		if _, ok := c.codes[r]; ok {
			continue
		}
		c.runes = append(c.runes, r)
		c.codes[r] = len(c.runes)
	}
	return c
}

// Len returns the number of characters in the alphabet.
func (c *Codec) Len() int {
	return len(c.runes)
}

// Contains reports whether r belongs to the alphabet.
func (c *Codec) Contains(r rune) bool {
	_, ok := c.codes[r]
	return ok
}

// Encode returns the code of r. Unknown runes are encoded as space, and if
// the alphabet has no space either, as 1.
func (c *Codec) Encode(r rune) int {
	if code, ok := c.codes[r]; ok {
		return code
	}
	if code, ok := c.codes[Space]; ok {
		return code
	}
	return 1
}

// Lookup returns the rune for code and whether the code is inside the
// alphabet.
func (c *Codec) Lookup(code int64) (rune, bool) {
	if code < 1 || code > int64(len(c.runes)) {
		return 0, false
	}
	return c.runes[code-1], true
}

// Decode returns the rune for code, or Space when the code is out of range.
func (c *Codec) Decode(code int64) rune {
	if r, ok := c.Lookup(code); ok {
		return r
	}
	return Space
}

// Runes returns a copy of the alphabet in code order.
func (c *Codec) Runes() []rune {
	out := make([]rune, len(c.runes))
	copy(out, c.runes)
	return out
}
