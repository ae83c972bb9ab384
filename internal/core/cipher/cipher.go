// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package cipher encrypts text one character at a time with textbook RSA.
// Each rune is mapped to its alphabet code and raised to e modulo n. A
// message becomes a sequence of integers of the same length.
package cipher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/rsaclass/internal/core/alphabet"
	"github.com/toeirei/rsaclass/internal/core/numtheory"
	"github.com/toeirei/rsaclass/internal/model"
)

// Placeholder replaces characters that could not be decrypted.
const Placeholder = '�'

// ErrKeysNotInitialized is returned when encrypting or decrypting without a
// usable key.
var ErrKeysNotInitialized = errors.New("keys not initialized")

var (
	errUnitOutOfRange = errors.New("ciphertext unit outside [0, n)")
	errCodeOutOfRange = errors.New("decrypted code outside the alphabet")
)

// Glyph is the decryption outcome for a single ciphertext unit.
type Glyph struct {
	Rune rune
	OK   bool
	// Reason is set when OK is false.
	Reason error
}

// Plaintext is a decrypted message, one glyph per ciphertext unit.
type Plaintext []Glyph

// String renders the plaintext, with Placeholder for failed glyphs.
func (p Plaintext) String() string {
	var b strings.Builder
	for _, g := range p {
		b.WriteRune(g.Rune)
	}
	return b.String()
}

// Placeholders counts glyphs that could not be decrypted.
func (p Plaintext) Placeholders() int {
	n := 0
	for _, g := range p {
		if !g.OK {
			n++
		}
	}
	return n
}

// Clean reports whether every glyph decrypted to an alphabet character.
func (p Plaintext) Clean() bool {
	return p.Placeholders() == 0
}

// Encrypt maps every rune of msg to ModPow(code, e, n). Runes outside the
// alphabet are encrypted as space.
func Encrypt(pub model.PublicKey, msg string) ([]int64, error) {
	return EncryptWith(alphabet.Default(), pub, msg)
}

// EncryptWith is Encrypt over a custom codec.
func EncryptWith(codec *alphabet.Codec, pub model.PublicKey, msg string) ([]int64, error) {
	if pub.N <= 0 || pub.E <= 0 {
		return nil, ErrKeysNotInitialized
	}
	out := make([]int64, 0, len(msg))
	for _, r := range msg {
		out = append(out, numtheory.ModPow(int64(codec.Encode(r)), pub.E, pub.N))
	}
	return out, nil
}

// Decrypt maps every unit back through ModPow(unit, d, n) and the alphabet.
// Units outside [0, n) and codes outside the alphabet become Placeholder;
// the call itself only fails when the key is unusable.
func Decrypt(priv model.PrivateKey, units []int64) (Plaintext, error) {
	return DecryptWith(alphabet.Default(), priv, units)
}

// DecryptWith is Decrypt over a custom codec.
func DecryptWith(codec *alphabet.Codec, priv model.PrivateKey, units []int64) (Plaintext, error) {
	if priv.N <= 0 || priv.D <= 0 {
		return nil, ErrKeysNotInitialized
	}
	out := make(Plaintext, len(units))
	for i, u := range units {
		out[i] = decryptUnit(codec, priv, u)
	}
	return out, nil
}

func decryptUnit(codec *alphabet.Codec, priv model.PrivateKey, u int64) Glyph {
	if u < 0 || u >= priv.N {
		return Glyph{Rune: Placeholder, Reason: fmt.Errorf("%w: %d (n=%d)", errUnitOutOfRange, u, priv.N)}
	}
	code := numtheory.ModPow(u, priv.D, priv.N)
	r, ok := codec.Lookup(code)
	if !ok {
		return Glyph{Rune: Placeholder, Reason: fmt.Errorf("%w: %d", errCodeOutOfRange, code)}
	}
	return Glyph{Rune: r, OK: true}
}
