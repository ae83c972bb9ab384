// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package cipher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrEmptyCiphertext is returned when ciphertext text holds no tokens.
var ErrEmptyCiphertext = errors.New("no numbers to decrypt")

// ParseError identifies the first token that is not an integer.
type ParseError struct {
	Token string
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%q is not a number (token %d)", e.Token, e.Index+1)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatCiphertext renders units as decimal numbers separated by single
// spaces.
func FormatCiphertext(units []int64) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = strconv.FormatInt(u, 10)
	}
	return strings.Join(parts, " ")
}

// ParseCiphertext splits text on runs of whitespace and parses every token as
// a base-10 integer.
func ParseCiphertext(text string) ([]int64, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptyCiphertext
	}
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, &ParseError{Token: f, Index: i, Err: err}
		}
		out[i] = v
	}
	return out, nil
}
