// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package numtheory holds the small-integer arithmetic behind rsaclass keys:
// primality, gcd, modular inverse and modular exponentiation. Everything works
// on int64 and is meant for the tiny moduli a classroom demo uses.
package numtheory

import (
	"math/bits"
	"math/rand/v2"
)

// DefaultPrimePool is the curated set keys are built from. Keeping p and q
// below 100 keeps n, phi and every intermediate readable by hand.
var DefaultPrimePool = []int64{
	13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
	53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
}

// IsPrime reports whether n is prime using trial division over a 6k±1 wheel.
func IsPrime(n int64) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := int64(5); i <= n/i; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// PickPrime returns a uniformly chosen element of pool. The pool must not be
// empty.
func PickPrime(rng *rand.Rand, pool []int64) int64 {
	return pool[rng.IntN(len(pool))]
}

// GCD returns the non-negative greatest common divisor of a and b.
func GCD(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// ModInverse scans d = 3, 4, ... phi-1 for the first value with
// e*d mod phi == 1 and returns 1 when there is none.
func ModInverse(e, phi int64) int64 {
	for d := int64(3); d < phi; d++ {
		if MulMod(e, d, phi) == 1 {
			return d
		}
	}
	return 1
}

// ModPow computes base^exp mod m by square-and-multiply. It returns 0 for
// m <= 1 and 1 for a non-positive exponent.
func ModPow(base, exp, m int64) int64 {
	if m <= 1 {
		return 0
	}
	result := int64(1)
	base = reduce(base, m)
	for exp > 0 {
		if exp&1 == 1 {
			result = MulMod(result, base, m)
		}
		exp >>= 1
		base = MulMod(base, base, m)
	}
	return result
}

// MulMod returns a*b mod m through a 128-bit intermediate product, so it is
// exact for every positive int64 modulus. Negative operands are reduced
// first.
func MulMod(a, b, m int64) int64 {
	if m <= 0 {
		return 0
	}
	a, b = reduce(a, m), reduce(b, m)
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	return int64(bits.Rem64(hi, lo, uint64(m)))
}

// reduce maps x into [0, m).
func reduce(x, m int64) int64 {
	x %= m
	if x < 0 {
		x += m
	}
	return x
}
