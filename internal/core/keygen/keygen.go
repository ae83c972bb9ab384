// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keygen builds textbook RSA keypairs from a small prime pool.
//
// Generation is total: when a keypair cannot be derived (the pool is unusable
// or two distinct primes could not be drawn within the attempt budget) the
// generator hands out one of a few fixed demonstration keypairs instead and
// reports why through Result.Reason.
package keygen

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/toeirei/rsaclass/internal/core/alphabet"
	"github.com/toeirei/rsaclass/internal/core/numtheory"
	"github.com/toeirei/rsaclass/internal/model"
)

// MaxPoolPrime bounds pool entries so that the linear inverse scan over phi
// stays fast.
const MaxPoolPrime = 9999

// DefaultMaxAttempts bounds how often q is redrawn while it equals p.
const DefaultMaxAttempts = 64

// DefaultExponent is used when no candidate is coprime with phi. It is not
// checked for coprimality.
const DefaultExponent = 17

// DefaultExponents are the public exponent candidates, tried in order.
var DefaultExponents = []int64{3, 5, 7, 11, 13, 17, 19, 23, 29, 31}

var (
	// ErrPrimeSelectionExhausted is returned when q kept matching p.
	ErrPrimeSelectionExhausted = errors.New("keygen: could not draw two distinct primes")
	// ErrInvalidPrimePool is returned for pools with fewer than two distinct
	// primes, non-prime entries, or primes too small to encode the alphabet.
	ErrInvalidPrimePool = errors.New("keygen: invalid prime pool")
)

// Options configures a Generator. Zero values select the defaults.
type Options struct {
	PrimePool   []int64
	Exponents   []int64
	MaxAttempts int
	Rand        *rand.Rand
	Now         func() time.Time
}

// Generator derives keypairs. It is safe for concurrent use.
type Generator struct {
	pool        []int64
	exponents   []int64
	maxAttempts int
	now         func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// Result is the tagged outcome of Generate.
type Result struct {
	Keypair model.Keypair
	// Reason is set when Keypair came from the demonstration table.
	Reason error
}

// Source returns how the keypair was produced.
func (r Result) Source() model.Source {
	return r.Keypair.Source
}

// IsFallback reports whether a demonstration keypair was handed out.
func (r Result) IsFallback() bool {
	return r.Keypair.Source == model.SourceFallback
}

// Verified reports whether e*d = 1 (mod phi) holds for the keypair.
func (r Result) Verified() bool {
	return r.Keypair.Verified()
}

// New returns a Generator configured by opts.
func New(opts Options) *Generator {
	g := &Generator{
		pool:        append([]int64(nil), opts.PrimePool...),
		exponents:   append([]int64(nil), opts.Exponents...),
		maxAttempts: opts.MaxAttempts,
		rng:         opts.Rand,
		now:         opts.Now,
	}
	if len(g.pool) == 0 {
		g.pool = append([]int64(nil), numtheory.DefaultPrimePool...)
	}
	if len(g.exponents) == 0 {
		g.exponents = append([]int64(nil), DefaultExponents...)
	}
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultMaxAttempts
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Generate derives a new keypair, or falls back to a demonstration keypair
// when derivation is impossible. It never fails.
func (g *Generator) Generate() Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	kp, err := g.derive()
	if err != nil {
		return Result{Keypair: g.fallback(), Reason: err}
	}
	return Result{Keypair: kp}
}

// Fallback returns a uniformly chosen demonstration keypair.
func (g *Generator) Fallback() model.Keypair {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fallback()
}

func (g *Generator) fallback() model.Keypair {
	kp := demoKeypairs[g.rng.IntN(len(demoKeypairs))]
	kp.Source = model.SourceFallback
	kp.CreatedAt = g.now()
	return kp
}

func (g *Generator) derive() (model.Keypair, error) {
	if err := validatePool(g.pool); err != nil {
		return model.Keypair{}, err
	}

	p := numtheory.PickPrime(g.rng, g.pool)
	q := numtheory.PickPrime(g.rng, g.pool)
	for attempt := 1; q == p; attempt++ {
		if attempt >= g.maxAttempts {
			return model.Keypair{}, fmt.Errorf("%w: q = p = %d after %d draws", ErrPrimeSelectionExhausted, p, attempt)
		}
		q = numtheory.PickPrime(g.rng, g.pool)
	}

	n := p * q
	phi := (p - 1) * (q - 1)
	e := ChooseExponent(phi, g.exponents)
	d := PrivateExponent(e, phi)

	kp := model.Keypair{
		N:         n,
		E:         e,
		D:         d,
		P:         p,
		Q:         q,
		Phi:       phi,
		Source:    model.SourceDerived,
		CreatedAt: g.now(),
	}
	if !kp.Verified() {
		kp.Source = model.SourceUnverified
	}
	return kp, nil
}

// ChooseExponent returns the first candidate coprime with phi, or
// DefaultExponent when none is.
func ChooseExponent(phi int64, candidates []int64) int64 {
	for _, c := range candidates {
		if numtheory.GCD(c, phi) == 1 {
			return c
		}
	}
	return DefaultExponent
}

// PrivateExponent returns ModInverse(e, phi). When that misses, d is
// re-scanned from 2 and left at 1 if no inverse exists.
func PrivateExponent(e, phi int64) int64 {
	d := numtheory.ModInverse(e, phi)
	if numtheory.MulMod(e, d, phi) == 1 {
		return d
	}
	for c := int64(2); c < phi; c++ {
		if numtheory.MulMod(e, c, phi) == 1 {
			return c
		}
	}
	return 1
}

// validatePool checks that any two distinct pool primes give a modulus
// larger than every alphabet code.
func validatePool(pool []int64) error {
	if len(pool) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPrimePool)
	}
	distinct := make([]int64, 0, len(pool))
	for _, p := range pool {
		if !numtheory.IsPrime(p) {
			return fmt.Errorf("%w: %d is not prime", ErrInvalidPrimePool, p)
		}
		if p > MaxPoolPrime {
			return fmt.Errorf("%w: %d exceeds %d", ErrInvalidPrimePool, p, MaxPoolPrime)
		}
		if !slices.Contains(distinct, p) {
			distinct = append(distinct, p)
		}
	}
	if len(distinct) < 2 {
		return fmt.Errorf("%w: need two distinct primes, got %v", ErrInvalidPrimePool, distinct)
	}
	slices.Sort(distinct)
	if n, codes := distinct[0]*distinct[1], int64(alphabet.Default().Len()); n <= codes {
		return fmt.Errorf("%w: %d*%d = %d does not exceed the %d alphabet codes", ErrInvalidPrimePool, distinct[0], distinct[1], n, codes)
	}
	return nil
}
