// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"sync"

	"github.com/toeirei/rsaclass/internal/core/cipher"
	"github.com/toeirei/rsaclass/internal/core/keygen"
	"github.com/toeirei/rsaclass/internal/logging"
	"github.com/toeirei/rsaclass/internal/model"
)

// Session owns the active keypair for one user of the engine. A fresh
// session has no key, and Encrypt/Decrypt return
// cipher.ErrKeysNotInitialized until Generate or Use is called.
type Session struct {
	gen *keygen.Generator

	mu     sync.RWMutex
	active *model.Keypair
}

// NewSession returns an empty session drawing keys from gen. A nil gen uses
// the default generator.
func NewSession(gen *keygen.Generator) *Session {
	if gen == nil {
		gen = keygen.New(keygen.Options{})
	}
	return &Session{gen: gen}
}

// Generate derives a new keypair and makes it active, replacing any previous
// one. It always yields a keypair.
func (s *Session) Generate() keygen.Result {
	res := s.gen.Generate()
	switch {
	case res.IsFallback():
		logging.Warnf("key derivation failed, using demonstration key %s: %v", res.Keypair, res.Reason)
	case !res.Verified():
		logging.Warnf("derived key %s does not satisfy e*d = 1 (mod %d)", res.Keypair, res.Keypair.Phi)
	default:
		logging.Debugf("derived key %s from p=%d q=%d", res.Keypair, res.Keypair.P, res.Keypair.Q)
	}
	s.Use(res.Keypair)
	return res
}

// UseDemo makes a uniformly chosen demonstration keypair active, skipping
// derivation.
func (s *Session) UseDemo() keygen.Result {
	res := keygen.Result{Keypair: s.gen.Fallback()}
	logging.Debugf("using demonstration key %s", res.Keypair)
	s.Use(res.Keypair)
	return res
}

// Use makes kp the active keypair.
func (s *Session) Use(kp model.Keypair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &kp
}

// Active returns the active keypair, if any.
func (s *Session) Active() (model.Keypair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return model.Keypair{}, false
	}
	return *s.active, true
}

// Reset drops the active keypair.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// Encrypt encrypts msg with the active public key.
func (s *Session) Encrypt(msg string) ([]int64, error) {
	kp, ok := s.Active()
	if !ok {
		return nil, cipher.ErrKeysNotInitialized
	}
	return cipher.Encrypt(kp.Public(), msg)
}

// Decrypt decrypts units with the active private key.
func (s *Session) Decrypt(units []int64) (cipher.Plaintext, error) {
	kp, ok := s.Active()
	if !ok {
		return nil, cipher.ErrKeysNotInitialized
	}
	return cipher.Decrypt(kp.Private(), units)
}

// DecryptText parses space separated ciphertext and decrypts it. Parse
// errors are returned before anything is decrypted.
func (s *Session) DecryptText(text string) (cipher.Plaintext, error) {
	if _, ok := s.Active(); !ok {
		return nil, cipher.ErrKeysNotInitialized
	}
	units, err := cipher.ParseCiphertext(text)
	if err != nil {
		return nil, err
	}
	return s.Decrypt(units)
}
