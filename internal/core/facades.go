// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toeirei/rsaclass/internal/core/cipher"
	"github.com/toeirei/rsaclass/internal/core/keygen"
	"github.com/toeirei/rsaclass/internal/logging"
	"github.com/toeirei/rsaclass/internal/model"
)

// ErrNoActiveKey is returned by RestoreActive when the keyring has no active
// keypair.
var ErrNoActiveKey = errors.New("no active keypair in keyring")

// ErrEmptyMessage is returned by EncryptMessage for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Audit action names written by the facades.
const (
	ActionKeyGenerate = "KEY_GENERATE"
	ActionKeyActivate = "KEY_ACTIVATE"
	ActionKeyImport   = "KEY_IMPORT"
	ActionEncrypt     = "ENCRYPT"
	ActionDecrypt     = "DECRYPT"
)

// GenerateAndStore generates a fresh keypair into s and, when k is non-nil,
// saves it under label and marks it active. The returned Result carries the
// stored ID.
func GenerateAndStore(s *Session, k Keyring, label string) (keygen.Result, error) {
	return storeResult(s, k, label, s.Generate())
}

// DemoAndStore is GenerateAndStore with a demonstration keypair in place of
// a derived one.
func DemoAndStore(s *Session, k Keyring, label string) (keygen.Result, error) {
	return storeResult(s, k, label, s.UseDemo())
}

func storeResult(s *Session, k Keyring, label string, res keygen.Result) (keygen.Result, error) {
	if k == nil {
		return res, nil
	}
	kp := res.Keypair
	kp.Label = strings.TrimSpace(label)
	id, err := k.SaveKeypair(kp)
	if err != nil {
		return res, fmt.Errorf("save keypair: %w", err)
	}
	if err := k.SetActiveKeypair(id); err != nil {
		return res, fmt.Errorf("activate keypair %d: %w", id, err)
	}
	kp.ID = id
	kp.IsActive = true
	s.Use(kp)
	res.Keypair = kp
	audit(k, ActionKeyGenerate, fmt.Sprintf("id=%d source=%s %s", id, kp.Source, kp))
	return res, nil
}

// RestoreActive loads the keyring's active keypair into s. When the keyring
// has none, s is reset so it stops using a key the keyring no longer holds.
func RestoreActive(s *Session, k Keyring) (model.Keypair, error) {
	kp, err := k.GetActiveKeypair()
	if err != nil {
		return model.Keypair{}, err
	}
	if kp == nil {
		s.Reset()
		return model.Keypair{}, ErrNoActiveKey
	}
	s.Use(*kp)
	logging.Debugf("restored active keypair %d (%s)", kp.ID, kp)
	return *kp, nil
}

// ActivateStored marks keypair id active in the keyring and loads it into s.
func ActivateStored(s *Session, k Keyring, id int) (model.Keypair, error) {
	kp, err := k.GetKeypair(id)
	if err != nil {
		return model.Keypair{}, err
	}
	if err := k.SetActiveKeypair(id); err != nil {
		return model.Keypair{}, fmt.Errorf("activate keypair %d: %w", id, err)
	}
	kp.IsActive = true
	s.Use(*kp)
	audit(k, ActionKeyActivate, fmt.Sprintf("id=%d %s", id, kp))
	return *kp, nil
}

// ImportKeypair stores a user supplied keypair. Only n, e and d are
// required; the keypair is tagged as imported and warned about when it cannot
// be verified.
func ImportKeypair(k Keyring, kp model.Keypair) (int, error) {
	if kp.N <= 1 || kp.E <= 0 || kp.D <= 0 {
		return 0, fmt.Errorf("invalid keypair %s", kp)
	}
	kp.Source = model.SourceImported
	kp.IsActive = false
	if !kp.Verified() {
		logging.Warnf("imported keypair %s cannot be verified against phi=%d", kp, kp.Phi)
	}
	id, err := k.SaveKeypair(kp)
	if err != nil {
		return 0, fmt.Errorf("save keypair: %w", err)
	}
	audit(k, ActionKeyImport, fmt.Sprintf("id=%d %s", id, kp))
	return id, nil
}

// EncryptMessage encrypts msg with the session key and records the message
// length, never its content, in the audit log when k can write audits.
func EncryptMessage(s *Session, k any, msg string) ([]int64, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, ErrEmptyMessage
	}
	units, err := s.Encrypt(msg)
	if err != nil {
		return nil, err
	}
	audit(k, ActionEncrypt, fmt.Sprintf("units=%d", len(units)))
	return units, nil
}

// DecryptMessage parses and decrypts text with the session key. The audit
// entry records the unit count and how many glyphs failed.
func DecryptMessage(s *Session, k any, text string) (cipher.Plaintext, error) {
	pt, err := s.DecryptText(text)
	if err != nil {
		return nil, err
	}
	if n := pt.Placeholders(); n > 0 {
		logging.Warnf("%d of %d units did not decrypt to a known character", n, len(pt))
	}
	audit(k, ActionDecrypt, fmt.Sprintf("units=%d placeholders=%d", len(pt), pt.Placeholders()))
	return pt, nil
}

// audit logs an action when w implements AuditWriter. Failures are logged
// and otherwise ignored.
func audit(w any, action, details string) {
	aw, ok := w.(AuditWriter)
	if !ok || aw == nil {
		return
	}
	if err := aw.LogAction(action, details); err != nil {
		logging.Warnf("audit %s failed: %v", action, err)
	}
}
