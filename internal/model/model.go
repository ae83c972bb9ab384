// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data types shared between the rsaclass core,
// the keyring store and the user interfaces.
package model

import (
	"fmt"
	"time"

	"github.com/toeirei/rsaclass/internal/core/numtheory"
)

// Source records how a keypair came to be.
type Source string

const (
	// SourceDerived keys were computed from two pool primes and verified.
	SourceDerived Source = "derived"
	// SourceFallback keys come from the fixed demonstration table.
	SourceFallback Source = "fallback"
	// SourceUnverified keys were derived but e*d mod phi != 1.
	SourceUnverified Source = "unverified"
	// SourceImported keys were entered or restored by the user.
	SourceImported Source = "imported"
)

// Keypair is a full textbook RSA key: n = p*q, phi = (p-1)(q-1) and
// e*d = 1 (mod phi) when Source is SourceDerived.
type Keypair struct {
	ID        int       `json:"id" yaml:"id"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	N         int64     `json:"n" yaml:"n"`
	E         int64     `json:"e" yaml:"e"`
	D         int64     `json:"d" yaml:"d"`
	P         int64     `json:"p" yaml:"p"`
	Q         int64     `json:"q" yaml:"q"`
	Phi       int64     `json:"phi" yaml:"phi"`
	Source    Source    `json:"source" yaml:"source"`
	IsActive  bool      `json:"is_active" yaml:"is_active"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// PublicKey is the (n, e) half used for encryption.
type PublicKey struct {
	N int64
	E int64
}

// PrivateKey is the (n, d) half used for decryption.
type PrivateKey struct {
	N int64
	D int64
}

// Public returns the encryption half of the keypair.
func (k Keypair) Public() PublicKey {
	return PublicKey{N: k.N, E: k.E}
}

// Private returns the decryption half of the keypair.
func (k Keypair) Private() PrivateKey {
	return PrivateKey{N: k.N, D: k.D}
}

// Verified reports whether d really is the inverse of e modulo phi.
func (k Keypair) Verified() bool {
	return k.Phi > 1 && numtheory.MulMod(k.E, k.D, k.Phi) == 1
}

// String returns the compact "n=… e=… d=…" form.
func (k Keypair) String() string {
	return fmt.Sprintf("n=%d e=%d d=%d", k.N, k.E, k.D)
}

// AuditLogEntry is one row of the keyring audit trail.
type AuditLogEntry struct {
	ID        int    `json:"id"`
	Timestamp string `json:"timestamp"`
	Username  string `json:"username"`
	Action    string `json:"action"`
	Details   string `json:"details"`
}

// BackupData is everything a backup file carries.
type BackupData struct {
	SchemaVersion   int             `json:"schema_version"`
	Keypairs        []Keypair       `json:"keypairs"`
	AuditLogEntries []AuditLogEntry `json:"audit_log_entries"`
}
