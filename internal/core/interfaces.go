// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core ties the arithmetic packages together for the user interfaces:
// the Session holding the active keypair and the facades that persist keys
// through a Keyring.
package core

import "github.com/toeirei/rsaclass/internal/model"

// Keyring is the subset of the keyring store the facades need. The db
// package's Store satisfies it.
type Keyring interface {
	SaveKeypair(kp model.Keypair) (int, error)
	GetKeypair(id int) (*model.Keypair, error)
	GetActiveKeypair() (*model.Keypair, error)
	SetActiveKeypair(id int) error
}

// AuditWriter is the minimal contract for emitting audit events.
type AuditWriter interface {
	LogAction(action, details string) error
}
