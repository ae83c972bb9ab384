// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui is the interactive front end of rsaclass: one screen with the
// active keypair, a message field, a ciphertext field and a result panel.
package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/toeirei/rsaclass/internal/core"
	"github.com/toeirei/rsaclass/internal/logging"
)

// Options wires the TUI to the engine.
type Options struct {
	// Session holds the active keypair. Required.
	Session *core.Session
	// Keyring persists generated keys. When nil keys live only in memory.
	Keyring core.Keyring
	// Audit receives encrypt and decrypt events if it implements
	// core.AuditWriter.
	Audit any
	// Clipboard overrides the system clipboard.
	Clipboard func(string) error
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	if opts.Session == nil {
		opts.Session = core.NewSession(nil)
	}
	if _, err := tea.NewProgram(newAppModel(opts), tea.WithAltScreen()).Run(); err != nil {
		logging.Errorf("TUI run error: %v", err)
		return err
	}
	return nil
}

func clipboardOrDefault(fn func(string) error) func(string) error {
	if fn != nil {
		return fn
	}
	return clipboard.WriteAll
}
