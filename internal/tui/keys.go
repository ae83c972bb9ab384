// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/toeirei/rsaclass/internal/i18n"
)

type keyMap struct {
	Generate key.Binding
	Encrypt  key.Binding
	Decrypt  key.Binding
	Switch   key.Binding
	Copy     key.Binding
	Quit     key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Generate, km.Encrypt, km.Decrypt, km.Switch, km.Copy, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Generate, km.Encrypt, km.Decrypt},
		{km.Switch, km.Copy, km.Quit},
	}
}

var _ help.KeyMap = keyMap{}

// newKeyMap builds the bindings with help texts in the current language.
func newKeyMap() keyMap {
	return keyMap{
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", i18n.T("help.generate")),
		),
		Encrypt: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", i18n.T("help.encrypt")),
		),
		Decrypt: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", i18n.T("help.decrypt")),
		),
		Switch: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", i18n.T("help.switch")),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", i18n.T("help.copy")),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", i18n.T("help.quit")),
		),
	}
}
