// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/rsaclass/internal/core"
	"github.com/toeirei/rsaclass/internal/core/alphabet"
	"github.com/toeirei/rsaclass/internal/core/cipher"
	"github.com/toeirei/rsaclass/internal/i18n"
	"github.com/toeirei/rsaclass/internal/logging"
	"github.com/toeirei/rsaclass/internal/model"
)

type field int

const (
	messageField field = iota
	cipherField
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// keysReadyMsg reports a keypair that was restored from the keyring or
// freshly generated.
type keysReadyMsg struct {
	keypair  model.Keypair
	restored bool
	fallback bool
	err      error
}

type encryptedMsg struct {
	message string
	units   []int64
	err     error
}

type decryptedMsg struct {
	plaintext cipher.Plaintext
	err       error
}

type copiedMsg struct {
	err error
}

type appModel struct {
	session   *core.Session
	keyring   core.Keyring
	audit     any
	clipboard func(string) error

	keys    keyMap
	help    help.Model
	spinner spinner.Model
	inputs  []textinput.Model
	focus   field

	active  model.Keypair
	hasKeys bool

	result     string
	lastOutput string
	status     string
	statusKind statusKind
	working    bool
	width      int
}

func newAppModel(opts Options) appModel {
	m := appModel{
		session:   opts.Session,
		keyring:   opts.Keyring,
		audit:     opts.Audit,
		clipboard: clipboardOrDefault(opts.Clipboard),
		keys:      newKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(specialStyle)),
		inputs:    make([]textinput.Model, 2),
		working:   true,
		status:    i18n.T("status.working"),
		width:     80,
	}
	if m.audit == nil && opts.Keyring != nil {
		m.audit = opts.Keyring
	}
	for i := range m.inputs {
		t := textinput.New()
		t.Cursor.Style = focusedTextStyle
		t.Width = 60
		switch field(i) {
		case messageField:
			t.Placeholder = i18n.T("encrypt.placeholder")
			t.CharLimit = 500
		case cipherField:
			t.Placeholder = i18n.T("decrypt.placeholder")
			t.CharLimit = 4000
		}
		m.inputs[i] = t
	}
	m.inputs[messageField].Focus()
	m.inputs[messageField].TextStyle = focusedTextStyle
	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadKeys())
}

// loadKeys restores the keyring's active keypair, or generates one when
// there is none, so the screen is usable right away.
func (m appModel) loadKeys() tea.Cmd {
	s, k := m.session, m.keyring
	return func() tea.Msg {
		if k != nil {
			kp, err := core.RestoreActive(s, k)
			if err == nil {
				return keysReadyMsg{keypair: kp, restored: true}
			}
			if !errors.Is(err, core.ErrNoActiveKey) {
				logging.Warnf("could not restore active keypair: %v", err)
			}
		}
		return generateKeys(s, k)()
	}
}

func generateKeys(s *core.Session, k core.Keyring) tea.Cmd {
	return func() tea.Msg {
		res, err := core.GenerateAndStore(s, k, "")
		return keysReadyMsg{keypair: res.Keypair, fallback: res.IsFallback(), err: err}
	}
}

func encryptCmd(s *core.Session, audit any, msg string) tea.Cmd {
	return func() tea.Msg {
		units, err := core.EncryptMessage(s, audit, msg)
		return encryptedMsg{message: msg, units: units, err: err}
	}
}

func decryptCmd(s *core.Session, audit any, text string) tea.Cmd {
	return func() tea.Msg {
		pt, err := core.DecryptMessage(s, audit, text)
		return decryptedMsg{plaintext: pt, err: err}
	}
}

func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

func (m *appModel) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// startWork switches to the busy state and restarts the spinner.
func (m *appModel) startWork(cmd tea.Cmd) tea.Cmd {
	m.working = true
	m.setStatus(statusInfo, i18n.T("status.working"))
	return tea.Batch(m.spinner.Tick, cmd)
}

func (m *appModel) setFocus(f field) tea.Cmd {
	m.focus = f
	var cmd tea.Cmd
	for i := range m.inputs {
		if field(i) == f {
			cmd = m.inputs[i].Focus()
			m.inputs[i].TextStyle = focusedTextStyle
			continue
		}
		m.inputs[i].Blur()
		m.inputs[i].TextStyle = lipgloss.NewStyle()
	}
	return cmd
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.working {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case keysReadyMsg:
		m.working = false
		m.active = msg.keypair
		m.hasKeys = msg.keypair.N > 0
		m.result = ""
		m.lastOutput = ""
		switch {
		case msg.err != nil:
			m.setStatus(statusError, i18n.T("error.generic", msg.err))
		case msg.restored:
			m.setStatus(statusSuccess, i18n.T("keys.restored", msg.keypair.ID))
		case msg.fallback:
			m.setStatus(statusWarning, i18n.T("keys.fallback"))
		case !msg.keypair.Verified():
			m.setStatus(statusWarning, i18n.T("keys.unverified"))
		default:
			m.setStatus(statusSuccess, i18n.T("keys.generated"))
		}
		return m, nil

	case encryptedMsg:
		m.working = false
		if msg.err != nil {
			m.result = describeError(msg.err)
			m.setStatus(statusError, m.result)
			return m, nil
		}
		text := cipher.FormatCiphertext(msg.units)
		m.result = m.encryptReport(msg.message, text)
		m.lastOutput = text
		m.inputs[cipherField].SetValue(text)
		m.setStatus(statusSuccess, i18n.T("encrypt.done", len(msg.units)))
		return m, nil

	case decryptedMsg:
		m.working = false
		if msg.err != nil {
			m.result = describeError(msg.err) + "\n" + i18n.T("decrypt.other_keys")
			m.setStatus(statusError, describeError(msg.err))
			return m, nil
		}
		out := msg.plaintext.String()
		m.result = m.decryptReport(msg.plaintext)
		m.lastOutput = out
		if bad := msg.plaintext.Placeholders(); bad > 0 {
			m.setStatus(statusWarning, i18n.T("decrypt.placeholders", bad))
		} else {
			m.setStatus(statusSuccess, i18n.T("decrypt.done", len(msg.plaintext)))
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setStatus(statusError, i18n.T("status.copy_failed", msg.err))
		} else {
			m.setStatus(statusSuccess, i18n.T("status.copied"))
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Switch):
			return m, m.setFocus(1 - m.focus)
		case key.Matches(msg, m.keys.Generate, m.keys.Encrypt, m.keys.Decrypt, m.keys.Copy):
			if m.working {
				return m, nil
			}
			return m.handleAction(msg)
		}
	}

	var cmd tea.Cmd
	before := m.inputs[m.focus].Value()
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	if m.focus == messageField && m.hasKeys && !m.working {
		if v := m.inputs[messageField].Value(); v != before && v != "" {
			m.setStatus(statusInfo, i18n.T("encrypt.ready", utf8.RuneCountInString(v)))
		}
	}
	return m, cmd
}

func (m appModel) handleAction(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Generate):
		return m, m.startWork(generateKeys(m.session, m.keyring))

	case key.Matches(msg, m.keys.Encrypt):
		if !m.hasKeys {
			m.setStatus(statusWarning, i18n.T("error.keys_not_initialized"))
			return m, nil
		}
		text := m.inputs[messageField].Value()
		if strings.TrimSpace(text) == "" {
			m.setStatus(statusWarning, i18n.T("encrypt.empty"))
			return m, nil
		}
		return m, m.startWork(encryptCmd(m.session, m.audit, text))

	case key.Matches(msg, m.keys.Decrypt):
		if !m.hasKeys {
			m.setStatus(statusWarning, i18n.T("error.keys_not_initialized"))
			return m, nil
		}
		text := strings.TrimSpace(m.inputs[cipherField].Value())
		if text == "" {
			m.setStatus(statusWarning, i18n.T("decrypt.empty"))
			return m, nil
		}
		return m, m.startWork(decryptCmd(m.session, m.audit, text))

	case key.Matches(msg, m.keys.Copy):
		if m.lastOutput == "" {
			return m, nil
		}
		return m, copyCmd(m.clipboard, m.lastOutput)
	}
	return m, nil
}

// describeError turns engine errors into a localized sentence.
func describeError(err error) string {
	var pe *cipher.ParseError
	switch {
	case errors.As(err, &pe):
		return i18n.T("error.not_a_number", pe.Token)
	case errors.Is(err, cipher.ErrEmptyCiphertext):
		return i18n.T("decrypt.empty")
	case errors.Is(err, core.ErrEmptyMessage):
		return i18n.T("encrypt.empty")
	case errors.Is(err, cipher.ErrKeysNotInitialized):
		return i18n.T("error.keys_not_initialized")
	}
	return i18n.T("error.generic", err)
}

func (m appModel) encryptReport(message, ciphertext string) string {
	var b strings.Builder
	fmt.Fprintln(&b, i18n.T("keys.public", m.active.N, m.active.E))
	fmt.Fprintf(&b, "%q\n", message)
	fmt.Fprintln(&b, ciphertext)
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) decryptReport(pt cipher.Plaintext) string {
	var b strings.Builder
	fmt.Fprintln(&b, i18n.T("keys.private", m.active.N, m.active.D))
	fmt.Fprintf(&b, "%q\n", pt.String())
	if !pt.Clean() {
		fmt.Fprintln(&b, i18n.T("decrypt.placeholders", pt.Placeholders()))
		fmt.Fprintln(&b, i18n.T("decrypt.other_keys"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) keyPanel() string {
	if !m.hasKeys {
		return keyPanelStyle.Render(helpStyle.Render(i18n.T("keys.none")))
	}
	kp := m.active
	lines := []string{
		i18n.T("keys.public", kp.N, kp.E),
		i18n.T("keys.private", kp.N, kp.D),
	}
	if kp.P > 0 && kp.Q > 0 {
		lines = append(lines, helpStyle.Render(i18n.T("keys.primes", kp.P, kp.Q, kp.Phi)))
	}
	src := i18n.T("keys.source", kp.Source)
	if kp.Source == model.SourceFallback || !kp.Verified() {
		src = specialStyle.Render(src)
	} else {
		src = helpStyle.Render(src)
	}
	lines = append(lines, src)
	return keyPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m appModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(i18n.T("app.title")))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(i18n.T("app.subtitle", alphabet.Default().Len())))
	b.WriteString("\n\n")
	b.WriteString(m.keyPanel())
	b.WriteString("\n\n")

	labels := []string{i18n.T("encrypt.label"), i18n.T("decrypt.label")}
	for i, in := range m.inputs {
		style := labelStyle
		if field(i) == m.focus {
			style = focusedLabelStyle
		}
		b.WriteString(style.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}

	if m.result != "" {
		b.WriteString(labelStyle.Render(i18n.T("result.label")))
		b.WriteString("\n")
		b.WriteString(resultBoxStyle.Render(m.result))
		b.WriteString("\n\n")
	}

	status := statusStyle(m.statusKind).Render(m.status)
	if m.working {
		status = m.spinner.View() + " " + statusMessageStyle.Render(m.status)
	}
	b.WriteString(AlignFooter(status, helpStyle.Render(i18n.T("alphabet.header", alphabet.Default().Len())), m.width-4))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return docStyle.Render(b.String())
}
