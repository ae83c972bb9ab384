// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/rsaclass/internal/core"
	"github.com/toeirei/rsaclass/internal/core/alphabet"
	"github.com/toeirei/rsaclass/internal/core/cipher"
	"github.com/toeirei/rsaclass/internal/i18n"
	"github.com/toeirei/rsaclass/internal/model"
	"golang.org/x/term"
)

var errNoInput = errors.New("no input: pass it as arguments or pipe it on stdin")

// readInput joins args, or reads stdin when it is not a terminal.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errNoInput
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// translateError maps cipher errors onto localized messages.
func translateError(err error) error {
	var pe *cipher.ParseError
	switch {
	case errors.As(err, &pe):
		return errors.New(i18n.T("error.not_a_number", pe.Token))
	case errors.Is(err, cipher.ErrEmptyCiphertext):
		return errors.New(i18n.T("decrypt.empty"))
	case errors.Is(err, core.ErrEmptyMessage):
		return errors.New(i18n.T("encrypt.empty"))
	case errors.Is(err, cipher.ErrKeysNotInitialized), errors.Is(err, core.ErrNoActiveKey):
		return errors.New(i18n.T("error.keys_not_initialized"))
	}
	return err
}

// loadKey puts the requested keypair, or the keyring's active one, into the
// session.
func (a *app) loadKey(id int) error {
	st, err := a.requireStore()
	if err != nil {
		return err
	}
	if id > 0 {
		kp, err := st.GetKeypair(id)
		if err != nil {
			return err
		}
		a.session.Use(*kp)
		return nil
	}
	_, err = core.RestoreActive(a.session, st)
	return err
}

func printKeypair(w io.Writer, kp model.Keypair) {
	if kp.ID > 0 {
		label := kp.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "#%d %s\n", kp.ID, label)
	}
	fmt.Fprintln(w, i18n.T("keys.public", kp.N, kp.E))
	fmt.Fprintln(w, i18n.T("keys.private", kp.N, kp.D))
	if kp.P > 0 && kp.Q > 0 {
		fmt.Fprintln(w, i18n.T("keys.primes", kp.P, kp.Q, kp.Phi))
	}
	fmt.Fprintln(w, i18n.T("keys.source", kp.Source))
}

func newKeygenCmd(a *app) *cobra.Command {
	var label string
	var noSave, demo bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair and make it active",
		Long: `Draws two distinct primes from the configured pool, derives n, phi, e and d
and stores the keypair as the active one.

If derivation is impossible the keypair comes from a small table of
demonstration keys instead and a warning is printed. --demo picks one of
those keys directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var k core.Keyring
			if !noSave {
				st, err := a.requireStore()
				if err != nil {
					return err
				}
				k = st
			}
			out := cmd.OutOrStdout()
			if demo {
				res, err := core.DemoAndStore(a.session, k, label)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("keys.demo"))
				printKeypair(out, res.Keypair)
				return nil
			}
			res, err := core.GenerateAndStore(a.session, k, label)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("keys.generated"))
			printKeypair(out, res.Keypair)
			if res.IsFallback() {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("keys.fallback"))
			} else if !res.Verified() {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("keys.unverified"))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "Label stored with the keypair")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Print the keypair without storing it")
	cmd.Flags().BoolVar(&demo, "demo", false, "Use one of the demonstration keypairs")
	return cmd
}

func newEncryptCmd(a *app) *cobra.Command {
	var keyID int
	var n, e int64
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "encrypt [message...]",
		Short: "Encrypt a message with the active public key",
		Long: `Encrypts every character of the message separately and prints the
ciphertext as space separated numbers. The message is read from stdin when
no arguments are given. Characters outside the alphabet are encrypted as a
space.

Use --n and --e to encrypt for someone else's public key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var units []int64
			if n > 0 || e > 0 {
				if strings.TrimSpace(msg) == "" {
					return translateError(core.ErrEmptyMessage)
				}
				units, err = cipher.Encrypt(model.PublicKey{N: n, E: e}, msg)
			} else {
				if err := a.loadKey(keyID); err != nil {
					return translateError(err)
				}
				units, err = core.EncryptMessage(a.session, a.store, msg)
			}
			if err != nil {
				return translateError(err)
			}
			text := cipher.FormatCiphertext(units)
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return a.maybeCopy(cmd, copyOut, text)
		},
	}
	cmd.Flags().IntVarP(&keyID, "key", "k", 0, "Keyring id to use instead of the active keypair")
	cmd.Flags().Int64Var(&n, "n", 0, "Modulus of an explicit public key")
	cmd.Flags().Int64Var(&e, "e", 0, "Exponent of an explicit public key")
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "Copy the result to the clipboard")
	cmd.MarkFlagsRequiredTogether("n", "e")
	cmd.MarkFlagsMutuallyExclusive("key", "n")
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var keyID int
	var n, d int64
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "decrypt [numbers...]",
		Short: "Decrypt space separated numbers with the active private key",
		Long: `Decrypts each number back into one character. Numbers that do not map
back onto the alphabet are shown as ` + string(cipher.Placeholder) + ` and reported on stderr.
Input is read from stdin when no arguments are given.

Use --n and --d to decrypt with an explicit private key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var pt cipher.Plaintext
			if n > 0 || d > 0 {
				units, perr := cipher.ParseCiphertext(text)
				if perr != nil {
					return translateError(perr)
				}
				pt, err = cipher.Decrypt(model.PrivateKey{N: n, D: d}, units)
			} else {
				if err := a.loadKey(keyID); err != nil {
					return translateError(err)
				}
				pt, err = core.DecryptMessage(a.session, a.store, text)
			}
			if err != nil {
				return translateError(err)
			}
			out := pt.String()
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if bad := pt.Placeholders(); bad > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("decrypt.placeholders", bad))
			}
			return a.maybeCopy(cmd, copyOut, out)
		},
	}
	cmd.Flags().IntVarP(&keyID, "key", "k", 0, "Keyring id to use instead of the active keypair")
	cmd.Flags().Int64Var(&n, "n", 0, "Modulus of an explicit private key")
	cmd.Flags().Int64Var(&d, "d", 0, "Exponent of an explicit private key")
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "Copy the result to the clipboard")
	cmd.MarkFlagsRequiredTogether("n", "d")
	cmd.MarkFlagsMutuallyExclusive("key", "n")
	return cmd
}

func (a *app) maybeCopy(cmd *cobra.Command, enabled bool, text string) error {
	if !enabled {
		return nil
	}
	if err := a.clipboardWrite(text); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("status.copy_failed", err))
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("status.copied"))
	return nil
}

func newAlphabetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "alphabet",
		Short:       "Print the character table with its codes",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := alphabet.Default()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("alphabet.header", codec.Len()))
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tCHAR")
			for i, r := range codec.Runes() {
				fmt.Fprintf(w, "%d\t%q\n", i+1, r)
			}
			return w.Flush()
		},
	}
}
