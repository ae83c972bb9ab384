// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/toeirei/rsaclass/internal/core"
	"github.com/toeirei/rsaclass/internal/i18n"
	"github.com/toeirei/rsaclass/internal/model"
)

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid keypair id %q", arg)
	}
	return id, nil
}

// newKeysCmd is the root command for keyring management.
func newKeysCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the keyring (list, show, use, delete, import, export)",
	}
	cmd.AddCommand(
		newKeysListCmd(a),
		newKeysShowCmd(a),
		newKeysUseCmd(a),
		newKeysDeleteCmd(a),
		newKeysImportCmd(a),
		newKeysExportCmd(a),
	)
	return cmd
}

func newKeysListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored keypairs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			kps, err := st.ListKeypairs()
			if err != nil {
				return fmt.Errorf("failed to list keypairs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(kps) == 0 {
				fmt.Fprintln(out, i18n.T("keys.list_empty"))
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tACTIVE\tLABEL\tN\tE\tD\tSOURCE\tCREATED")
			for _, kp := range kps {
				active := ""
				if kp.IsActive {
					active = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
					kp.ID, active, kp.Label, kp.N, kp.E, kp.D, kp.Source, kp.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func newKeysShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a keypair in detail (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			var kp *model.Keypair
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if kp, err = st.GetKeypair(id); err != nil {
					return err
				}
			} else {
				if kp, err = st.GetActiveKeypair(); err != nil {
					return err
				}
				if kp == nil {
					return translateError(core.ErrNoActiveKey)
				}
			}
			out := cmd.OutOrStdout()
			printKeypair(out, *kp)
			fmt.Fprintf(out, "verified: %t\n", kp.Verified())
			return nil
		},
	}
}

func newKeysUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Make a stored keypair the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			if _, err := core.ActivateStored(a.session, st, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("keys.activated", id))
			return nil
		},
	}
}

func newKeysDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored keypair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			if err := st.DeleteKeypair(id); err != nil {
				return err
			}
			_ = st.LogAction("KEY_DELETE", fmt.Sprintf("id=%d", id))
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("keys.deleted", id))
			return nil
		},
	}
}

func newKeysImportCmd(a *app) *cobra.Command {
	var kp model.Keypair
	var use bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a keypair computed elsewhere, e.g. on paper",
		Long: `Stores the given numbers as an imported keypair. n, e and d are required;
p, q and phi are optional and only used to check that e*d = 1 (mod phi).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			if kp.Phi == 0 && kp.P > 1 && kp.Q > 1 {
				kp.Phi = (kp.P - 1) * (kp.Q - 1)
			}
			id, err := core.ImportKeypair(st, kp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("keys.saved", id))
			if use {
				if _, err := core.ActivateStored(a.session, st, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("keys.activated", id))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&kp.N, "n", 0, "Modulus")
	f.Int64Var(&kp.E, "e", 0, "Public exponent")
	f.Int64Var(&kp.D, "d", 0, "Private exponent")
	f.Int64Var(&kp.P, "p", 0, "First prime (optional)")
	f.Int64Var(&kp.Q, "q", 0, "Second prime (optional)")
	f.Int64Var(&kp.Phi, "phi", 0, "Euler's totient (optional, derived from p and q)")
	f.StringVarP(&kp.Label, "label", "l", "", "Label stored with the keypair")
	f.BoolVar(&use, "use", false, "Make the imported keypair active")
	_ = cmd.MarkFlagRequired("n")
	_ = cmd.MarkFlagRequired("e")
	_ = cmd.MarkFlagRequired("d")
	return cmd
}

func newKeysExportCmd(a *app) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export one or all keypairs as JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			var payload any
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				kp, err := st.GetKeypair(id)
				if err != nil {
					return err
				}
				payload = kp
			} else {
				kps, err := st.ListKeypairs()
				if err != nil {
					return err
				}
				payload = kps
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return fmt.Errorf("could not create file: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return encodeKeys(w, format, payload)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func encodeKeys(w io.Writer, format string, payload any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml", "yml":
		data, err := yaml.Marshal(payload)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}
