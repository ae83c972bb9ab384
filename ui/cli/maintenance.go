// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/toeirei/rsaclass/internal/backup"
	"github.com/toeirei/rsaclass/internal/config"
	"github.com/toeirei/rsaclass/internal/db"
	"github.com/toeirei/rsaclass/internal/i18n"
)

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the keyring",
		Long: `Dumps every keypair and the audit log into a single Zstandard compressed
JSON file. '.zst' is appended to the name when missing; without a name
rsaclass-backup-YYYY-MM-DD.json.zst is used.

The file can be restored into any supported database backend.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			outputFile := backup.DefaultFilename(time.Now())
			if len(args) == 1 {
				outputFile = backup.NormalizeFilename(args[0])
			}
			data, err := st.ExportBackup()
			if err != nil {
				return fmt.Errorf("export keyring: %w", err)
			}
			if err := backup.WriteFile(outputFile, data); err != nil {
				return err
			}
			_ = st.LogAction("BACKUP", fmt.Sprintf("file=%s keypairs=%d", outputFile, len(data.Keypairs)))
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("backup.written", outputFile, len(data.Keypairs)))
			return nil
		},
	}
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the keyring with the contents of a backup",
		Long: `Restores a backup written by 'rsaclass backup'. This is destructive: every
keypair and audit entry currently in the keyring is removed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			data, err := backup.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := st.ImportBackup(data); err != nil {
				return fmt.Errorf("restore keyring: %w", err)
			}
			_ = st.LogAction("RESTORE", fmt.Sprintf("file=%s keypairs=%d", args[0], len(data.Keypairs)))
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("restore.done", len(data.Keypairs)))
			return nil
		},
	}
}

func newAuditCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the keyring audit log, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.requireStore()
			if err != nil {
				return err
			}
			entries, err := st.GetAuditLog(limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Username, e.Action, e.Details)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 for all)")
	return cmd
}

func newDBMaintainCmd(a *app) *cobra.Command {
	var timeout int
	cmd := &cobra.Command{
		Use:         "db-maintain",
		Short:       "Run database maintenance (VACUUM, optimize)",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
				defer cancel()
			}
			if err := db.RunDBMaintenance(ctx, a.cfg.Database.Type, a.cfg.Database.Dsn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("maintain.done"))
			return nil
		},
	}
	cmd.Flags().IntVar(&timeout, "timeout", 0, "Timeout in seconds (0 means the default of two minutes)")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or persist the effective configuration",
	}
	show := &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration as YAML",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(&a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	var system bool
	write := &cobra.Command{
		Use:         "write",
		Short:       "Write the effective configuration to the config file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteConfigFile(&a.cfg, system)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	write.Flags().BoolVar(&system, "system", false, "Write the system wide file instead of the user one")
	cmd.AddCommand(show, write)
	return cmd
}
