// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/toeirei/rsaclass/buildvars"
	"github.com/toeirei/rsaclass/internal/config"
	"github.com/toeirei/rsaclass/internal/core"
	"github.com/toeirei/rsaclass/internal/core/keygen"
	"github.com/toeirei/rsaclass/internal/db"
	"github.com/toeirei/rsaclass/internal/i18n"
	"github.com/toeirei/rsaclass/internal/logging"
	"github.com/toeirei/rsaclass/internal/tui"
)

const modulePath = "github.com/toeirei/rsaclass"

// annotationStore marks commands that do not need the keyring opened.
const annotationStore = "store"

var (
	version   = buildvars.VersionOrDefault("dev")
	gitCommit = "dev"
	buildDate = ""
)

// app carries the state shared by all commands of one root command.
type app struct {
	cfg     config.Config
	cfgFile string
	verbose bool

	session  *core.Session
	store    db.Store
	ownStore bool

	openStore      func(dbType, dsn string) (db.Store, error)
	clipboardWrite func(string) error
	runTUI         func(tui.Options) error
}

func newApp() *app {
	return &app{
		openStore: func(dbType, dsn string) (db.Store, error) {
			return db.NewStoreFromDSN(dbType, dsn)
		},
		clipboardWrite: clipboard.WriteAll,
		runTUI:         tui.Run,
	}
}

// Execute runs the CLI entrypoint. The main package should call this
// function and handle process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates a fresh root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rsaclass",
		Short: "rsaclass is a classroom toolkit for textbook RSA.",
		Long: `rsaclass generates small RSA keypairs from a pool of primes and encrypts
text one character at a time over a fixed 158 character alphabet
(Cyrillic, Latin, digits and punctuation).

Keys are kept in a keyring database so a class can come back to them.
Running without a subcommand launches the interactive TUI.`,
		SilenceUsage:       true,
		Version:            compositeVersion(),
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetOutput(cmd.ErrOrStderr())
			return a.runTUI(tui.Options{Session: a.session, Keyring: a.store, Audit: a.store})
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging, including database logs")
	pf.String("lang", "", `Interface language ("en", "de", "ru")`)
	pf.String("db-type", "", "Database type (sqlite, postgres, mysql)")
	pf.String("dsn", "", "Database connection string (DSN)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.Int("max-attempts", 0, "Attempts to draw two distinct primes before falling back")

	cmd.AddCommand(
		newKeygenCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
		newKeysCmd(a),
		newAlphabetCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newAuditCmd(a),
		newDBMaintainCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setup loads configuration and wires logging, i18n, the session and the
// keyring for the command about to run.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var cfgPath *string
	if cmd.Flags().Changed("config") && a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
		}
		cfgPath = &a.cfgFile
	}

	defaults := config.Defaults()
	cfg, err := config.LoadConfig[config.Config](cmd, defaults, cfgPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	// Empty values in a config file fall back to the defaults.
	if cfg.Database.Type == "" {
		cfg.Database.Type = defaults["database.type"].(string)
	}
	if cfg.Database.Dsn == "" {
		cfg.Database.Dsn = defaults["database.dsn"].(string)
	}
	if cfg.Language == "" {
		cfg.Language = defaults["language"].(string)
	}
	a.cfg = cfg

	if cfg.Log.Level != "" {
		if err := logging.SetLevel(cfg.Log.Level); err != nil {
			logging.Warnf("%v, keeping current level", err)
		}
	}
	if a.verbose {
		logging.SetDebug(true)
		db.SetDebug(true)
	}
	i18n.Init(cfg.Language)

	a.session = core.NewSession(keygen.New(keygen.Options{
		PrimePool:   cfg.Keygen.PrimePool,
		Exponents:   cfg.Keygen.Exponents,
		MaxAttempts: cfg.Keygen.MaxAttempts,
	}))

	if !needsStore(cmd) || a.store != nil {
		return nil
	}
	st, err := a.openStore(cfg.Database.Type, cfg.Database.Dsn)
	if err != nil {
		return fmt.Errorf("could not open keyring (%s): %w", cfg.Database.Type, err)
	}
	a.store = st
	a.ownStore = true
	return nil
}

// needsStore reports whether cmd works against the keyring. Commands
// annotated with annotationStore "none" and runs with --no-save do not.
func needsStore(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationStore] == "none" {
		return false
	}
	if noSave, err := cmd.Flags().GetBool("no-save"); err == nil && noSave {
		return false
	}
	return true
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	if a.ownStore && a.store != nil {
		err := a.store.Close()
		a.store = nil
		a.ownStore = false
		return err
	}
	return nil
}

// requireStore returns the keyring or an error when the command runs
// without one.
func (a *app) requireStore() (db.Store, error) {
	if a.store == nil {
		return nil, errors.New("keyring is not open")
	}
	return a.store, nil
}

func compositeVersion() string {
	v, c, d := resolveBuildVersion(nil)
	out := v
	if c != "" && c != "dev" {
		out += " (" + c + ")"
	}
	if d != "" {
		out += " built: " + d
	}
	return out
}

// resolveBuildVersion prefers link time values and falls back to the module
// and VCS data embedded by the Go toolchain.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := version
	resolvedCommit := gitCommit
	resolvedDate := buildDate
	if buildvars.GitCommit != "" {
		resolvedCommit = buildvars.GitCommit
	}
	if buildvars.BuildDate != "" {
		resolvedDate = buildvars.BuildDate
	}

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}
	if info != nil {
		if resolvedVersion == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		if resolvedVersion == "dev" {
			for _, dep := range info.Deps {
				if dep.Path == modulePath && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" && resolvedCommit == "dev" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" && resolvedDate == "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	if resolvedVersion == "dev" && resolvedCommit != "dev" && resolvedCommit != "" {
		resolvedVersion = resolvedCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStore: "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "rsaclass "+compositeVersion())
			return err
		},
	}
}
