package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/rsaclass/internal/config"
)

// isolate points the user config dir at a temp dir and moves into another
// one so no real rsaclass.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	t.Chdir(t.TempDir())
	return tmp
}

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "sqlite" || got.Database.Dsn != "./rsaclass.db" {
		t.Fatalf("unexpected database defaults: %+v", got.Database)
	}
	if got.Language != "en" || got.Log.Level != "info" || got.Keygen.MaxAttempts != 64 {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if len(got.Keygen.PrimePool) != 0 {
		t.Fatalf("expected empty prime pool, got %v", got.Keygen.PrimePool)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	isolate(t)
	yaml := "database:\n  type: postgres\n  dsn: postgresql://user@/db\nlanguage: de\nkeygen:\n  prime_pool: [13, 17, 19]\n  exponents: [5, 7]\n"
	file := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "postgres" || got.Language != "de" {
		t.Fatalf("file values not applied: %+v", got)
	}
	if !reflect.DeepEqual(got.Keygen.PrimePool, []int64{13, 17, 19}) || !reflect.DeepEqual(got.Keygen.Exponents, []int64{5, 7}) {
		t.Fatalf("unexpected keygen section: %+v", got.Keygen)
	}
	if got.Log.Level != "info" {
		t.Fatalf("unset key should keep default, got %q", got.Log.Level)
	}
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	isolate(t)
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &missing); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(file, []byte("database: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadConfig_EnvVars(t *testing.T) {
	isolate(t)
	t.Setenv("RSACLASS_DATABASE_TYPE", "mysql")
	t.Setenv("RSACLASS_LOG_LEVEL", "debug")
	t.Setenv("RSACLASS_KEYGEN_MAX_ATTEMPTS", "8")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Database.Type != "mysql" || got.Log.Level != "debug" || got.Keygen.MaxAttempts != 8 {
		t.Fatalf("env not applied: %+v", got)
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("RSACLASS_LANGUAGE", "de")

	cmd := &cobra.Command{}
	cmd.Flags().String("lang", "", "language")
	cmd.Flags().String("dsn", "", "dsn")
	if err := cmd.Flags().Set("lang", "ru"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Language != "ru" {
		t.Fatalf("expected ru from flag, got %q", got.Language)
	}
	if got.Database.Dsn != "./rsaclass.db" {
		t.Fatalf("unset flag must not clobber default, got %q", got.Database.Dsn)
	}
}

func TestLoadConfig_OnlyMappedFlagsBind(t *testing.T) {
	isolate(t)

	cmd := &cobra.Command{}
	cmd.Flags().String("language", "", "not a config flag")
	if err := cmd.Flags().Set("language", "ru"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Language != "en" {
		t.Fatalf("only --lang sets the language, got %q", got.Language)
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	isolate(t)

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./class.db"
	c.Language = "ru"
	c.Log.Level = "warn"
	c.Keygen.MaxAttempts = 10
	c.Keygen.PrimePool = []int64{101, 103}

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	want, _ := cfg.GetConfigPath(false)
	if path != want {
		t.Fatalf("wrote %s, expected %s", path, want)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.Language != "ru" || got.Log.Level != "warn" || got.Database.Dsn != "./class.db" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if !reflect.DeepEqual(got.Keygen.PrimePool, []int64{101, 103}) {
		t.Fatalf("prime pool mismatch: %v", got.Keygen.PrimePool)
	}
}

func TestGetConfigPath(t *testing.T) {
	tmp := isolate(t)
	p, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath: %v", err)
	}
	if p != filepath.Join(tmp, "rsaclass", "rsaclass.yaml") {
		t.Fatalf("unexpected user path %s", p)
	}
	sys, err := cfg.GetConfigPath(true)
	if err != nil || !strings.HasSuffix(sys, filepath.Join("rsaclass", "rsaclass.yaml")) {
		t.Fatalf("unexpected system path %s %v", sys, err)
	}
}
