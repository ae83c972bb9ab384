// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads rsaclass settings from defaults, YAML files,
// RSACLASS_* environment variables and command line flags using viper, and
// writes them back with goccy/go-yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "rsaclass"
	envPrefix = "RSACLASS"
)

// Config is the full application configuration.
type Config struct {
	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`
	Language string `mapstructure:"language" yaml:"language"`
	Log      struct {
		Level string `mapstructure:"level" yaml:"level"`
	} `mapstructure:"log" yaml:"log"`
	Keygen struct {
		MaxAttempts int     `mapstructure:"max_attempts" yaml:"max_attempts"`
		PrimePool   []int64 `mapstructure:"prime_pool" yaml:"prime_pool,omitempty"`
		Exponents   []int64 `mapstructure:"exponents" yaml:"exponents,omitempty"`
	} `mapstructure:"keygen" yaml:"keygen"`
}

// Defaults returns the default key/value map handed to LoadConfig. Every key
// that may come from the environment needs an entry here.
func Defaults() map[string]any {
	return map[string]any{
		"database.type":       "sqlite",
		"database.dsn":        "./rsaclass.db",
		"language":            "en",
		"log.level":           "info",
		"keygen.max_attempts": 64,
		"keygen.prime_pool":   []int64{},
		"keygen.exponents":    []int64{},
	}
}

// flagKeys maps command line flag names onto nested config keys.
var flagKeys = map[string]string{
	"db-type":      "database.type",
	"dsn":          "database.dsn",
	"lang":         "language",
	"log-level":    "log.level",
	"max-attempts": "keygen.max_attempts",
}

// GetConfigPath returns the full path of the user or system configuration
// file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), appName)
		default:
			configDir = filepath.Join("/etc", appName)
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, appName)
	}
	return filepath.Join(configDir, appName+".yaml"), nil
}

// LoadConfig resolves T from, in increasing precedence, defaults, the first
// rsaclass.yaml found (or configPath when given), RSACLASS_* environment
// variables and flags set on cmd. A missing config file is not an error.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configPath *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	if configPath != nil && *configPath != "" {
		v.SetConfigFile(*configPath)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		flags := cmd.Flags()
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return c, err
				}
			}
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// WriteConfigFile writes c as YAML to the user or system config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigTo(c, path)
}

// WriteConfigTo writes c as YAML to path, creating parent directories.
func WriteConfigTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	// The DSN may carry credentials.
	return os.WriteFile(path, data, 0o600)
}
