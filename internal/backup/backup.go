// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

// Package backup reads and writes keyring backups: indented JSON compressed
// with Zstandard.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/rsaclass/internal/model"
)

// Extension is appended to backup file names that lack it.
const Extension = ".zst"

// DefaultFilename returns rsaclass-backup-YYYY-MM-DD.json.zst for now.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("rsaclass-backup-%s.json%s", now.Format("2006-01-02"), Extension)
}

// NormalizeFilename appends Extension when name lacks it.
func NormalizeFilename(name string) string {
	if !strings.HasSuffix(name, Extension) {
		return name + Extension
	}
	return name
}

// Encode streams data as zstd compressed JSON to w.
func Encode(w io.Writer, data *model.BackupData) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// Decode reads a zstd compressed JSON backup from r.
func Decode(r io.Reader) (*model.BackupData, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}

// WriteFile writes data to filename.
func WriteFile(filename string, data *model.BackupData) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	if err := Encode(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ReadFile reads a backup from filename.
func ReadFile(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Decode(file)
}
