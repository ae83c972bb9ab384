// Copyright (c) 2026 ToeiRei
// rsaclass - RSA teaching toolkit
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/user"
	"strings"
	"time"

	"github.com/toeirei/rsaclass/internal/model"
	"github.com/uptrace/bun"
)

// BackupSchemaVersion is written into every exported BackupData.
const BackupSchemaVersion = 1

// Store is the keyring contract used by the CLI and the TUI.
type Store interface {
	SaveKeypair(kp model.Keypair) (int, error)
	GetKeypair(id int) (*model.Keypair, error)
	GetActiveKeypair() (*model.Keypair, error)
	SetActiveKeypair(id int) error
	ListKeypairs() ([]model.Keypair, error)
	DeleteKeypair(id int) error

	LogAction(action, details string) error
	GetAuditLog(limit int) ([]model.AuditLogEntry, error)

	ExportBackup() (*model.BackupData, error)
	ImportBackup(backup *model.BackupData) error

	Type() string
	Close() error
}

// KeypairModel maps the keypairs table.
type KeypairModel struct {
	bun.BaseModel `bun:"table:keypairs"`
	ID            int       `bun:"id,pk,autoincrement"`
	Label         string    `bun:"label"`
	N             int64     `bun:"n"`
	E             int64     `bun:"e"`
	D             int64     `bun:"d"`
	P             int64     `bun:"p"`
	Q             int64     `bun:"q"`
	Phi           int64     `bun:"phi"`
	Source        string    `bun:"source"`
	IsActive      bool      `bun:"is_active"`
	CreatedAt     time.Time `bun:"created_at"`
}

// AuditLogModel maps the audit_log table.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Username      string    `bun:"username"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

func keypairModelToModel(m KeypairModel) model.Keypair {
	return model.Keypair{
		ID:        m.ID,
		Label:     m.Label,
		N:         m.N,
		E:         m.E,
		D:         m.D,
		P:         m.P,
		Q:         m.Q,
		Phi:       m.Phi,
		Source:    model.Source(m.Source),
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func keypairToModel(kp model.Keypair) *KeypairModel {
	created := kp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	source := kp.Source
	if source == "" {
		source = model.SourceImported
	}
	return &KeypairModel{
		ID:        kp.ID,
		Label:     kp.Label,
		N:         kp.N,
		E:         kp.E,
		D:         kp.D,
		P:         kp.P,
		Q:         kp.Q,
		Phi:       kp.Phi,
		Source:    string(source),
		IsActive:  kp.IsActive,
		CreatedAt: created.UTC(),
	}
}

func auditModelToModel(a AuditLogModel) model.AuditLogEntry {
	return model.AuditLogEntry{
		ID:        a.ID,
		Timestamp: a.Timestamp.UTC().Format(time.RFC3339),
		Username:  a.Username,
		Action:    a.Action,
		Details:   a.Details,
	}
}

var _ Store = (*BunStore)(nil)

// BunStore implements Store on top of a *bun.DB.
type BunStore struct {
	bun    *bun.DB
	dbType string
}

// Type returns the database type the store was opened with.
func (s *BunStore) Type() string { return s.dbType }

// Close closes the underlying database.
func (s *BunStore) Close() error { return s.bun.Close() }

// BunDB exposes the bun handle for maintenance and tests.
func (s *BunStore) BunDB() *bun.DB { return s.bun }

// SaveKeypair inserts kp and returns its new id. The incoming ID is ignored.
// A keypair saved as active deactivates every other one.
func (s *BunStore) SaveKeypair(kp model.Keypair) (int, error) {
	ctx := context.Background()
	m := keypairToModel(kp)
	m.ID = 0
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if m.IsActive {
			if _, err := ExecRaw(ctx, tx, "UPDATE keypairs SET is_active = ? WHERE is_active = ?", false, true); err != nil {
				return err
			}
		}
		_, err := tx.NewInsert().Model(m).
			Column("label", "n", "e", "d", "p", "q", "phi", "source", "is_active", "created_at").
			Returning("id").Exec(ctx)
		return err
	})
	if err != nil {
		return 0, MapDBError(err)
	}
	return m.ID, nil
}

// GetKeypair returns the keypair with id or ErrNotFound.
func (s *BunStore) GetKeypair(id int) (*model.Keypair, error) {
	var m KeypairModel
	if err := s.bun.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(context.Background()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("keypair %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	kp := keypairModelToModel(m)
	return &kp, nil
}

// GetActiveKeypair returns the active keypair, or nil when none is active.
func (s *BunStore) GetActiveKeypair() (*model.Keypair, error) {
	var m KeypairModel
	err := s.bun.NewSelect().Model(&m).Where("is_active = ?", true).OrderExpr("id DESC").Limit(1).Scan(context.Background())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	kp := keypairModelToModel(m)
	return &kp, nil
}

// SetActiveKeypair makes id the only active keypair.
func (s *BunStore) SetActiveKeypair(id int) error {
	ctx := context.Background()
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*KeypairModel)(nil)).Set("is_active = ?", true).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("keypair %d: %w", id, ErrNotFound)
		}
		_, err = tx.NewUpdate().Model((*KeypairModel)(nil)).Set("is_active = ?", false).Where("id <> ?", id).Exec(ctx)
		return err
	})
}

// ListKeypairs returns every keypair, newest first.
func (s *BunStore) ListKeypairs() ([]model.Keypair, error) {
	var ms []KeypairModel
	if err := s.bun.NewSelect().Model(&ms).OrderExpr("id DESC").Scan(context.Background()); err != nil {
		return nil, err
	}
	out := make([]model.Keypair, 0, len(ms))
	for _, m := range ms {
		out = append(out, keypairModelToModel(m))
	}
	return out, nil
}

// DeleteKeypair removes keypair id.
func (s *BunStore) DeleteKeypair(id int) error {
	res, err := s.bun.NewDelete().Model((*KeypairModel)(nil)).Where("id = ?", id).Exec(context.Background())
	if err != nil {
		return MapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("keypair %d: %w", id, ErrNotFound)
	}
	return nil
}

// currentUsername returns the OS user name without a Windows domain prefix.
func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(u.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return u.Username
}

// LogAction appends an audit entry attributed to the current OS user.
func (s *BunStore) LogAction(action, details string) error {
	_, err := s.bun.NewInsert().Model(&AuditLogModel{
		Timestamp: time.Now().UTC(),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}).Column("timestamp", "username", "action", "details").Exec(context.Background())
	return MapDBError(err)
}

// GetAuditLog returns the newest limit audit entries, or all of them when
// limit <= 0.
func (s *BunStore) GetAuditLog(limit int) ([]model.AuditLogEntry, error) {
	var am []AuditLogModel
	q := s.bun.NewSelect().Model(&am).OrderExpr("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(context.Background()); err != nil {
		return nil, err
	}
	out := make([]model.AuditLogEntry, 0, len(am))
	for _, a := range am {
		out = append(out, auditModelToModel(a))
	}
	return out, nil
}

// ExportBackup reads every keypair and audit entry in one transaction.
func (s *BunStore) ExportBackup() (*model.BackupData, error) {
	ctx := context.Background()
	backup := &model.BackupData{SchemaVersion: BackupSchemaVersion}
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		var kps []KeypairModel
		if err := tx.NewSelect().Model(&kps).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, m := range kps {
			backup.Keypairs = append(backup.Keypairs, keypairModelToModel(m))
		}
		var als []AuditLogModel
		if err := tx.NewSelect().Model(&als).OrderExpr("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, a := range als {
			backup.AuditLogEntries = append(backup.AuditLogEntries, auditModelToModel(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backup, nil
}

// ImportBackup wipes the keyring and replaces it with backup, keeping ids.
func (s *BunStore) ImportBackup(backup *model.BackupData) error {
	if backup == nil {
		return errors.New("nil backup")
	}
	if backup.SchemaVersion > BackupSchemaVersion {
		return fmt.Errorf("backup schema version %d is newer than supported version %d", backup.SchemaVersion, BackupSchemaVersion)
	}
	ctx := context.Background()
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, t := range []string{"audit_log", "keypairs"} {
			if _, err := ExecRaw(ctx, tx, "DELETE FROM "+t); err != nil {
				return err
			}
		}
		for _, kp := range backup.Keypairs {
			if _, err := tx.NewInsert().Model(keypairToModel(kp)).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, ale := range backup.AuditLogEntries {
			ts, err := time.Parse(time.RFC3339, ale.Timestamp)
			if err != nil {
				ts = time.Now().UTC()
			}
			m := &AuditLogModel{ID: ale.ID, Timestamp: ts.UTC(), Username: ale.Username, Action: ale.Action, Details: ale.Details}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.resetSequences(ctx)
}

// resetSequences moves PostgreSQL serial sequences past imported ids. SQLite
// and MySQL track this on their own.
func (s *BunStore) resetSequences(ctx context.Context) error {
	if s.dbType != "postgres" {
		return nil
	}
	for _, t := range []string{"keypairs", "audit_log"} {
		q := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", t, t)
		if _, err := ExecRaw(ctx, s.bun, q); err != nil {
			return fmt.Errorf("reset sequence for %s: %w", t, err)
		}
	}
	return nil
}
