package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/toeirei/rsaclass/internal/model"
)

var sampleKey = model.Keypair{N: 3233, E: 17, D: 2753, P: 61, Q: 53, Phi: 3120, Source: model.SourceDerived}

func TestSaveAndGetKeypair(t *testing.T) {
	s := newTestStore(t)

	kp := sampleKey
	kp.Label = "lesson"
	kp.ID = 42 // ignored
	id, err := s.SaveKeypair(kp)
	if err != nil {
		t.Fatalf("SaveKeypair: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := s.GetKeypair(id)
	if err != nil {
		t.Fatalf("GetKeypair: %v", err)
	}
	if got.N != 3233 || got.E != 17 || got.D != 2753 || got.P != 61 || got.Q != 53 || got.Phi != 3120 {
		t.Fatalf("unexpected numbers %+v", got)
	}
	if got.Label != "lesson" || got.Source != model.SourceDerived || got.IsActive {
		t.Fatalf("unexpected metadata %+v", got)
	}
	if got.CreatedAt.IsZero() || time.Since(got.CreatedAt) > time.Hour {
		t.Fatalf("unexpected created_at %v", got.CreatedAt)
	}
}

func TestGetKeypair_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetKeypair(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetActiveKeypair(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetActiveKeypair: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteKeypair(999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteKeypair: expected ErrNotFound, got %v", err)
	}
}

func TestActiveKeypair_IsExclusive(t *testing.T) {
	s := newTestStore(t)

	if kp, err := s.GetActiveKeypair(); err != nil || kp != nil {
		t.Fatalf("expected no active keypair, got %+v %v", kp, err)
	}

	first, _ := s.SaveKeypair(sampleKey)
	second, _ := s.SaveKeypair(model.Keypair{N: 3127, E: 3, D: 2011, P: 53, Q: 59, Phi: 3016, Source: model.SourceFallback})

	if err := s.SetActiveKeypair(first); err != nil {
		t.Fatalf("SetActiveKeypair: %v", err)
	}
	if err := s.SetActiveKeypair(second); err != nil {
		t.Fatalf("SetActiveKeypair: %v", err)
	}
	active, err := s.GetActiveKeypair()
	if err != nil || active == nil || active.ID != second {
		t.Fatalf("expected %d active, got %+v %v", second, active, err)
	}

	list, err := s.ListKeypairs()
	if err != nil {
		t.Fatalf("ListKeypairs: %v", err)
	}
	activeCount := 0
	for _, kp := range list {
		if kp.IsActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active keypair, got %d", activeCount)
	}

	// Saving an active keypair deactivates the others.
	kp := sampleKey
	kp.IsActive = true
	third, _ := s.SaveKeypair(kp)
	if a, _ := s.GetActiveKeypair(); a == nil || a.ID != third {
		t.Fatalf("expected %d active after save, got %+v", third, a)
	}
	if old, _ := s.GetKeypair(second); old.IsActive {
		t.Fatalf("keypair %d still active", second)
	}
}

func TestListAndDeleteKeypairs(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.SaveKeypair(sampleKey)
	b, _ := s.SaveKeypair(sampleKey)

	list, err := s.ListKeypairs()
	if err != nil || len(list) != 2 {
		t.Fatalf("ListKeypairs = %v, %v", list, err)
	}
	if list[0].ID != b || list[1].ID != a {
		t.Fatalf("expected newest first, got %d, %d", list[0].ID, list[1].ID)
	}

	if err := s.DeleteKeypair(a); err != nil {
		t.Fatalf("DeleteKeypair: %v", err)
	}
	list, _ = s.ListKeypairs()
	if len(list) != 1 || list[0].ID != b {
		t.Fatalf("unexpected list after delete: %+v", list)
	}
}

func TestActiveFlagStoredOnce(t *testing.T) {
	s := newTestStore(t)
	a, _ := s.SaveKeypair(sampleKey)
	b, _ := s.SaveKeypair(sampleKey)
	if err := s.SetActiveKeypair(a); err != nil {
		t.Fatalf("SetActiveKeypair(a): %v", err)
	}
	if err := s.SetActiveKeypair(b); err != nil {
		t.Fatalf("SetActiveKeypair(b): %v", err)
	}

	var ids []int
	if err := QueryRawInto(context.Background(), s.BunDB(), &ids, "SELECT id FROM keypairs WHERE is_active = ?", true); err != nil {
		t.Fatalf("QueryRawInto: %v", err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Fatalf("expected only %d active, got %v", b, ids)
	}
}

func TestLogActionAndAuditLog(t *testing.T) {
	s := newTestStore(t)
	if err := s.LogAction("KEY_GENERATE", "id=1"); err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if err := s.LogAction("ENCRYPT", "units=3"); err != nil {
		t.Fatalf("LogAction: %v", err)
	}

	all, err := s.GetAuditLog(0)
	if err != nil || len(all) != 2 {
		t.Fatalf("GetAuditLog = %v, %v", all, err)
	}
	if all[0].Action != "ENCRYPT" {
		t.Fatalf("expected newest entry first, got %+v", all[0])
	}
	if all[0].Username == "" || all[0].Timestamp == "" {
		t.Fatalf("missing username/timestamp: %+v", all[0])
	}
	if _, err := time.Parse(time.RFC3339, all[0].Timestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %q", all[0].Timestamp)
	}

	one, _ := s.GetAuditLog(1)
	if len(one) != 1 {
		t.Fatalf("expected limit to apply, got %d entries", len(one))
	}
}

func TestExportImportBackup(t *testing.T) {
	src := newTestStore(t)
	id, _ := src.SaveKeypair(sampleKey)
	_ = src.SetActiveKeypair(id)
	_ = src.LogAction("KEY_GENERATE", "id=1")

	backup, err := src.ExportBackup()
	if err != nil {
		t.Fatalf("ExportBackup: %v", err)
	}
	if backup.SchemaVersion != BackupSchemaVersion || len(backup.Keypairs) != 1 || len(backup.AuditLogEntries) != 1 {
		t.Fatalf("unexpected backup %+v", backup)
	}

	dst := newTestStoreNamed(t, "dst")
	_, _ = dst.SaveKeypair(model.Keypair{N: 4087, E: 7, D: 2263})
	if err := dst.ImportBackup(backup); err != nil {
		t.Fatalf("ImportBackup: %v", err)
	}
	list, _ := dst.ListKeypairs()
	if len(list) != 1 || list[0].ID != id || list[0].N != 3233 || !list[0].IsActive {
		t.Fatalf("import did not replace keyring: %+v", list)
	}
	audit, _ := dst.GetAuditLog(0)
	if len(audit) != 1 || audit[0].Action != "KEY_GENERATE" {
		t.Fatalf("unexpected audit after import: %+v", audit)
	}

	// ids keep counting after the imported ones
	next, err := dst.SaveKeypair(sampleKey)
	if err != nil || next <= id {
		t.Fatalf("expected id after %d, got %d %v", id, next, err)
	}
}

func TestImportBackup_RejectsNewerSchema(t *testing.T) {
	s := newTestStore(t)
	if err := s.ImportBackup(&model.BackupData{SchemaVersion: BackupSchemaVersion + 1}); err == nil {
		t.Fatalf("expected error for newer schema")
	}
	if err := s.ImportBackup(nil); err == nil {
		t.Fatalf("expected error for nil backup")
	}
}

func TestImportBackup_DuplicateIDsRollBack(t *testing.T) {
	s := newTestStore(t)
	keep, _ := s.SaveKeypair(sampleKey)

	dup := sampleKey
	dup.ID = 7
	err := s.ImportBackup(&model.BackupData{SchemaVersion: 1, Keypairs: []model.Keypair{dup, dup}})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := s.GetKeypair(keep); err != nil {
		t.Fatalf("failed import must leave keyring untouched: %v", err)
	}
}

func newTestStoreNamed(t *testing.T, suffix string) *BunStore {
	t.Helper()
	s, err := NewStoreFromDSN("sqlite", "file:"+t.Name()+"_"+suffix+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
