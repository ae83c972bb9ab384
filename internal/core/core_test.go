package core

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/toeirei/rsaclass/internal/core/cipher"
	"github.com/toeirei/rsaclass/internal/core/keygen"
	"github.com/toeirei/rsaclass/internal/model"
)

// fakeKeyring is an in-memory Keyring and AuditWriter.
type fakeKeyring struct {
	mu      sync.Mutex
	keys    map[int]model.Keypair
	nextID  int
	actions []string
	saveErr error
}

func newFakeKeyring() *fakeKeyring {
	return &fakeKeyring{keys: map[int]model.Keypair{}}
}

func (f *fakeKeyring) SaveKeypair(kp model.Keypair) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.nextID++
	kp.ID = f.nextID
	f.keys[kp.ID] = kp
	return kp.ID, nil
}

func (f *fakeKeyring) GetKeypair(id int) (*model.Keypair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kp, ok := f.keys[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &kp, nil
}

func (f *fakeKeyring) GetActiveKeypair() (*model.Keypair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, kp := range f.keys {
		if kp.IsActive {
			return &kp, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyring) SetActiveKeypair(id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[id]; !ok {
		return errors.New("not found")
	}
	for k, kp := range f.keys {
		kp.IsActive = k == id
		f.keys[k] = kp
	}
	return nil
}

func (f *fakeKeyring) LogAction(action, details string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action+" "+details)
	return nil
}

func newTestSession(seed uint64) *Session {
	return NewSession(keygen.New(keygen.Options{Rand: rand.New(rand.NewPCG(seed, seed))}))
}

func TestSession_RequiresKeys(t *testing.T) {
	s := newTestSession(1)
	if _, err := s.Encrypt("hi"); !errors.Is(err, cipher.ErrKeysNotInitialized) {
		t.Fatalf("Encrypt without keys: %v", err)
	}
	if _, err := s.Decrypt([]int64{1}); !errors.Is(err, cipher.ErrKeysNotInitialized) {
		t.Fatalf("Decrypt without keys: %v", err)
	}
	if _, err := s.DecryptText("not numbers"); !errors.Is(err, cipher.ErrKeysNotInitialized) {
		t.Fatalf("DecryptText without keys should report missing keys first: %v", err)
	}
}

func TestSession_GenerateAndRoundTrip(t *testing.T) {
	s := newTestSession(7)
	res := s.Generate()
	if !res.Verified() {
		t.Fatalf("expected verified key, got %+v", res.Keypair)
	}
	active, ok := s.Active()
	if !ok || active != res.Keypair {
		t.Fatalf("generated key not active: %+v", active)
	}

	msg := "Привет, World 42!"
	units, err := s.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := s.DecryptText(cipher.FormatCiphertext(units))
	if err != nil {
		t.Fatalf("DecryptText: %v", err)
	}
	if got := pt.String(); got != msg {
		t.Fatalf("round trip = %q, want %q", got, msg)
	}
}

func TestSession_UseAndReset(t *testing.T) {
	s := newTestSession(3)
	demo := keygen.DemoKeypairs()[0]
	s.Use(demo)
	units, err := s.Encrypt("A")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	// 65^17 mod 3233
	if len(units) != 1 || units[0] != 2790 {
		t.Fatalf("unexpected ciphertext %v", units)
	}
	s.Reset()
	if _, ok := s.Active(); ok {
		t.Fatalf("expected no active key after Reset")
	}
}

func TestSession_DecryptTextParseError(t *testing.T) {
	s := newTestSession(3)
	s.Generate()
	var pe *cipher.ParseError
	if _, err := s.DecryptText("12 x"); !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if _, err := s.DecryptText("   "); !errors.Is(err, cipher.ErrEmptyCiphertext) {
		t.Fatalf("expected ErrEmptyCiphertext, got %v", err)
	}
}

func TestGenerateAndStore_SavesAndActivates(t *testing.T) {
	s := newTestSession(11)
	k := newFakeKeyring()
	res, err := GenerateAndStore(s, k, "  lesson 1 ")
	if err != nil {
		t.Fatalf("GenerateAndStore: %v", err)
	}
	if res.Keypair.ID == 0 || !res.Keypair.IsActive || res.Keypair.Label != "lesson 1" {
		t.Fatalf("unexpected stored keypair %+v", res.Keypair)
	}
	active, _ := s.Active()
	if active.ID != res.Keypair.ID {
		t.Fatalf("session not using stored key: %+v", active)
	}
	stored, _ := k.GetActiveKeypair()
	if stored == nil || stored.ID != res.Keypair.ID {
		t.Fatalf("keyring active key mismatch: %+v", stored)
	}
	if len(k.actions) != 1 || !strings.HasPrefix(k.actions[0], ActionKeyGenerate) {
		t.Fatalf("unexpected audit trail %v", k.actions)
	}
}

func TestGenerateAndStore_NilKeyring(t *testing.T) {
	s := newTestSession(11)
	res, err := GenerateAndStore(s, nil, "x")
	if err != nil || res.Keypair.ID != 0 {
		t.Fatalf("unexpected result %+v %v", res.Keypair, err)
	}
	if _, ok := s.Active(); !ok {
		t.Fatalf("session should still hold the generated key")
	}
}

func TestGenerateAndStore_SaveError(t *testing.T) {
	s := newTestSession(11)
	k := newFakeKeyring()
	k.saveErr = errors.New("disk full")
	if _, err := GenerateAndStore(s, k, ""); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
}

func TestRestoreActive(t *testing.T) {
	s := newTestSession(5)
	k := newFakeKeyring()
	if _, err := RestoreActive(s, k); !errors.Is(err, ErrNoActiveKey) {
		t.Fatalf("expected ErrNoActiveKey, got %v", err)
	}
	demo := keygen.DemoKeypairs()[1]
	id, _ := k.SaveKeypair(demo)
	_ = k.SetActiveKeypair(id)

	kp, err := RestoreActive(s, k)
	if err != nil {
		t.Fatalf("RestoreActive: %v", err)
	}
	if kp.N != demo.N || kp.D != demo.D {
		t.Fatalf("restored wrong key %+v", kp)
	}
	if active, _ := s.Active(); active.ID != id {
		t.Fatalf("session not updated: %+v", active)
	}
}

func TestRestoreActive_ResetsSessionWithoutActiveKey(t *testing.T) {
	s := newTestSession(5)
	s.Use(keygen.DemoKeypairs()[0])

	if _, err := RestoreActive(s, newFakeKeyring()); !errors.Is(err, ErrNoActiveKey) {
		t.Fatalf("expected ErrNoActiveKey, got %v", err)
	}
	if kp, ok := s.Active(); ok {
		t.Fatalf("session kept stale key %+v", kp)
	}
}

func TestDemoAndStore(t *testing.T) {
	s := newTestSession(13)
	k := newFakeKeyring()
	res, err := DemoAndStore(s, k, "demo")
	if err != nil {
		t.Fatalf("DemoAndStore: %v", err)
	}
	kp := res.Keypair
	if !res.IsFallback() || res.Reason != nil || !kp.Verified() {
		t.Fatalf("expected a verified demonstration keypair, got %+v (%v)", kp, res.Reason)
	}
	if kp.ID == 0 || !kp.IsActive || kp.Label != "demo" {
		t.Fatalf("unexpected stored keypair %+v", kp)
	}
	if active, _ := s.Active(); active.ID != kp.ID {
		t.Fatalf("session not using demo key: %+v", active)
	}
}

func TestActivateStored(t *testing.T) {
	s := newTestSession(5)
	k := newFakeKeyring()
	first, _ := k.SaveKeypair(keygen.DemoKeypairs()[0])
	second, _ := k.SaveKeypair(keygen.DemoKeypairs()[2])
	_ = k.SetActiveKeypair(first)

	kp, err := ActivateStored(s, k, second)
	if err != nil {
		t.Fatalf("ActivateStored: %v", err)
	}
	if !kp.IsActive || kp.ID != second {
		t.Fatalf("unexpected keypair %+v", kp)
	}
	if active, _ := k.GetActiveKeypair(); active.ID != second {
		t.Fatalf("keyring still has %d active", active.ID)
	}
	if _, err := ActivateStored(s, k, 99); err == nil {
		t.Fatalf("expected error for unknown id")
	}
}

func TestImportKeypair(t *testing.T) {
	k := newFakeKeyring()
	id, err := ImportKeypair(k, model.Keypair{N: 3233, E: 17, D: 2753, Phi: 3120})
	if err != nil {
		t.Fatalf("ImportKeypair: %v", err)
	}
	got, _ := k.GetKeypair(id)
	if got.Source != model.SourceImported || got.IsActive {
		t.Fatalf("unexpected imported keypair %+v", got)
	}
	if _, err := ImportKeypair(k, model.Keypair{N: 1, E: 3, D: 3}); err == nil {
		t.Fatalf("expected error for n <= 1")
	}
}

func TestEncryptDecryptMessage_AuditsLengthsOnly(t *testing.T) {
	s := newTestSession(9)
	s.Generate()
	k := newFakeKeyring()

	if _, err := EncryptMessage(s, k, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	units, err := EncryptMessage(s, k, "secret")
	if err != nil {
		t.Fatalf("EncryptMessage: %v", err)
	}
	pt, err := DecryptMessage(s, k, cipher.FormatCiphertext(units))
	if err != nil || pt.String() != "secret" {
		t.Fatalf("DecryptMessage = %q, %v", pt.String(), err)
	}
	if len(k.actions) != 2 {
		t.Fatalf("expected two audit entries, got %v", k.actions)
	}
	for _, a := range k.actions {
		if strings.Contains(a, "secret") {
			t.Fatalf("audit entry leaks message content: %q", a)
		}
	}
	if k.actions[0] != ActionEncrypt+" units=6" {
		t.Fatalf("unexpected encrypt audit %q", k.actions[0])
	}
	if k.actions[1] != ActionDecrypt+" units=6 placeholders=0" {
		t.Fatalf("unexpected decrypt audit %q", k.actions[1])
	}
}

func TestDecryptMessage_ReportsPlaceholders(t *testing.T) {
	s := newTestSession(9)
	s.Use(keygen.DemoKeypairs()[0])
	// 5000 is outside [0, 3233).
	pt, err := DecryptMessage(s, nil, "5000")
	if err != nil {
		t.Fatalf("DecryptMessage: %v", err)
	}
	if pt.Placeholders() != 1 || pt.Clean() {
		t.Fatalf("expected one placeholder, got %q", pt.String())
	}
}
