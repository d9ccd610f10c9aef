package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
	"relaychat/internal/store"
)

var fastKDF = store.ScryptParams{N: 1 << 10, R: 8, P: 1}

func newKeyPair(t *testing.T) domain.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateRSA(1024)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return kp
}

func TestKeyFileStore_Empty_NotFound(t *testing.T) {
	s := store.NewKeyFileStore(filepath.Join(t.TempDir(), "keys"), nil)

	_, ok, err := s.LoadKeyPair()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected no keypair in empty dir")
	}
}

func TestKeyFileStore_SaveLoad_OK(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	s := store.NewKeyFileStore(dir, nil)
	kp := newKeyPair(t)

	if err := s.SaveKeyPair(kp); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := store.NewKeyFileStore(dir, nil).LoadKeyPair()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.Public.Equal(kp.Public) || !got.Private.Equal(kp.Private) {
		t.Fatal("mismatch after load")
	}

	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("private.pem mode = %v", info.Mode().Perm())
	}
}

func TestKeyFileStore_Partial_Fails(t *testing.T) {
	for _, missing := range []string{"public.pem", "private.pem"} {
		t.Run(missing, func(t *testing.T) {
			dir := t.TempDir()
			s := store.NewKeyFileStore(dir, nil)
			if err := s.SaveKeyPair(newKeyPair(t)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := os.Remove(filepath.Join(dir, missing)); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if _, _, err := s.LoadKeyPair(); !errors.Is(err, store.ErrKeyStore) {
				t.Fatalf("expected ErrKeyStore, got %v", err)
			}
		})
	}
}

func TestKeyFileStore_Corrupt_Fails(t *testing.T) {
	dir := t.TempDir()
	s := store.NewKeyFileStore(dir, nil)
	if err := s.SaveKeyPair(newKeyPair(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "private.pem"), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := s.LoadKeyPair(); !errors.Is(err, store.ErrKeyStore) {
		t.Fatalf("expected ErrKeyStore, got %v", err)
	}
}

func TestKeyFileStore_Mismatch_Fails(t *testing.T) {
	dir := t.TempDir()
	s := store.NewKeyFileStore(dir, nil)
	if err := s.SaveKeyPair(newKeyPair(t)); err != nil {
		t.Fatalf("save: %v", err)
	}
	other, err := crypto.MarshalPublicKey(newKeyPair(t).Public)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), other, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := s.LoadKeyPair(); !errors.Is(err, store.ErrKeyStore) {
		t.Fatalf("expected ErrKeyStore, got %v", err)
	}
}

func TestKeyFileStore_Sealed(t *testing.T) {
	dir := t.TempDir()
	s := store.NewKeyFileStore(dir, []byte("correct"))
	s.KDF = fastKDF
	kp := newKeyPair(t)
	if err := s.SaveKeyPair(kp); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "private.pem"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), "SEALED PRIVATE KEY") {
		t.Fatalf("private key not sealed:\n%s", raw)
	}

	got, ok, err := store.NewKeyFileStore(dir, []byte("correct")).LoadKeyPair()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !got.Private.Equal(kp.Private) {
		t.Fatal("mismatch after load")
	}

	for _, pass := range [][]byte{[]byte("wrong"), nil} {
		if _, _, err := store.NewKeyFileStore(dir, pass).LoadKeyPair(); !errors.Is(err, store.ErrKeyStore) {
			t.Fatalf("passphrase %q: expected ErrKeyStore, got %v", pass, err)
		}
	}
}
