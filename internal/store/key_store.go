package store

import (
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
)

const (
	publicKeyFile  = "public.pem"
	privateKeyFile = "private.pem"

	pemSealedPrivateKey = "SEALED PRIVATE KEY"
)

var (
	// ErrKeyStore is returned when persisted key material exists but cannot
	// be used: one half missing, unparsable, mismatched, or sealed with a
	// different passphrase.
	ErrKeyStore = errors.New("key store unusable")
)

// KeyFileStore persists an RSA keypair as public.pem and private.pem in dir.
//
// With a non-empty passphrase the private key is sealed at rest inside a
// "SEALED PRIVATE KEY" PEM block. Plain private keys are still readable when
// a passphrase is set.
type KeyFileStore struct {
	dir        string
	passphrase []byte
	mu         sync.Mutex

	// KDF is the scrypt cost used when sealing.
	KDF ScryptParams
}

// NewKeyFileStore returns a KeyFileStore rooted at dir.
func NewKeyFileStore(dir string, passphrase []byte) *KeyFileStore {
	return &KeyFileStore{dir: dir, passphrase: passphrase, KDF: DefaultScrypt}
}

// Dir returns the directory holding the key files.
func (s *KeyFileStore) Dir() string { return s.dir }

// LoadKeyPair reads both halves. It returns ok=false when neither file exists.
func (s *KeyFileStore) LoadKeyPair() (domain.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pubRaw, err := readOptional(filepath.Join(s.dir, publicKeyFile))
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("%w: %v", ErrKeyStore, err)
	}
	privRaw, err := readOptional(filepath.Join(s.dir, privateKeyFile))
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("%w: %v", ErrKeyStore, err)
	}

	switch {
	case pubRaw == nil && privRaw == nil:
		return domain.KeyPair{}, false, nil
	case pubRaw == nil:
		return domain.KeyPair{}, false, fmt.Errorf("%w: %s missing", ErrKeyStore, publicKeyFile)
	case privRaw == nil:
		return domain.KeyPair{}, false, fmt.Errorf("%w: %s missing", ErrKeyStore, privateKeyFile)
	}

	pub, err := crypto.ParsePublicKey(pubRaw)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("%w: %s: %v", ErrKeyStore, publicKeyFile, err)
	}
	priv, err := s.decodePrivate(privRaw)
	if err != nil {
		return domain.KeyPair{}, false, fmt.Errorf("%w: %s: %v", ErrKeyStore, privateKeyFile, err)
	}
	if !crypto.SamePublicKey(pub, &priv.PublicKey) {
		return domain.KeyPair{}, false, fmt.Errorf("%w: public and private key do not match", ErrKeyStore)
	}
	return domain.KeyPair{Public: pub, Private: priv}, true, nil
}

// SaveKeyPair writes both halves atomically, creating dir if needed.
func (s *KeyFileStore) SaveKeyPair(kp domain.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kp.Public == nil || kp.Private == nil {
		return errors.New("incomplete keypair")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	pubPEM, err := crypto.MarshalPublicKey(kp.Public)
	if err != nil {
		return err
	}
	privPEM, err := s.encodePrivate(kp)
	if err != nil {
		return err
	}

	// Private half first; a torn save loads as a partial store.
	if err := replaceFile(filepath.Join(s.dir, privateKeyFile), privPEM, 0o600); err != nil {
		return err
	}
	return replaceFile(filepath.Join(s.dir, publicKeyFile), pubPEM, 0o644)
}

func (s *KeyFileStore) encodePrivate(kp domain.KeyPair) ([]byte, error) {
	plain, err := crypto.MarshalPrivateKey(kp.Private)
	if err != nil {
		return nil, err
	}
	if len(s.passphrase) == 0 {
		return plain, nil
	}
	sealed, err := seal(s.passphrase, plain, s.KDF)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemSealedPrivateKey, Bytes: sealed}), nil
}

func (s *KeyFileStore) decodePrivate(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != pemSealedPrivateKey {
		return crypto.ParsePrivateKey(raw)
	}
	if len(s.passphrase) == 0 {
		return nil, errors.New("private key is sealed and no passphrase was given")
	}
	plain, err := unseal(s.passphrase, block.Bytes)
	if err != nil {
		return nil, err
	}
	return crypto.ParsePrivateKey(plain)
}

// Compile-time assertion that KeyFileStore implements domain.KeyStore.
var _ domain.KeyStore = (*KeyFileStore)(nil)
