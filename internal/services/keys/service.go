package keys

import (
	"context"
	"crypto/rsa"
	"fmt"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
)

// DefaultBits is the modulus size of generated keys.
const DefaultBits = 4096

// Service loads or creates a keypair through a KeyStore.
type Service struct {
	store domain.KeyStore
	bits  int
}

// New returns a key service generating bits-sized keys (DefaultBits if <= 0).
func New(store domain.KeyStore, bits int) *Service {
	if bits <= 0 {
		bits = DefaultBits
	}
	return &Service{store: store, bits: bits}
}

// GetOrCreateKeyPair loads the stored keypair, generating and persisting one
// when nothing is stored yet. Store errors are returned unchanged so callers
// can match store.ErrKeyStore.
func (s *Service) GetOrCreateKeyPair(ctx context.Context) (domain.KeyPair, error) {
	kp, ok, err := s.store.LoadKeyPair()
	if err != nil {
		return domain.KeyPair{}, err
	}
	if ok {
		return kp, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.KeyPair{}, err
	}

	kp, err = crypto.GenerateRSA(s.bits)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generate keypair: %w", err)
	}
	if err := s.store.SaveKeyPair(kp); err != nil {
		return domain.KeyPair{}, fmt.Errorf("save keypair: %w", err)
	}
	return kp, nil
}

// ExportPublicKey returns the PEM form sent to peers.
func (s *Service) ExportPublicKey(kp domain.KeyPair) ([]byte, error) {
	return crypto.MarshalPublicKey(kp.Public)
}

// ImportPublicKey parses a peer's public key; failures wrap crypto.ErrKeyFormat.
func (s *Service) ImportPublicKey(raw []byte) (*rsa.PublicKey, error) {
	return crypto.ParsePublicKey(raw)
}

// Fingerprint returns the short fingerprint of the keypair's public half.
func (s *Service) Fingerprint(kp domain.KeyPair) (domain.Fingerprint, error) {
	return crypto.PublicKeyFingerprint(kp.Public)
}

// Compile-time assertion that Service implements domain.KeyService.
var _ domain.KeyService = (*Service)(nil)
