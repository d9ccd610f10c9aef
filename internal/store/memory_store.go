package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"relaychat/internal/domain"
)

// MemoryAccountStore keeps accounts in process memory. Accounts vanish on
// restart; it backs tests and throwaway relays.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[domain.Username]domain.Account
}

// NewMemoryAccountStore returns an empty MemoryAccountStore.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[domain.Username]domain.Account)}
}

func (s *MemoryAccountStore) Lookup(
	_ context.Context,
	username domain.Username,
	digest []byte,
) (domain.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[username]
	if !ok || subtle.ConstantTimeCompare(acct.Digest, digest) != 1 {
		return domain.Account{}, false, nil
	}
	return acct, true, nil
}

func (s *MemoryAccountStore) Exists(_ context.Context, username domain.Username) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.accounts[username]
	return ok, nil
}

func (s *MemoryAccountStore) Insert(_ context.Context, username domain.Username, digest []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; ok {
		return domain.ErrUsernameTaken
	}
	s.accounts[username] = domain.Account{
		Username: username,
		Digest:   append([]byte(nil), digest...),
		Created:  time.Now().UTC(),
	}
	return nil
}

func (s *MemoryAccountStore) Close() error { return nil }

var _ domain.CredentialStore = (*MemoryAccountStore)(nil)
