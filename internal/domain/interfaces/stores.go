package interfaces

import (
	"context"

	domaintypes "relaychat/internal/domain/types"
)

// KeyStore persists a keypair. LoadKeyPair reports ok=false when nothing has
// been stored yet.
type KeyStore interface {
	LoadKeyPair() (domaintypes.KeyPair, bool, error)
	SaveKeyPair(kp domaintypes.KeyPair) error
}

// CredentialStore holds registered accounts.
//
// Insert fails with domain.ErrUsernameTaken when the username exists; the
// check and the write happen in one transaction.
type CredentialStore interface {
	Lookup(
		ctx context.Context,
		username domaintypes.Username,
		digest []byte,
	) (domaintypes.Account, bool, error)
	Exists(ctx context.Context, username domaintypes.Username) (bool, error)
	Insert(ctx context.Context, username domaintypes.Username, digest []byte) error
	Close() error
}
