package interfaces

import (
	"context"
	"crypto/rsa"

	domaintypes "relaychat/internal/domain/types"
)

// KeyService owns a long-lived keypair and the public key wire format.
type KeyService interface {
	GetOrCreateKeyPair(ctx context.Context) (domaintypes.KeyPair, error)
	ExportPublicKey(kp domaintypes.KeyPair) ([]byte, error)
	ImportPublicKey(raw []byte) (*rsa.PublicKey, error)
}

// PasswordHasher computes the one-way digest stored for an account. The
// digest must be deterministic for a given (username, password).
type PasswordHasher interface {
	Digest(username domaintypes.Username, password []byte) []byte
}

// FrameSender writes one frame to the connection behind a session.
type FrameSender interface {
	SendFrame(ctx context.Context, id domaintypes.SessionID, frame domaintypes.Frame) error
}

// Notifier delivers an event to a session, sealed for that session's key.
type Notifier interface {
	Notify(ctx context.Context, id domaintypes.SessionID, event string, v any) error
}
