package types

import "crypto/rsa"

// SessionState is the position of a session in the handshake lifecycle.
type SessionState int

const (
	// StateConnected means the transport is up but no client key is known.
	StateConnected SessionState = iota
	// StateKeyExchanged means the client key is stored and a MAC was issued.
	StateKeyExchanged
	// StateAuthenticated means a username is bound to the session.
	StateAuthenticated
)

// String returns a lower-case label for logs and metrics.
func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateKeyExchanged:
		return "key_exchanged"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is a snapshot of per-connection state owned by the session
// registry. Values returned by the registry are copies; mutating them has no
// effect on the registry.
type Session struct {
	ID            SessionID
	ClientKey     *rsa.PublicKey
	MAC           string
	Authenticated bool
	Username      Username
}

// State derives the lifecycle state from the stored fields.
func (s Session) State() SessionState {
	switch {
	case s.Authenticated:
		return StateAuthenticated
	case s.ClientKey != nil && s.MAC != "":
		return StateKeyExchanged
	default:
		return StateConnected
	}
}

// OnlineUser is one entry of the presence list.
type OnlineUser struct {
	Username Username  `json:"username"`
	ID       SessionID `json:"id"`
}
