package types

// Username represents a relay-registered identity.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// SessionID identifies one live transport connection. It is assigned by the
// transport and never reused while the connection is open.
type SessionID string

// String returns the string form of the session identifier.
func (id SessionID) String() string { return string(id) }
