package types

import "encoding/json"

// Credentials is the body of login and register requests.
type Credentials struct {
	Username Username `json:"username"`
	Password string   `json:"password"`
}

// AuthResult answers login, register and logout.
type AuthResult struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Username Username `json:"username,omitempty"`
}

// OnlineUsersResult answers onlineUsers.
type OnlineUsersResult struct {
	Users []OnlineUser `json:"users"`
}

// UserPublicKeyRequest asks for another user's public key.
type UserPublicKeyRequest struct {
	Username Username `json:"username"`
}

// UserPublicKeyResult answers userPublicKey. PublicKey is PEM text.
type UserPublicKeyResult struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	PublicKey string      `json:"publicKey,omitempty"`
	UserData  *OnlineUser `json:"userData,omitempty"`
}

// RelayRequest is the body of a message event. Message is opaque to the
// relay: it was encrypted for the target by the sender.
type RelayRequest struct {
	Message  json.RawMessage `json:"message"`
	Username Username        `json:"username"`
	ID       string          `json:"id,omitempty"`
}

// RelayResult answers a message event to the sender.
type RelayResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// LoadMessage delivers a relayed payload to its target.
type LoadMessage struct {
	Message json.RawMessage `json:"message"`
	From    Username        `json:"from"`
}
