package domain

import (
	interfaces "relaychat/internal/domain/interfaces"
	types "relaychat/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username             = types.Username
	Fingerprint          = types.Fingerprint
	SessionID            = types.SessionID
	SessionState         = types.SessionState
	Session              = types.Session
	OnlineUser           = types.OnlineUser
	Account              = types.Account
	KeyPair              = types.KeyPair
	Frame                = types.Frame
	AuthenticatedPayload = types.AuthenticatedPayload
	Credentials          = types.Credentials
	AuthResult           = types.AuthResult
	OnlineUsersResult    = types.OnlineUsersResult
	UserPublicKeyRequest = types.UserPublicKeyRequest
	UserPublicKeyResult  = types.UserPublicKeyResult
	RelayRequest         = types.RelayRequest
	RelayResult          = types.RelayResult
	LoadMessage          = types.LoadMessage
	ErrorType            = types.ErrorType
	ErrorPayload         = types.ErrorPayload
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	KeyStore        = interfaces.KeyStore
	CredentialStore = interfaces.CredentialStore
	KeyService      = interfaces.KeyService
	PasswordHasher  = interfaces.PasswordHasher
	FrameSender     = interfaces.FrameSender
	Notifier        = interfaces.Notifier
)

// Session lifecycle states.
const (
	StateConnected     = types.StateConnected
	StateKeyExchanged  = types.StateKeyExchanged
	StateAuthenticated = types.StateAuthenticated
)

// Event names.
const (
	EventConnect       = types.EventConnect
	EventDisconnect    = types.EventDisconnect
	EventSendPublicKey = types.EventSendPublicKey
	EventSendMAC       = types.EventSendMAC
	EventLogin         = types.EventLogin
	EventRegister      = types.EventRegister
	EventLogout        = types.EventLogout
	EventOnlineUsers   = types.EventOnlineUsers
	EventUserPublicKey = types.EventUserPublicKey
	EventMessage       = types.EventMessage
	EventMessageResult = types.EventMessageResult
	EventLoadMessage   = types.EventLoadMessage
	EventError         = types.EventError
)

// Error event types.
const (
	ErrAuthenticationInvalid = types.ErrAuthenticationInvalid
	ErrMACMissing            = types.ErrMACMissing
	ErrMACInvalid            = types.ErrMACInvalid
	ErrInternal              = types.ErrInternal
	ErrKeyFormat             = types.ErrKeyFormat
	ErrDecryption            = types.ErrDecryption
)
