package types

// ErrorType classifies error events sent to clients.
type ErrorType string

const (
	ErrAuthenticationInvalid ErrorType = "AuthenticationInvalid"
	ErrMACMissing            ErrorType = "MACMissing"
	ErrMACInvalid            ErrorType = "MACInvalid"
	ErrInternal              ErrorType = "InternalError"
	ErrKeyFormat             ErrorType = "KeyFormatError"
	ErrDecryption            ErrorType = "DecryptionError"
)

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}
