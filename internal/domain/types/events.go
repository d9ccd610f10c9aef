package types

import "encoding/json"

// Event names carried in Frame.Event. Inbound and outbound events share the
// same namespace; replies reuse the request name except where noted.
const (
	EventConnect       = "connect"
	EventDisconnect    = "disconnect"
	EventSendPublicKey = "sendPublicKey"
	EventSendMAC       = "sendMac"
	EventLogin         = "login"
	EventRegister      = "register"
	EventLogout        = "logout"
	EventOnlineUsers   = "onlineUsers"
	EventUserPublicKey = "userPublicKey"
	EventMessage       = "message"
	EventMessageResult = "messageResult"
	EventLoadMessage   = "loadMessage"
	EventError         = "error"
)

// Frame is one event on the transport: a name plus an opaque JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthenticatedPayload is the plaintext inside every MAC-protected envelope.
// MAC is a pointer so that an absent field can be told apart from an empty
// one.
type AuthenticatedPayload struct {
	MAC  *string         `json:"mac"`
	Data json.RawMessage `json:"data"`
}
