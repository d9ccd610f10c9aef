package server

import (
	"encoding/json"
	"fmt"

	"relaychat/internal/domain"
	"relaychat/internal/protocol/mac"
)

// GateError is an expected protocol failure reported to the client as an
// error event.
type GateError struct {
	Type    domain.ErrorType
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Request is an inbound event as seen by gates and handlers. Session is a
// snapshot taken when dispatch began.
type Request struct {
	Session domain.Session
	Event   string
	Data    json.RawMessage
}

// Gate checks a request before its handler runs. A nil result passes.
type Gate func(h *Handler, req *Request) *GateError

// macGate opens the envelope in req.Data and checks the challenge inside it.
// On success req.Data is replaced by the inner command payload.
func macGate(h *Handler, req *Request) *GateError {
	if req.Session.MAC == "" || req.Session.ClientKey == nil {
		return &GateError{Type: domain.ErrMACInvalid, Message: "no challenge issued"}
	}

	var payload domain.AuthenticatedPayload
	if err := h.codec.Open(h.keys.Private, req.Data, &payload); err != nil {
		return &GateError{Type: domain.ErrDecryption, Message: err.Error()}
	}
	if payload.MAC == nil {
		return &GateError{Type: domain.ErrMACMissing, Message: "MAC missing"}
	}
	if !mac.Verify(mac.Token(req.Session.MAC), *payload.MAC) {
		return &GateError{Type: domain.ErrMACInvalid, Message: "MAC invalid"}
	}

	req.Data = payload.Data
	return nil
}

// authGate requires a logged-in session.
func authGate(_ *Handler, req *Request) *GateError {
	if !req.Session.Authenticated {
		return &GateError{Type: domain.ErrAuthenticationInvalid, Message: "Not authenticated"}
	}
	return nil
}

// unauthGate rejects key exchange on a logged-in session.
func unauthGate(_ *Handler, req *Request) *GateError {
	if req.Session.Authenticated {
		return &GateError{Type: domain.ErrAuthenticationInvalid, Message: "Already authenticated"}
	}
	return nil
}
