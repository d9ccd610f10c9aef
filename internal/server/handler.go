package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"relaychat/internal/domain"
	"relaychat/internal/metrics"
	"relaychat/internal/protocol/envelope"
	"relaychat/internal/services/account"
	"relaychat/internal/services/message"
	"relaychat/internal/services/session"
)

type handlerFunc func(h *Handler, ctx context.Context, req *Request) error

type route struct {
	gates  []Gate
	handle handlerFunc
}

// eventUnknown is the metrics label for event names without a route.
const eventUnknown = "unknown"

var routes = map[string]route{
	domain.EventSendPublicKey: {gates: []Gate{unauthGate}, handle: (*Handler).handleSendPublicKey},
	domain.EventLogin:         {gates: []Gate{macGate}, handle: (*Handler).handleLogin},
	domain.EventRegister:      {gates: []Gate{macGate}, handle: (*Handler).handleRegister},
	domain.EventLogout:        {gates: []Gate{macGate, authGate}, handle: (*Handler).handleLogout},
	domain.EventOnlineUsers:   {gates: []Gate{macGate, authGate}, handle: (*Handler).handleOnlineUsers},
	domain.EventUserPublicKey: {gates: []Gate{macGate, authGate}, handle: (*Handler).handleUserPublicKey},
	domain.EventMessage:       {gates: []Gate{macGate, authGate}, handle: (*Handler).handleMessage},
}

// Config holds the Handler's collaborators.
type Config struct {
	Keys       domain.KeyPair
	KeyService domain.KeyService
	Sessions   *session.Registry
	Accounts   *account.Service
	Sender     domain.FrameSender
	Codec      *envelope.Codec
	Metrics    *metrics.Metrics
	Log        *logrus.Logger
}

// Handler runs the protocol state machine for every session.
type Handler struct {
	keys      domain.KeyPair
	publicPEM []byte
	keysvc    domain.KeyService
	sessions  *session.Registry
	accounts  *account.Service
	router    *message.Service
	sender    domain.FrameSender
	codec     *envelope.Codec
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

// NewHandler builds a Handler. The server's public key is exported once
// here; a nil Codec means the default envelope settings.
func NewHandler(cfg Config) (*Handler, error) {
	pemBytes, err := cfg.KeyService.ExportPublicKey(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("export server key: %w", err)
	}
	codec := cfg.Codec
	if codec == nil {
		codec = envelope.New(0)
	}
	logger := cfg.Log
	if logger == nil {
		logger = logrus.New()
	}

	h := &Handler{
		keys:      cfg.Keys,
		publicPEM: pemBytes,
		keysvc:    cfg.KeyService,
		sessions:  cfg.Sessions,
		accounts:  cfg.Accounts,
		sender:    cfg.Sender,
		codec:     codec,
		metrics:   cfg.Metrics,
		log:       logger.WithField("component", "handler"),
	}
	h.router = message.New(cfg.Sessions, h)
	return h, nil
}

// Connect registers a new session and greets it with the server's public
// key in plain text.
func (h *Handler) Connect(ctx context.Context, id domain.SessionID) error {
	h.metrics.Event(domain.EventConnect)
	if err := h.sessions.Create(id); err != nil {
		h.log.WithError(err).WithField("session", id).Warn("Connect rejected")
		return err
	}
	h.log.WithField("session", id).Debug("Session connected")
	return h.sendPlain(ctx, id, domain.EventSendPublicKey, string(h.publicPEM))
}

// Disconnect forgets the session. In-flight relays to it report the target
// as not found.
func (h *Handler) Disconnect(_ context.Context, id domain.SessionID) {
	h.metrics.Event(domain.EventDisconnect)
	s, _ := h.sessions.Get(id)
	if err := h.sessions.Remove(id); err != nil {
		h.log.WithError(err).WithField("session", id).Debug("Disconnect for unknown session")
		return
	}
	h.log.WithFields(logrus.Fields{"session": id, "username": s.Username}).Debug("Session disconnected")
}

// Dispatch runs one inbound event through its gates and handler. Failures
// are reported to the session; nothing is returned because no failure of a
// single event ends the session.
func (h *Handler) Dispatch(ctx context.Context, id domain.SessionID, frame domain.Frame) {
	rt, known := routes[frame.Event]
	if known {
		h.metrics.Event(frame.Event)
	} else {
		h.metrics.Event(eventUnknown)
	}

	s, err := h.sessions.Get(id)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"session": id, "event": frame.Event}).Debug("Event for unknown session dropped")
		return
	}
	log := h.log.WithFields(logrus.Fields{"session": id, "event": frame.Event, "username": s.Username})

	defer func() {
		if r := recover(); r != nil {
			h.metrics.InternalError()
			log.WithField("panic", r).Errorf("Handler panicked\n%s", debug.Stack())
			h.sendError(ctx, id, domain.ErrInternal, fmt.Sprint(r))
		}
	}()

	if !known {
		log.Debug("Unknown event")
		h.metrics.InternalError()
		h.sendError(ctx, id, domain.ErrInternal, "unknown event")
		return
	}

	req := &Request{Session: s, Event: frame.Event, Data: frame.Data}
	for _, gate := range rt.gates {
		if gerr := gate(h, req); gerr != nil {
			log.WithField("type", gerr.Type).Debug(gerr.Message)
			h.metrics.GateFailure(string(gerr.Type))
			h.sendError(ctx, id, gerr.Type, gerr.Message)
			return
		}
	}

	if err := rt.handle(h, ctx, req); err != nil {
		var gerr *GateError
		if errors.As(err, &gerr) {
			log.WithField("type", gerr.Type).Debug(gerr.Message)
			h.metrics.GateFailure(string(gerr.Type))
			h.sendError(ctx, id, gerr.Type, gerr.Message)
			return
		}
		h.metrics.InternalError()
		log.WithError(err).Error("Handler failed")
		h.sendError(ctx, id, domain.ErrInternal, err.Error())
	}
}

// Malformed reports an inbound frame that could not be parsed at all.
func (h *Handler) Malformed(ctx context.Context, id domain.SessionID, err error) {
	h.metrics.Event(eventUnknown)
	h.metrics.InternalError()
	h.log.WithError(err).WithField("session", id).Debug("Malformed frame")
	h.sendError(ctx, id, domain.ErrInternal, "malformed frame: "+err.Error())
}

// Notify seals v for the session's client key and sends it as event.
// A session that is gone yields domain.ErrSessionGone.
func (h *Handler) Notify(ctx context.Context, id domain.SessionID, event string, v any) error {
	pub, err := h.sessions.PublicKey(id)
	if errors.Is(err, session.ErrUnknownSession) {
		return fmt.Errorf("%w: %v", domain.ErrSessionGone, err)
	}
	if err != nil {
		return err
	}
	if pub == nil {
		return fmt.Errorf("session %s has no client key", id)
	}
	env, err := h.codec.Seal(pub, v)
	if err != nil {
		return fmt.Errorf("seal %s: %w", event, err)
	}
	return h.sendJSON(ctx, id, event, env)
}

func (h *Handler) sendPlain(ctx context.Context, id domain.SessionID, event string, v any) error {
	return h.sendJSON(ctx, id, event, v)
}

func (h *Handler) sendJSON(ctx context.Context, id domain.SessionID, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.sender.SendFrame(ctx, id, domain.Frame{Event: event, Data: data})
}

// sendError reports a failure to the session, sealed when a client key is
// known. Delivery failures are only logged.
func (h *Handler) sendError(ctx context.Context, id domain.SessionID, typ domain.ErrorType, msg string) {
	payload := domain.ErrorPayload{Type: typ, Message: msg}

	var err error
	if pub, _ := h.sessions.PublicKey(id); pub != nil {
		err = h.Notify(ctx, id, domain.EventError, payload)
	} else {
		err = h.sendPlain(ctx, id, domain.EventError, payload)
	}
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"session": id, "type": typ}).Debug("Error event not delivered")
	}
}

// decode unmarshals a command payload, reporting failures as InternalError.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
