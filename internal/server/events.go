package server

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"relaychat/internal/domain"
	"relaychat/internal/protocol/mac"
	"relaychat/internal/services/account"
	"relaychat/internal/services/session"
)

// Reply texts.
const (
	msgLoggedIn           = "Logged in"
	msgLoggedOut          = "Logged out"
	msgRegistered         = "Registered"
	msgInvalidCredentials = "Invalid username or password"
	msgAlreadyOnline      = "User is already online"
	msgUsernameTaken      = "Username is taken"
	msgUsernameInvalid    = "Username is invalid"
	msgPasswordInvalid    = "Password is invalid"
	msgUserNotFound       = "User not found"
)

// handleSendPublicKey stores the client's key and issues a fresh challenge
// encrypted to it. Presenting a new key before login restarts the exchange.
func (h *Handler) handleSendPublicKey(ctx context.Context, req *Request) error {
	var raw string
	if err := decode(req.Data, &raw); err != nil {
		return &GateError{Type: domain.ErrKeyFormat, Message: "public key must be a PEM string"}
	}
	pub, err := h.keysvc.ImportPublicKey([]byte(raw))
	if err != nil {
		return &GateError{Type: domain.ErrKeyFormat, Message: err.Error()}
	}

	token, err := mac.Issue()
	if err != nil {
		return err
	}
	env, err := h.codec.Encode(pub, []byte(token))
	if err != nil {
		return &GateError{Type: domain.ErrKeyFormat, Message: err.Error()}
	}

	id := req.Session.ID
	if err := h.sessions.SetPublicKey(id, pub); err != nil {
		return err
	}
	if err := h.sessions.SetMAC(id, string(token)); err != nil {
		return err
	}
	h.log.WithField("session", id).Debug("Key exchanged")
	return h.sendJSON(ctx, id, domain.EventSendMAC, env)
}

func (h *Handler) handleLogin(ctx context.Context, req *Request) error {
	var creds domain.Credentials
	if err := decode(req.Data, &creds); err != nil {
		return err
	}
	id := req.Session.ID
	reply := func(r domain.AuthResult) error { return h.Notify(ctx, id, domain.EventLogin, r) }

	name, err := h.accounts.Login(ctx, creds.Username.String(), []byte(creds.Password))
	if errors.Is(err, account.ErrInvalidCredentials) {
		h.log.WithFields(logrus.Fields{"session": id, "username": creds.Username}).Info("Login failed")
		return reply(domain.AuthResult{Success: false, Message: msgInvalidCredentials})
	}
	if err != nil {
		return err
	}

	if err := h.sessions.Authenticate(id, name); err != nil {
		if errors.Is(err, session.ErrUsernameAlreadyOnline) {
			h.log.WithFields(logrus.Fields{"session": id, "username": name}).Info("Login refused, user already online")
			return reply(domain.AuthResult{Success: false, Message: msgAlreadyOnline})
		}
		return err
	}
	h.log.WithFields(logrus.Fields{"session": id, "username": name}).Info("Logged in")
	return reply(domain.AuthResult{Success: true, Message: msgLoggedIn, Username: name})
}

func (h *Handler) handleRegister(ctx context.Context, req *Request) error {
	var creds domain.Credentials
	if err := decode(req.Data, &creds); err != nil {
		return err
	}
	id := req.Session.ID
	reply := func(r domain.AuthResult) error { return h.Notify(ctx, id, domain.EventRegister, r) }

	name, err := h.accounts.Register(ctx, creds.Username.String(), []byte(creds.Password))
	switch {
	case errors.Is(err, account.ErrInvalidUsername):
		return reply(domain.AuthResult{Success: false, Message: msgUsernameInvalid})
	case errors.Is(err, account.ErrInvalidPassword):
		return reply(domain.AuthResult{Success: false, Message: msgPasswordInvalid})
	case errors.Is(err, domain.ErrUsernameTaken):
		h.log.WithFields(logrus.Fields{"session": id, "username": creds.Username}).Info("Registration refused, username taken")
		return reply(domain.AuthResult{Success: false, Message: msgUsernameTaken})
	case err != nil:
		return err
	}

	if err := h.sessions.Authenticate(id, name); err != nil {
		if errors.Is(err, session.ErrUsernameAlreadyOnline) {
			return reply(domain.AuthResult{Success: false, Message: msgAlreadyOnline})
		}
		return err
	}
	h.log.WithFields(logrus.Fields{"session": id, "username": name}).Info("Registered")
	return reply(domain.AuthResult{Success: true, Message: msgRegistered, Username: name})
}

func (h *Handler) handleLogout(ctx context.Context, req *Request) error {
	id := req.Session.ID
	if err := h.sessions.Deauthenticate(id); err != nil {
		return err
	}
	h.log.WithFields(logrus.Fields{"session": id, "username": req.Session.Username}).Info("Logged out")
	return h.Notify(ctx, id, domain.EventLogout, domain.AuthResult{Success: true, Message: msgLoggedOut})
}

func (h *Handler) handleOnlineUsers(ctx context.Context, req *Request) error {
	users := h.sessions.ListOnline(req.Session.ID)
	return h.Notify(ctx, req.Session.ID, domain.EventOnlineUsers, domain.OnlineUsersResult{Users: users})
}

func (h *Handler) handleUserPublicKey(ctx context.Context, req *Request) error {
	var q domain.UserPublicKeyRequest
	if err := decode(req.Data, &q); err != nil {
		return err
	}
	id := req.Session.ID

	peer, ok := h.findOnline(q.Username)
	if !ok || peer.ClientKey == nil {
		return h.Notify(ctx, id, domain.EventUserPublicKey, domain.UserPublicKeyResult{
			Success: false,
			Message: msgUserNotFound,
		})
	}
	pemBytes, err := h.keysvc.ExportPublicKey(domain.KeyPair{Public: peer.ClientKey})
	if err != nil {
		return err
	}
	return h.Notify(ctx, id, domain.EventUserPublicKey, domain.UserPublicKeyResult{
		Success:   true,
		PublicKey: string(pemBytes),
		UserData:  &domain.OnlineUser{Username: peer.Username, ID: peer.ID},
	})
}

func (h *Handler) handleMessage(ctx context.Context, req *Request) error {
	var msg domain.RelayRequest
	if err := decode(req.Data, &msg); err != nil {
		return err
	}
	res := domain.RelayResult{Success: false, Message: msgUserNotFound, ID: msg.ID}
	if target, nerr := account.NormalizeUsername(msg.Username.String()); nerr == nil {
		var err error
		if res, err = h.router.Relay(ctx, req.Session.Username, target, msg.Message, msg.ID); err != nil {
			return err
		}
	}
	h.metrics.Relayed(res.Success)
	h.log.WithFields(logrus.Fields{
		"session":  req.Session.ID,
		"username": req.Session.Username,
		"target":   msg.Username,
		"success":  res.Success,
	}).Debug("Message relayed")
	return h.Notify(ctx, req.Session.ID, domain.EventMessageResult, res)
}

// findOnline resolves a client-supplied username the same way login and
// register do before looking it up. Names outside the username profile are
// never online.
func (h *Handler) findOnline(raw domain.Username) (domain.Session, bool) {
	name, err := account.NormalizeUsername(raw.String())
	if err != nil {
		return domain.Session{}, false
	}
	return h.sessions.FindByUsername(name)
}
