package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
)

func TestHandshake(t *testing.T) {
	hs := newHarness(t)
	c := hs.connect("a", 1).handshake()

	s, err := hs.reg.Get("a")
	require.NoError(t, err)
	require.Equal(t, domain.StateKeyExchanged, s.State())
	require.Equal(t, c.mac, s.MAC)
}

func TestHandshake_BadKey(t *testing.T) {
	hs := newHarness(t)
	c := hs.connect("a", 1)

	c.sendRaw(domain.EventSendPublicKey, mustJSON(t, "not a key"))
	// No client key yet, so the error arrives in plain text.
	f := c.nextFrame()
	require.Equal(t, domain.EventError, f.Event)
	var e domain.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &e))
	require.Equal(t, domain.ErrKeyFormat, e.Type)

	c.sendRaw(domain.EventSendPublicKey, json.RawMessage(`{"key":1}`))
	c.expectError(domain.ErrKeyFormat)

	s, err := hs.reg.Get("a")
	require.NoError(t, err)
	require.Equal(t, domain.StateConnected, s.State())
}

func TestRekeyBeforeLoginIssuesNewMAC(t *testing.T) {
	hs := newHarness(t)
	c := hs.connect("a", 1).handshake()
	first := c.mac
	c.handshake()
	require.NotEqual(t, first, c.mac)

	stale := first
	c.sendWithMAC(domain.EventLogin, &stale, domain.Credentials{Username: "x", Password: "y"})
	c.expectError(domain.ErrMACInvalid)
}

func TestMACGate(t *testing.T) {
	hs := newHarness(t)

	t.Run("no challenge issued", func(t *testing.T) {
		c := hs.connect("fresh", 1)
		c.sendRaw(domain.EventLogin, json.RawMessage(`["AAAA"]`))
		e := c.expectError(domain.ErrMACInvalid)
		require.Equal(t, "no challenge issued", e.Message)
	})

	c := hs.connect("a", 1).handshake()

	t.Run("missing", func(t *testing.T) {
		c.sendWithMAC(domain.EventLogin, nil, domain.Credentials{Username: "x", Password: "y"})
		c.expectError(domain.ErrMACMissing)
	})

	t.Run("wrong", func(t *testing.T) {
		wrong := "00000000000000000000000000000000"
		c.sendWithMAC(domain.EventLogin, &wrong, domain.Credentials{Username: "x", Password: "y"})
		c.expectError(domain.ErrMACInvalid)
	})

	t.Run("undecryptable", func(t *testing.T) {
		c.sendRaw(domain.EventLogin, json.RawMessage(`["AAAA"]`))
		c.expectError(domain.ErrDecryption)
		c.sendRaw(domain.EventLogin, json.RawMessage(`"plain"`))
		c.expectError(domain.ErrDecryption)
	})

	t.Run("plaintext not an object", func(t *testing.T) {
		env, err := hs.codec.Encode(hs.server.Public, []byte(`"just a string"`))
		require.NoError(t, err)
		c.sendRaw(domain.EventLogin, mustJSON(t, env))
		c.expectError(domain.ErrDecryption)
	})

	t.Run("right", func(t *testing.T) {
		res := c.login("nobody", "pw")
		require.False(t, res.Success)
		require.Equal(t, "Invalid username or password", res.Message)
	})
}

func TestAuthGate(t *testing.T) {
	hs := newHarness(t)
	c := hs.connect("a", 1).handshake()

	for _, ev := range []string{domain.EventOnlineUsers, domain.EventUserPublicKey, domain.EventMessage, domain.EventLogout} {
		c.send(ev, map[string]string{"username": "bob"})
		c.expectError(domain.ErrAuthenticationInvalid)
	}
	c.expectNothing()
}

func TestRegisterAndLogin(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()

	res := a.register("alice", "pw")
	require.Equal(t, domain.AuthResult{Success: true, Message: "Registered", Username: "alice"}, res)

	var logout domain.AuthResult
	a.send(domain.EventLogout, nil)
	require.Equal(t, domain.EventLogout, a.recv(&logout))
	require.True(t, logout.Success)

	a.send(domain.EventOnlineUsers, nil)
	a.expectError(domain.ErrAuthenticationInvalid)

	require.False(t, a.login("alice", "wrong").Success)
	res = a.login("alice", "pw")
	require.Equal(t, domain.AuthResult{Success: true, Message: "Logged in", Username: "alice"}, res)
}

func TestRegistrationUniqueness(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()

	require.True(t, a.register("alice", "pw").Success)
	res := b.register("alice", "other")
	require.Equal(t, domain.AuthResult{Success: false, Message: "Username is taken"}, res)

	res = b.register("has space", "pw")
	require.Equal(t, "Username is invalid", res.Message)

	s, err := hs.reg.Get("b")
	require.NoError(t, err)
	require.False(t, s.Authenticated)
}

func TestLoginUniqueness(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()

	require.True(t, a.register("alice", "pw").Success)
	res := b.login("alice", "pw")
	require.Equal(t, domain.AuthResult{Success: false, Message: "User is already online"}, res)

	hs.h.Disconnect(context.Background(), "a")
	require.True(t, b.login("alice", "pw").Success)
}

func TestPresenceExcludesSelf(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	hs.connect("c", 3).handshake() // never logs in

	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	var online domain.OnlineUsersResult
	a.send(domain.EventOnlineUsers, nil)
	require.Equal(t, domain.EventOnlineUsers, a.recv(&online))
	require.Equal(t, []domain.OnlineUser{{Username: "bob", ID: "b"}}, online.Users)
}

func TestUserPublicKey(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	var res domain.UserPublicKeyResult
	a.send(domain.EventUserPublicKey, domain.UserPublicKeyRequest{Username: "bob"})
	require.Equal(t, domain.EventUserPublicKey, a.recv(&res))
	require.True(t, res.Success)
	require.Equal(t, &domain.OnlineUser{Username: "bob", ID: "b"}, res.UserData)
	pub, err := crypto.ParsePublicKey([]byte(res.PublicKey))
	require.NoError(t, err)
	require.True(t, pub.Equal(&b.key.PublicKey))

	res = domain.UserPublicKeyResult{}
	a.send(domain.EventUserPublicKey, domain.UserPublicKeyRequest{Username: "nobody"})
	a.recv(&res)
	require.Equal(t, domain.UserPublicKeyResult{Success: false, Message: "User not found"}, res)
}

func TestRelay(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	payload := json.RawMessage(`["ZW5kLXRvLWVuZA=="]`)
	a.send(domain.EventMessage, domain.RelayRequest{Message: payload, Username: "bob", ID: "m1"})

	var result domain.RelayResult
	require.Equal(t, domain.EventMessageResult, a.recv(&result))
	require.Equal(t, domain.RelayResult{Success: true, Message: "Message sent", ID: "m1"}, result)

	var load domain.LoadMessage
	require.Equal(t, domain.EventLoadMessage, b.recv(&load))
	require.Equal(t, domain.Username("alice"), load.From)
	require.JSONEq(t, string(payload), string(load.Message))
}

func TestRelayToUnknownUser(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	a.send(domain.EventMessage, domain.RelayRequest{Message: json.RawMessage(`["x"]`), Username: "ghost", ID: "m9"})
	var result domain.RelayResult
	a.recv(&result)
	require.Equal(t, domain.RelayResult{Success: false, Message: "User not found", ID: "m9"}, result)

	a.expectNothing()
	b.expectNothing()
}

func TestTargetUsernameIsNormalised(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	res := b.register("\uff42\uff4f\uff42", "pw") // fullwidth "bob"
	require.True(t, res.Success)
	require.Equal(t, domain.Username("bob"), res.Username)

	var key domain.UserPublicKeyResult
	a.send(domain.EventUserPublicKey, domain.UserPublicKeyRequest{Username: "\uff42\uff4f\uff42"})
	require.Equal(t, domain.EventUserPublicKey, a.recv(&key))
	require.True(t, key.Success, key.Message)
	require.Equal(t, domain.Username("bob"), key.UserData.Username)

	a.send(domain.EventMessage, domain.RelayRequest{Message: json.RawMessage(`["x"]`), Username: "\uff42\uff4f\uff42", ID: "m2"})
	var result domain.RelayResult
	require.Equal(t, domain.EventMessageResult, a.recv(&result))
	require.True(t, result.Success, result.Message)
	var load domain.LoadMessage
	require.Equal(t, domain.EventLoadMessage, b.recv(&load))
	require.Equal(t, domain.Username("alice"), load.From)
}

func TestInvalidTargetUsernameIsNotFound(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	require.True(t, a.register("alice", "pw").Success)

	var key domain.UserPublicKeyResult
	a.send(domain.EventUserPublicKey, domain.UserPublicKeyRequest{Username: "has space"})
	a.recv(&key)
	require.False(t, key.Success)
	require.Equal(t, "User not found", key.Message)

	a.send(domain.EventMessage, domain.RelayRequest{Message: json.RawMessage(`["x"]`), Username: "", ID: "m3"})
	var result domain.RelayResult
	a.recv(&result)
	require.Equal(t, domain.RelayResult{Success: false, Message: "User not found", ID: "m3"}, result)
}

func TestRelayToVanishedConnection(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	hs.rec.markGone("b")
	a.send(domain.EventMessage, domain.RelayRequest{Message: json.RawMessage(`["x"]`), Username: "bob"})
	var result domain.RelayResult
	a.recv(&result)
	require.False(t, result.Success)
	require.Equal(t, "User not found", result.Message)
}

func TestDisconnectCleanup(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, a.register("alice", "pw").Success)
	require.True(t, b.register("bob", "pw").Success)

	hs.h.Disconnect(context.Background(), "b")
	_, err := hs.reg.Get("b")
	require.Error(t, err)

	var online domain.OnlineUsersResult
	a.send(domain.EventOnlineUsers, nil)
	a.recv(&online)
	require.Empty(t, online.Users)

	a.send(domain.EventMessage, domain.RelayRequest{Message: json.RawMessage(`["x"]`), Username: "bob"})
	var result domain.RelayResult
	a.recv(&result)
	require.Equal(t, "User not found", result.Message)

	// Events after disconnect are dropped.
	hs.h.Dispatch(context.Background(), "b", domain.Frame{Event: domain.EventOnlineUsers})
	b.expectNothing()
}

func TestSendPublicKeyWhenAuthenticated(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	require.True(t, a.register("alice", "pw").Success)

	pemBytes, err := crypto.MarshalPublicKey(&a.key.PublicKey)
	require.NoError(t, err)
	a.sendRaw(domain.EventSendPublicKey, mustJSON(t, string(pemBytes)))
	a.expectError(domain.ErrAuthenticationInvalid)
}

func TestUnknownEvent(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	a.sendRaw("teleport", nil)
	e := a.expectError(domain.ErrInternal)
	require.Equal(t, "unknown event", e.Message)
}

func TestMalformedCommandPayload(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()
	a.send(domain.EventLogin, []int{1, 2})
	a.expectError(domain.ErrInternal)

	// The session keeps working.
	require.False(t, a.login("nobody", "pw").Success)
}

func TestHandlerPanicIsContained(t *testing.T) {
	hs := newHarness(t)
	routes["explode"] = route{handle: func(*Handler, context.Context, *Request) error { panic("kaboom") }}
	routes["fail"] = route{handle: func(*Handler, context.Context, *Request) error { return errors.New("disk on fire") }}
	t.Cleanup(func() {
		delete(routes, "explode")
		delete(routes, "fail")
	})

	a := hs.connect("a", 1).handshake()
	b := hs.connect("b", 2).handshake()
	require.True(t, b.register("bob", "pw").Success)

	a.sendRaw("explode", nil)
	e := a.expectError(domain.ErrInternal)
	require.Equal(t, "kaboom", e.Message)

	a.sendRaw("fail", nil)
	e = a.expectError(domain.ErrInternal)
	require.Equal(t, "disk on fire", e.Message)

	// Same connection and other sessions are unaffected.
	require.True(t, a.register("alice", "pw").Success)
	var online domain.OnlineUsersResult
	b.send(domain.EventOnlineUsers, nil)
	b.recv(&online)
	require.Equal(t, []domain.OnlineUser{{Username: "alice", ID: "a"}}, online.Users)

	var panicked bool
	for _, entry := range hs.logHook.AllEntries() {
		if entry.Level == logrus.ErrorLevel && entry.Data["panic"] == "kaboom" {
			panicked = true
		}
	}
	require.True(t, panicked, "panic not logged")
}

func TestUnknownEventNamesShareOneMetricsSeries(t *testing.T) {
	hs := newHarness(t)
	a := hs.connect("a", 1).handshake()

	for i := 0; i < 200; i++ {
		a.sendRaw(fmt.Sprintf("junk-%d", i), nil)
		a.expectError(domain.ErrInternal)
	}
	hs.h.Malformed(context.Background(), a.id, errors.New("bad frame"))
	a.expectError(domain.ErrInternal)

	// connect, sendPublicKey and the shared unknown label.
	n, err := testutil.GatherAndCount(hs.metrics.Registry(), "relay_events_total")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}
