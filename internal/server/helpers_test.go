package server

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
	"relaychat/internal/metrics"
	"relaychat/internal/protocol/envelope"
	"relaychat/internal/services/account"
	"relaychat/internal/services/keys"
	"relaychat/internal/services/session"
	"relaychat/internal/store"
)

var (
	poolOnce sync.Once
	keyPool  []*rsa.PrivateKey
)

// testKey returns one of a few pre-generated 1024-bit keys.
func testKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	poolOnce.Do(func() {
		for n := 0; n < 4; n++ {
			k, err := rsa.GenerateKey(rand.Reader, 1024)
			if err != nil {
				panic(err)
			}
			keyPool = append(keyPool, k)
		}
	})
	return keyPool[i]
}

// recorder is a FrameSender that queues frames per session.
type recorder struct {
	mu     sync.Mutex
	frames map[domain.SessionID][]domain.Frame
	gone   map[domain.SessionID]bool
}

func newRecorder() *recorder {
	return &recorder{
		frames: make(map[domain.SessionID][]domain.Frame),
		gone:   make(map[domain.SessionID]bool),
	}
}

func (r *recorder) SendFrame(_ context.Context, id domain.SessionID, f domain.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gone[id] {
		return domain.ErrSessionGone
	}
	r.frames[id] = append(r.frames[id], f)
	return nil
}

func (r *recorder) next(id domain.SessionID) (domain.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := r.frames[id]
	if len(q) == 0 {
		return domain.Frame{}, false
	}
	r.frames[id] = q[1:]
	return q[0], true
}

func (r *recorder) markGone(id domain.SessionID) {
	r.mu.Lock()
	r.gone[id] = true
	r.mu.Unlock()
}

type harness struct {
	t       *testing.T
	h       *Handler
	reg     *session.Registry
	rec     *recorder
	server  domain.KeyPair
	codec   *envelope.Codec
	metrics *metrics.Metrics
	logHook *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	priv := testKey(t, 0)
	kp := domain.KeyPair{Public: &priv.PublicKey, Private: priv}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	reg := session.NewRegistry()
	rec := newRecorder()
	hasher := account.NewArgon2Hasher(account.Argon2Params{Time: 1, MemoryKiB: 64, Threads: 1})
	m := metrics.New(reg)
	h, err := NewHandler(Config{
		Keys:       kp,
		KeyService: keys.New(store.NewKeyFileStore(t.TempDir(), nil), 1024),
		Sessions:   reg,
		Accounts:   account.New(store.NewMemoryAccountStore(), hasher),
		Sender:     rec,
		Metrics:    m,
		Log:        logger,
	})
	require.NoError(t, err)

	return &harness{t: t, h: h, reg: reg, rec: rec, server: kp, codec: envelope.New(0), metrics: m, logHook: hook}
}

// client drives one session against the handler.
type client struct {
	hs  *harness
	id  domain.SessionID
	key *rsa.PrivateKey
	mac string
}

// connect opens a session and checks the plain-text greeting.
func (hs *harness) connect(id domain.SessionID, keyIndex int) *client {
	t := hs.t
	t.Helper()
	require.NoError(t, hs.h.Connect(context.Background(), id))

	f, ok := hs.rec.next(id)
	require.True(t, ok)
	require.Equal(t, domain.EventSendPublicKey, f.Event)
	var pemText string
	require.NoError(t, json.Unmarshal(f.Data, &pemText))
	pub, err := crypto.ParsePublicKey([]byte(pemText))
	require.NoError(t, err)
	require.True(t, pub.Equal(hs.server.Public))

	return &client{hs: hs, id: id, key: testKey(t, keyIndex)}
}

// handshake presents the client key and recovers the challenge.
func (c *client) handshake() *client {
	t := c.hs.t
	t.Helper()
	pemBytes, err := crypto.MarshalPublicKey(&c.key.PublicKey)
	require.NoError(t, err)
	c.sendRaw(domain.EventSendPublicKey, mustJSON(t, string(pemBytes)))

	f := c.nextFrame()
	require.Equal(t, domain.EventSendMAC, f.Event)
	env, err := envelope.Parse(f.Data)
	require.NoError(t, err)
	token, err := c.hs.codec.Decode(c.key, env)
	require.NoError(t, err)
	c.mac = string(token)
	require.Len(t, c.mac, 32)
	return c
}

func (c *client) sendRaw(event string, data json.RawMessage) {
	c.hs.h.Dispatch(context.Background(), c.id, domain.Frame{Event: event, Data: data})
}

// send wraps data with the client's MAC and encrypts it for the server.
func (c *client) send(event string, data any) {
	c.sendWithMAC(event, &c.mac, data)
}

func (c *client) sendWithMAC(event string, mac *string, data any) {
	t := c.hs.t
	t.Helper()
	payload := domain.AuthenticatedPayload{MAC: mac, Data: mustJSON(t, data)}
	env, err := c.hs.codec.Seal(c.hs.server.Public, payload)
	require.NoError(t, err)
	c.sendRaw(event, mustJSON(t, env))
}

func (c *client) nextFrame() domain.Frame {
	t := c.hs.t
	t.Helper()
	f, ok := c.hs.rec.next(c.id)
	require.True(t, ok, "no frame for %s", c.id)
	return f
}

// recv returns the next event, decrypting it when it is an envelope.
func (c *client) recv(v any) string {
	t := c.hs.t
	t.Helper()
	f := c.nextFrame()
	var probe []string
	if json.Unmarshal(f.Data, &probe) == nil && c.key != nil {
		require.NoError(t, c.hs.codec.Open(c.key, f.Data, v))
		return f.Event
	}
	require.NoError(t, json.Unmarshal(f.Data, v))
	return f.Event
}

// expectError checks the next frame is an error of typ.
func (c *client) expectError(typ domain.ErrorType) domain.ErrorPayload {
	t := c.hs.t
	t.Helper()
	var e domain.ErrorPayload
	require.Equal(t, domain.EventError, c.recv(&e))
	require.Equal(t, typ, e.Type, e.Message)
	return e
}

func (c *client) expectNothing() {
	c.hs.t.Helper()
	_, ok := c.hs.rec.next(c.id)
	require.False(c.hs.t, ok, "unexpected frame for %s", c.id)
}

func (c *client) register(name, password string) domain.AuthResult {
	c.hs.t.Helper()
	c.send(domain.EventRegister, domain.Credentials{Username: domain.Username(name), Password: password})
	var res domain.AuthResult
	require.Equal(c.hs.t, domain.EventRegister, c.recv(&res))
	return res
}

func (c *client) login(name, password string) domain.AuthResult {
	c.hs.t.Helper()
	c.send(domain.EventLogin, domain.Credentials{Username: domain.Username(name), Password: password})
	var res domain.AuthResult
	require.Equal(c.hs.t, domain.EventLogin, c.recv(&res))
	return res
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
