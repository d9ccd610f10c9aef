package relay

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"relaychat/internal/crypto"
	"relaychat/internal/domain"
	"relaychat/internal/protocol/envelope"
)

const (
	defaultMessageBuffer = 64
	replyBuffer          = 4
	writeTimeout         = 10 * time.Second
)

var (
	// ErrRejected wraps an unsuccessful reply, e.g. "Username is taken".
	ErrRejected = errors.New("request rejected")
	// ErrClosed is returned once the connection has ended.
	ErrClosed = errors.New("relay connection closed")
)

// ProtocolError is an error event sent by the server.
type ProtocolError struct {
	Type    domain.ErrorType
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("relay error %s: %s", e.Type, e.Message)
}

// Message is a relayed message addressed to this client.
type Message struct {
	From domain.Username
	Text string
}

// Options tune Dial. Zero values select defaults.
type Options struct {
	Dialer        *websocket.Dialer
	Header        http.Header
	Codec         *envelope.Codec
	Log           *logrus.Logger
	MessageBuffer int
}

type reply struct {
	seq   uint64
	frame domain.Frame
}

// Client is one authenticated-capable session with a relay.
type Client struct {
	ws        *websocket.Conn
	keys      domain.KeyPair
	serverKey *rsa.PublicKey
	mac       string
	codec     *envelope.Codec
	log       *logrus.Entry

	writeMu sync.Mutex
	reqMu   sync.Mutex

	// The server answers commands in order with exactly one frame each, so
	// the n-th reply read belongs to the n-th command written.
	sent     uint64        // guarded by reqMu
	received uint64        // readLoop only
	waiting  atomic.Uint64 // sequence of the request awaiting its reply, 0 if none

	replies  chan reply
	messages chan Message
	done     chan struct{}
	closeErr error
}

// Dial connects to url and completes the key exchange with keys.
func Dial(ctx context.Context, url string, keys domain.KeyPair, opts Options) (*Client, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	codec := opts.Codec
	if codec == nil {
		codec = envelope.New(0)
	}
	logger := opts.Log
	if logger == nil {
		logger = logrus.New()
	}
	buf := opts.MessageBuffer
	if buf <= 0 {
		buf = defaultMessageBuffer
	}

	ws, _, err := dialer.DialContext(ctx, url, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		ws:       ws,
		keys:     keys,
		codec:    codec,
		log:      logger.WithField("component", "relay-client"),
		replies:  make(chan reply, replyBuffer),
		messages: make(chan Message, buf),
		done:     make(chan struct{}),
	}
	if err := c.handshake(ctx); err != nil {
		_ = ws.Close()
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) handshake(ctx context.Context) error {
	if d, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(d)
		defer func() { _ = c.ws.SetReadDeadline(time.Time{}) }()
	}

	var greeting domain.Frame
	if err := c.ws.ReadJSON(&greeting); err != nil {
		return fmt.Errorf("read server key: %w", err)
	}
	if greeting.Event != domain.EventSendPublicKey {
		return fmt.Errorf("expected %s, got %s", domain.EventSendPublicKey, greeting.Event)
	}
	var serverPEM string
	if err := json.Unmarshal(greeting.Data, &serverPEM); err != nil {
		return fmt.Errorf("server key: %w", err)
	}
	serverKey, err := crypto.ParsePublicKey([]byte(serverPEM))
	if err != nil {
		return fmt.Errorf("server key: %w", err)
	}
	c.serverKey = serverKey

	ownPEM, err := crypto.MarshalPublicKey(c.keys.Public)
	if err != nil {
		return err
	}
	if err := c.writeJSON(domain.EventSendPublicKey, string(ownPEM)); err != nil {
		return err
	}

	var challenge domain.Frame
	if err := c.ws.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("read challenge: %w", err)
	}
	if challenge.Event == domain.EventError {
		return c.decodeError(challenge.Data)
	}
	if challenge.Event != domain.EventSendMAC {
		return fmt.Errorf("expected %s, got %s", domain.EventSendMAC, challenge.Event)
	}
	env, err := envelope.Parse(challenge.Data)
	if err != nil {
		return err
	}
	token, err := c.codec.Decode(c.keys.Private, env)
	if err != nil {
		return fmt.Errorf("decrypt challenge: %w", err)
	}
	c.mac = string(token)
	return nil
}

// ServerKey returns the key presented by the server.
func (c *Client) ServerKey() *rsa.PublicKey { return c.serverKey }

// ServerFingerprint returns the fingerprint of the server key.
func (c *Client) ServerFingerprint() (domain.Fingerprint, error) {
	return crypto.PublicKeyFingerprint(c.serverKey)
}

// Messages delivers relayed messages. It is closed when the connection ends.
func (c *Client) Messages() <-chan Message { return c.messages }

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Register creates an account and logs in as it.
func (c *Client) Register(ctx context.Context, username, password string) (domain.Username, error) {
	return c.auth(ctx, domain.EventRegister, username, password)
}

// Login authenticates as an existing account.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Username, error) {
	return c.auth(ctx, domain.EventLogin, username, password)
}

func (c *Client) auth(ctx context.Context, event, username, password string) (domain.Username, error) {
	var res domain.AuthResult
	creds := domain.Credentials{Username: domain.Username(username), Password: password}
	if err := c.request(ctx, event, creds, event, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	return res.Username, nil
}

// Logout drops the session's login; the connection stays open.
func (c *Client) Logout(ctx context.Context) error {
	var res domain.AuthResult
	if err := c.request(ctx, domain.EventLogout, nil, domain.EventLogout, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	return nil
}

// OnlineUsers lists the other users currently online.
func (c *Client) OnlineUsers(ctx context.Context) ([]domain.OnlineUser, error) {
	var res domain.OnlineUsersResult
	if err := c.request(ctx, domain.EventOnlineUsers, nil, domain.EventOnlineUsers, &res); err != nil {
		return nil, err
	}
	return res.Users, nil
}

// UserPublicKey fetches the public key of an online user.
func (c *Client) UserPublicKey(ctx context.Context, username domain.Username) (*rsa.PublicKey, error) {
	var res domain.UserPublicKeyResult
	req := domain.UserPublicKeyRequest{Username: username}
	if err := c.request(ctx, domain.EventUserPublicKey, req, domain.EventUserPublicKey, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	return crypto.ParsePublicKey([]byte(res.PublicKey))
}

// Send encrypts text to the peer's key and relays it. It returns the
// message id echoed by the server.
func (c *Client) Send(ctx context.Context, peer domain.Username, text string) (string, error) {
	pub, err := c.UserPublicKey(ctx, peer)
	if err != nil {
		return "", err
	}
	env, err := c.codec.Encode(pub, []byte(text))
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	req := domain.RelayRequest{Message: body, Username: peer, ID: uuid.NewString()}
	var res domain.RelayResult
	if err := c.request(ctx, domain.EventMessage, req, domain.EventMessageResult, &res); err != nil {
		return "", err
	}
	if !res.Success {
		return "", fmt.Errorf("%w: %s", ErrRejected, res.Message)
	}
	return res.ID, nil
}

// Close ends the connection and waits for the reader to stop.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	err := c.ws.Close()
	<-c.done
	return err
}

// request sends one MAC-wrapped command and waits for its reply.
func (c *Client) request(ctx context.Context, event string, data any, want string, out any) error {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	select {
	case <-c.done:
		return c.err()
	default:
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	mac := c.mac
	env, err := c.codec.Seal(c.serverKey, domain.AuthenticatedPayload{MAC: &mac, Data: raw})
	if err != nil {
		return err
	}
	// Everything still queued answers an earlier, abandoned request.
	for len(c.replies) > 0 {
		<-c.replies
	}
	c.sent++
	seq := c.sent
	c.waiting.Store(seq)
	defer c.waiting.Store(0)

	if err := c.writeJSON(event, env); err != nil {
		// Replies can no longer be paired with commands.
		_ = c.ws.Close()
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return c.err()
		case r := <-c.replies:
			if r.seq != seq {
				continue
			}
			f := r.frame
			if f.Event == domain.EventError {
				return c.decodeError(f.Data)
			}
			if f.Event != want {
				return fmt.Errorf("expected %s reply, got %s", want, f.Event)
			}
			return c.codec.Open(c.keys.Private, f.Data, out)
		}
	}
}

func (c *Client) writeJSON(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(domain.Frame{Event: event, Data: data})
}

// decodeError reads an error event, sealed or plain.
func (c *Client) decodeError(data json.RawMessage) error {
	var e domain.ErrorPayload
	if err := c.codec.Open(c.keys.Private, data, &e); err != nil {
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("undecodable error event: %w", err)
		}
	}
	return &ProtocolError{Type: e.Type, Message: e.Message}
}

func (c *Client) readLoop() {
	defer close(c.messages)
	defer close(c.done)

	for {
		var f domain.Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			c.closeErr = err
			return
		}
		if f.Event == domain.EventLoadMessage {
			c.deliver(f.Data)
			continue
		}
		c.received++
		if c.waiting.Load() != c.received {
			// The request gave up, e.g. its context expired.
			c.log.WithField("event", f.Event).Debug("Dropped reply to abandoned request")
			continue
		}
		select {
		case c.replies <- reply{seq: c.received, frame: f}:
		default:
			c.log.WithField("event", f.Event).Debug("Reply buffer full, reply dropped")
		}
	}
}

func (c *Client) deliver(data json.RawMessage) {
	var load domain.LoadMessage
	if err := c.codec.Open(c.keys.Private, data, &load); err != nil {
		c.log.WithError(err).Warn("Undecryptable relayed message")
		return
	}
	env, err := envelope.Parse(load.Message)
	if err != nil {
		c.log.WithError(err).WithField("from", load.From).Warn("Malformed message body")
		return
	}
	text, err := c.codec.Decode(c.keys.Private, env)
	if err != nil {
		c.log.WithError(err).WithField("from", load.From).Warn("Undecryptable message body")
		return
	}
	select {
	case c.messages <- Message{From: load.From, Text: string(text)}:
	default:
		c.log.WithField("from", load.From).Warn("Message buffer full, message dropped")
	}
}

func (c *Client) err() error {
	if c.closeErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, c.closeErr)
	}
	return ErrClosed
}
