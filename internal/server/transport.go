package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"relaychat/internal/domain"
)

const (
	wsReadBuffer       = 1024
	wsWriteBuffer      = 1024
	wsPingInterval     = 30 * time.Second
	wsPingWriteTimeout = 5 * time.Second
	wsPongTimeout      = 30 * time.Second

	// DefaultReadLimit bounds one inbound frame.
	DefaultReadLimit = 1 << 20
	// DefaultWriteTimeout bounds one outbound frame.
	DefaultWriteTimeout = 10 * time.Second
)

var wsBufferPool = new(sync.Pool)

// Options tune the WebSocket transport. Zero values select defaults.
type Options struct {
	// AllowedOrigins lists browser origins accepted during the upgrade.
	// "*" accepts any origin; an empty list accepts only localhost.
	AllowedOrigins []string
	ReadLimit      int64
	WriteTimeout   time.Duration
}

// Server serves the relay protocol to WebSocket clients.
type Server struct {
	handler  *Handler
	conns    *Conns
	upgrader websocket.Upgrader
	opts     Options
	log      *logrus.Entry

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer returns a Server dispatching to h and writing through conns,
// which must be the FrameSender h was built with.
func NewServer(h *Handler, conns *Conns, opts Options, logger *logrus.Logger) *Server {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		handler: h,
		conns:   conns,
		opts:    opts,
		log:     logger.WithField("component", "transport"),
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  wsReadBuffer,
		WriteBufferSize: wsWriteBuffer,
		WriteBufferPool: wsBufferPool,
		CheckOrigin:     originValidator(opts.AllowedOrigins, s.log),
	}
	return s
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	s.serve(ws, r.RemoteAddr)
}

func (s *Server) serve(ws *websocket.Conn, remote string) {
	id := domain.SessionID(uuid.NewString())
	log := s.log.WithFields(logrus.Fields{"session": id, "remote": remote})
	cn := &conn{ws: ws, writeTimeout: s.opts.WriteTimeout}

	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	s.conns.add(id, cn)
	defer func() {
		s.conns.remove(id)
		s.handler.Disconnect(ctx, id)
		log.Debug("Connection closed")
	}()

	if err := s.handler.Connect(ctx, id); err != nil {
		log.WithError(err).Warn("Connect failed")
		return
	}

	ws.SetReadLimit(s.opts.ReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
	})
	go s.pingLoop(ctx, cn)

	for {
		typ, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("Read failed")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongTimeout))
		if typ != websocket.TextMessage {
			continue
		}

		var frame domain.Frame
		if err := json.Unmarshal(msg, &frame); err != nil || frame.Event == "" {
			if err == nil {
				err = errMissingEvent
			}
			s.handler.Malformed(ctx, id, err)
			continue
		}
		s.handler.Dispatch(ctx, id, frame)
	}
}

func (s *Server) pingLoop(ctx context.Context, cn *conn) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := cn.ping(wsPingWriteTimeout); err != nil {
				return
			}
		}
	}
}

// Close ends every connection and waits for their cleanup to finish.
func (s *Server) Close() {
	s.cancel()
	s.conns.closeAll()
	s.wg.Wait()
}

// originValidator verifies the Origin header during the upgrade. Requests
// without an Origin header come from non-browser clients and pass.
func originValidator(allowed []string, log *logrus.Entry) func(*http.Request) bool {
	origins := make(map[string]bool)
	allowAll := false
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			origins[strings.ToLower(o)] = true
		}
	}
	if len(origins) == 0 {
		origins["http://localhost"] = true
	}

	return func(req *http.Request) bool {
		if _, ok := req.Header["Origin"]; !ok {
			return true
		}
		origin := strings.ToLower(req.Header.Get("Origin"))
		if allowAll || origins[origin] || origins[stripPort(origin)] {
			return true
		}
		log.WithField("origin", origin).Warn("Rejected WebSocket connection")
		return false
	}
}

func stripPort(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Port() == "" {
		return origin
	}
	return u.Scheme + "://" + u.Hostname()
}
