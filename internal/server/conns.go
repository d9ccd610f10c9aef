package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relaychat/internal/domain"
)

// Conns maps session ids to live WebSocket connections and implements
// domain.FrameSender over them.
type Conns struct {
	mu    sync.RWMutex
	conns map[domain.SessionID]*conn
}

// NewConns returns an empty connection table.
func NewConns() *Conns {
	return &Conns{conns: make(map[domain.SessionID]*conn)}
}

// SendFrame writes frame to the session's connection. Missing or closed
// connections yield domain.ErrSessionGone.
func (c *Conns) SendFrame(ctx context.Context, id domain.SessionID, frame domain.Frame) error {
	c.mu.RLock()
	cn, ok := c.conns[id]
	c.mu.RUnlock()
	if !ok {
		return domain.ErrSessionGone
	}
	return cn.write(ctx, frame)
}

// Len returns the number of registered connections.
func (c *Conns) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

func (c *Conns) add(id domain.SessionID, cn *conn) {
	c.mu.Lock()
	c.conns[id] = cn
	c.mu.Unlock()
}

func (c *Conns) remove(id domain.SessionID) {
	c.mu.Lock()
	cn, ok := c.conns[id]
	delete(c.conns, id)
	c.mu.Unlock()
	if ok {
		cn.close()
	}
}

// closeAll closes every connection; their read loops then exit and clean up.
func (c *Conns) closeAll() {
	c.mu.RLock()
	all := make([]*conn, 0, len(c.conns))
	for _, cn := range c.conns {
		all = append(all, cn)
	}
	c.mu.RUnlock()
	for _, cn := range all {
		cn.close()
	}
}

// conn serialises writes to one WebSocket.
type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func (cn *conn) write(ctx context.Context, frame domain.Frame) error {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	if cn.closed {
		return domain.ErrSessionGone
	}
	deadline := time.Now().Add(cn.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = cn.ws.SetWriteDeadline(deadline)
	if err := cn.ws.WriteJSON(frame); err != nil {
		cn.closed = true
		_ = cn.ws.Close()
		return fmt.Errorf("%w: %v", domain.ErrSessionGone, err)
	}
	return nil
}

func (cn *conn) ping(timeout time.Duration) error {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	if cn.closed {
		return domain.ErrSessionGone
	}
	return cn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (cn *conn) close() {
	cn.mu.Lock()
	defer cn.mu.Unlock()

	if cn.closed {
		return
	}
	cn.closed = true
	_ = cn.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = cn.ws.Close()
}

var _ domain.FrameSender = (*Conns)(nil)
