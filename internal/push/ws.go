package push

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSChannel delivers messages over a websocket connection. Each message is
// one text frame carrying the JSON-encoded string array.
type WSChannel struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	sendTimeout time.Duration
	closed      bool
}

// NewWSChannel wraps an upgraded websocket connection. sendTimeout bounds
// each frame write, 0 disables the bound.
func NewWSChannel(conn *websocket.Conn, sendTimeout time.Duration) *WSChannel {
	return &WSChannel{conn: conn, sendTimeout: sendTimeout}
}

// Send writes one text frame. A slow or gone client fails the write once the
// send timeout elapses instead of blocking the channel.
func (w *WSChannel) Send(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("websocket channel closed")
	}
	if w.sendTimeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.sendTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
	}
	if err := w.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (w *WSChannel) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

// IsOpen reports whether the connection still accepts frames.
func (w *WSChannel) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.closed
}

// MarkClosed flags the channel dead without closing the connection, for use
// when the read loop observes the peer going away.
func (w *WSChannel) MarkClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
