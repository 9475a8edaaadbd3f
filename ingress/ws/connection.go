package ws

import (
	"context"
	"log/slog"
	"time"

	"channel-hub/domain/event"
	"channel-hub/errors"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Connection adapts one websocket to the transport handle the registry
// holds. Envelopes go through a buffered channel drained by a single write
// pump, so the broadcast router never blocks on a slow socket.
type Connection struct {
	log  *slog.Logger
	conn *websocket.Conn
	send chan event.Envelope
	done chan struct{}
}

func NewConnection(log *slog.Logger, conn *websocket.Conn, bufferSize int) *Connection {
	return &Connection{
		log:  log,
		conn: conn,
		send: make(chan event.Envelope, bufferSize),
		done: make(chan struct{}),
	}
}

// Send queues an envelope for delivery. It fails fast when the buffer is
// full or the connection is closing; the router treats that as a dead
// connection and moves on.
func (c *Connection) Send(ctx context.Context, e event.Envelope) error {
	select {
	case c.send <- e:
		return nil
	case <-c.done:
		return errors.ErrTransport
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the write pump and closes the socket. Safe to call twice;
// only the first call has any effect.
func (c *Connection) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

// writePump serializes all writes to the socket: queued envelopes and
// keepalive pings. It owns the socket's write side exclusively.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case e := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				c.log.Debug("Write failed, dropping connection", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
