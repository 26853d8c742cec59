package ws

import (
	"context"
	"log/slog"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/runtime"
	"pairchat/sink"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024
)

// Connection pumps frames between one websocket and its session.
type Connection struct {
	conn        *websocket.Conn
	session     *runtime.Session
	sink        *sink.ConnectionSink
	coordinator *runtime.Coordinator
	log         *slog.Logger
}

func newConnection(conn *websocket.Conn, session *runtime.Session, sink *sink.ConnectionSink,
	coordinator *runtime.Coordinator, log *slog.Logger) *Connection {
	return &Connection{
		conn:        conn,
		session:     session,
		sink:        sink,
		coordinator: coordinator,
		log:         log.With("connection_id", session.ID, "user_id", session.Identity.ID),
	}
}

// Serve blocks until the peer goes away, ctx is canceled or the credential expires.
// The session is always disconnected before Serve returns.
func (c *Connection) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.sink.Close()
		c.coordinator.Disconnect(context.WithoutCancel(ctx), c.session)
		_ = c.conn.Close()
	}()

	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

func (c *Connection) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read failed", "error", err)
			}
			return
		}

		cmd, err := DecodeCommand(frame)
		if err != nil {
			c.log.Debug("Frame rejected", "error", err)
			_ = c.session.Consume(ctx, event.Error{Code: string(errors.KindOf(err)), Message: err.Error()})
			continue
		}
		if err := c.coordinator.Submit(ctx, c.session, cmd); err != nil {
			c.log.Info("Command not submitted", "command", cmd.Name(), "error", err)
			return
		}
	}
}

// writePump is the only writer of the websocket.
func (c *Connection) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	expiry := time.NewTimer(time.Until(c.session.ExpiresAt))
	defer func() {
		ticker.Stop()
		expiry.Stop()
		cancel()
		// Unblocks the read pump.
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.close(websocket.CloseGoingAway, "server shutting down")
			return
		case <-c.sink.Done():
			return
		case <-expiry.C:
			c.log.Info("Credential expired, closing session")
			_ = c.write(event.Error{Code: string(errors.KindAuthentication), Message: errors.ErrTokenExpired.Error()})
			c.close(websocket.ClosePolicyViolation, "token expired")
			return
		case e := <-c.sink.Events():
			if err := c.write(e); err != nil {
				c.log.Warn("Websocket write failed", "event", e.Name(), "error", err)
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

func (c *Connection) write(e event.Event) error {
	frame, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Connection) close(code int, reason string) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}
