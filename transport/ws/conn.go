package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/pubsub/core/broker"
)

// wsConn wraps a websocket connection with write serialization. Gorilla
// permits at most one concurrent writer, while frames originate from the read
// loop, per-subscription delivery loops, the keepalive ticker, and broker
// notifications.
//
// wsConn implements broker.Notifier so deletion and shutdown notifications
// reach the client as info frames.
type wsConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func newConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) writePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.writeTimeout)
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *wsConn) close() error {
	return c.conn.Close()
}

// Notify implements broker.Notifier.
func (c *wsConn) Notify(ctx context.Context, n broker.Notification) error {
	return c.sendInfo(n.Topic, string(n.Kind))
}

func (c *wsConn) sendAck(topic, requestID string) error {
	return c.writeJSON(ServerMessage{
		Type:      TypeAck,
		RequestID: requestID,
		Topic:     topic,
		Status:    "ok",
		TS:        timestamp(time.Now()),
	})
}

func (c *wsConn) sendError(code ErrorCode, message, requestID string) error {
	return c.writeJSON(ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Error:     &ErrorDetail{Code: code, Message: message},
		TS:        timestamp(time.Now()),
	})
}

func (c *wsConn) sendPong(requestID string) error {
	return c.writeJSON(ServerMessage{
		Type:      TypePong,
		RequestID: requestID,
		TS:        timestamp(time.Now()),
	})
}

func (c *wsConn) sendEvent(topic string, msg broker.Message, ts time.Time) error {
	return c.writeJSON(ServerMessage{
		Type:    TypeEvent,
		Topic:   topic,
		Message: &msg,
		TS:      timestamp(ts),
	})
}

func (c *wsConn) sendInfo(topic, msg string) error {
	return c.writeJSON(ServerMessage{
		Type:  TypeInfo,
		Topic: topic,
		Msg:   msg,
		TS:    timestamp(time.Now()),
	})
}
