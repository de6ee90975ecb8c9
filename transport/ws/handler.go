package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/pubsub/core/broker"
	"github.com/dmitrymomot/pubsub/core/logger"
)

// Handler serves the bidirectional pub/sub stream on a single route.
type Handler struct {
	broker   *broker.Broker
	logger   *slog.Logger
	cfg      Config
	upgrader websocket.Upgrader
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger configures structured logging for the transport.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// WithOriginCheck overrides the upgrader's origin policy.
func WithOriginCheck(fn func(r *http.Request) bool) Option {
	return func(h *Handler) {
		h.upgrader.CheckOrigin = fn
	}
}

// New creates a Handler with default configuration.
func New(b *broker.Broker, opts ...Option) *Handler {
	return NewFromConfig(b, DefaultConfig(), opts...)
}

// NewFromConfig creates a Handler from configuration.
// Additional options can override config values.
func NewFromConfig(b *broker.Broker, cfg Config, opts ...Option) *Handler {
	h := &Handler{
		broker: b,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

type subscriptionKey struct {
	topic    string
	clientID string
}

// ServeHTTP upgrades the connection and runs the envelope read loop until the
// client disconnects or the connection fails. New connections are rejected
// once shutdown has been initiated.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.broker.IsShuttingDown() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", logger.Error(err))
		return
	}
	h.logger.Info("websocket connection established",
		slog.String("remote_addr", conn.RemoteAddr().String()))

	c := newConn(conn, h.cfg.WriteTimeout)
	ctx, cancel := context.WithCancel(context.Background())
	subs := make(map[subscriptionKey]*broker.Subscriber)
	var wg sync.WaitGroup

	defer func() {
		// Detach every subscription this connection registered, then wait for
		// the delivery loops to observe deactivation before closing the conn.
		// An inactive subscriber was already replaced by a later subscribe
		// with the same client id (possibly from another connection) or
		// detached by the broker; the registered slot no longer belongs to
		// this connection, so it must not be unsubscribed here.
		for key, sub := range subs {
			if !sub.Active() {
				continue
			}
			_ = h.broker.Unsubscribe(key.topic, key.clientID)
		}
		cancel()
		wg.Wait()
		_ = c.close()
		h.logger.Info("websocket connection closed",
			slog.String("remote_addr", conn.RemoteAddr().String()))
	}()

	if h.cfg.PingInterval > 0 {
		readWait := h.cfg.PingInterval + h.cfg.PongTimeout
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readWait))
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			h.keepalive(ctx, c)
		}()
	}

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if isDecodeError(err) {
				_ = c.sendError(CodeBadRequest, "invalid message format: "+err.Error(), "")
				continue
			}
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", logger.Error(err))
			}
			return
		}

		switch msg.Type {
		case TypeSubscribe:
			h.handleSubscribe(ctx, c, msg, subs, &wg)
		case TypeUnsubscribe:
			h.handleUnsubscribe(c, msg, subs)
		case TypePublish:
			h.handlePublish(c, msg)
		case TypePing:
			_ = c.sendPong(msg.RequestID)
		default:
			_ = c.sendError(CodeBadRequest, "unknown message type: "+msg.Type, msg.RequestID)
		}
	}
}

func (h *Handler) handleSubscribe(ctx context.Context, c *wsConn, msg ClientMessage, subs map[subscriptionKey]*broker.Subscriber, wg *sync.WaitGroup) {
	if msg.Topic == "" {
		_ = c.sendError(CodeBadRequest, "topic is required", msg.RequestID)
		return
	}
	if msg.ClientID == "" {
		_ = c.sendError(CodeBadRequest, "client_id is required", msg.RequestID)
		return
	}

	sub, history, err := h.broker.Subscribe(msg.Topic, msg.ClientID, c, msg.LastN)
	switch {
	case errors.Is(err, broker.ErrShuttingDown):
		_ = c.sendError(CodeInternal, "server is shutting down, not accepting new subscriptions", msg.RequestID)
		return
	case errors.Is(err, broker.ErrTopicNotFound):
		_ = c.sendError(CodeTopicNotFound, fmt.Sprintf("topic %q does not exist", msg.Topic), msg.RequestID)
		return
	case err != nil:
		_ = c.sendError(CodeInternal, err.Error(), msg.RequestID)
		return
	}

	_ = c.sendAck(msg.Topic, msg.RequestID)

	key := subscriptionKey{topic: msg.Topic, clientID: msg.ClientID}
	subs[key] = sub

	// Replay requested history before live delivery begins. The delivery loop
	// is not started yet, so replayed and live events cannot interleave. A
	// failed replay write means the connection is gone; the subscriber is
	// already registered, so it must be detached or it would keep accruing
	// deliveries with no consumer.
	for _, entry := range history {
		if err := c.sendEvent(msg.Topic, entry.Message, entry.Timestamp); err != nil {
			h.logger.Warn("history replay write failed",
				logger.Topic(msg.Topic),
				logger.ClientID(msg.ClientID),
				logger.Error(err))
			if sub.Active() {
				_ = h.broker.Unsubscribe(msg.Topic, msg.ClientID)
			}
			delete(subs, key)
			return
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.deliver(ctx, c, sub)
	}()
}

func (h *Handler) handleUnsubscribe(c *wsConn, msg ClientMessage, subs map[subscriptionKey]*broker.Subscriber) {
	if msg.Topic == "" {
		_ = c.sendError(CodeBadRequest, "topic is required", msg.RequestID)
		return
	}
	if msg.ClientID == "" {
		_ = c.sendError(CodeBadRequest, "client_id is required", msg.RequestID)
		return
	}

	if err := h.broker.Unsubscribe(msg.Topic, msg.ClientID); err != nil {
		_ = c.sendError(CodeTopicNotFound,
			fmt.Sprintf("topic %q not found or client not subscribed", msg.Topic), msg.RequestID)
		return
	}
	delete(subs, subscriptionKey{topic: msg.Topic, clientID: msg.ClientID})

	_ = c.sendAck(msg.Topic, msg.RequestID)
}

func (h *Handler) handlePublish(c *wsConn, msg ClientMessage) {
	if msg.Topic == "" {
		_ = c.sendError(CodeBadRequest, "topic is required", msg.RequestID)
		return
	}
	if msg.Message == nil {
		_ = c.sendError(CodeBadRequest, "message is required", msg.RequestID)
		return
	}
	if _, err := uuid.Parse(msg.Message.ID); err != nil {
		_ = c.sendError(CodeBadRequest, "message.id must be a valid UUID", msg.RequestID)
		return
	}

	delivered, err := h.broker.Publish(msg.Topic, *msg.Message)
	switch {
	case errors.Is(err, broker.ErrShuttingDown):
		_ = c.sendError(CodeInternal, "server is shutting down, not accepting new messages", msg.RequestID)
		return
	case errors.Is(err, broker.ErrTopicNotFound):
		_ = c.sendError(CodeTopicNotFound, fmt.Sprintf("topic %q does not exist", msg.Topic), msg.RequestID)
		return
	case err != nil:
		_ = c.sendError(CodeInternal, err.Error(), msg.RequestID)
		return
	}

	h.logger.Debug("message published",
		logger.Topic(msg.Topic),
		logger.ID("message_id", msg.Message.ID),
		logger.Count("delivered", delivered))

	_ = c.sendAck(msg.Topic, msg.RequestID)
}

// deliver drains one subscriber queue and forwards entries as event frames.
// Ends when the subscriber is deactivated, the connection context is
// canceled, or a write fails.
func (h *Handler) deliver(ctx context.Context, c *wsConn, sub *broker.Subscriber) {
	for {
		d, err := sub.Dequeue(ctx)
		if err != nil {
			return
		}
		if err := c.sendEvent(d.Topic, d.Message, d.Timestamp); err != nil {
			h.logger.Warn("event delivery write failed",
				logger.Topic(d.Topic),
				logger.ClientID(sub.ClientID()),
				logger.Error(err))
			return
		}
	}
}

func (h *Handler) keepalive(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
