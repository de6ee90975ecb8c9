package ws

import (
	"time"

	"github.com/dmitrymomot/pubsub/core/broker"
)

// Client-to-server message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePublish     = "publish"
	TypePing        = "ping"
)

// Server-to-client message types.
const (
	TypeAck   = "ack"
	TypeEvent = "event"
	TypeError = "error"
	TypePong  = "pong"
	TypeInfo  = "info"
)

// ErrorCode classifies protocol-level failures surfaced to clients.
type ErrorCode string

const (
	CodeBadRequest    ErrorCode = "BAD_REQUEST"
	CodeTopicNotFound ErrorCode = "TOPIC_NOT_FOUND"
	CodeSlowConsumer  ErrorCode = "SLOW_CONSUMER"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeInternal      ErrorCode = "INTERNAL"
)

// Info frame messages sent on broker-initiated teardown.
const (
	InfoTopicDeleted   = "topic_deleted"
	InfoServerShutdown = "server_shutdown"
)

// ClientMessage is the envelope for every client-to-server frame.
type ClientMessage struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Message   *broker.Message `json:"message,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	LastN     int             `json:"last_n,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ServerMessage is the envelope for every server-to-client frame.
type ServerMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Topic     string          `json:"topic,omitempty"`
	Message   *broker.Message `json:"message,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty"`
	Status    string          `json:"status,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	TS        string          `json:"ts"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
