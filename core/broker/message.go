package broker

import (
	"context"
	"encoding/json"
	"time"
)

// Message is a published payload. The broker stores and forwards it without
// interpretation; only the ID is structurally inspected, and only by the
// transport layer.
type Message struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Delivery is one entry in a subscriber's queue: a message bound to the topic
// it was published on, stamped at publish time.
type Delivery struct {
	Topic     string    `json:"topic"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// HistoryEntry is one retained message in a topic's replay buffer.
type HistoryEntry struct {
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"ts"`
}

// NotificationKind classifies out-of-band notifications sent to subscribers.
type NotificationKind string

const (
	// NotifyTopicDeleted is sent to each subscriber of a topic being deleted.
	NotifyTopicDeleted NotificationKind = "topic_deleted"

	// NotifyServerShutdown is sent to every subscriber when shutdown begins.
	NotifyServerShutdown NotificationKind = "server_shutdown"
)

// Notification is an out-of-band signal delivered through a subscriber's
// Notifier handle.
type Notification struct {
	Kind  NotificationKind
	Topic string
}

// Notifier is the opaque per-subscriber handle supplied by the transport
// layer. The broker calls it only for deletion and shutdown notifications;
// failures are logged and never abort the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// TopicInfo is a point-in-time listing entry for one topic.
type TopicInfo struct {
	Name        string `json:"name"`
	Subscribers int    `json:"subscribers"`
}

// TopicStats is a point-in-time statistics snapshot for one topic.
type TopicStats struct {
	Messages    uint64 `json:"messages"`
	Subscribers int    `json:"subscribers"`
}
