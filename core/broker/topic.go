package broker

import (
	"log/slog"
	"sync"
	"time"
)

// Topic is a named channel with its own subscriber registry and bounded
// history buffer. All topic state is guarded by a single topic-local lock so
// operations on different topics never contend.
type Topic struct {
	name string

	mu           sync.RWMutex
	subscribers  map[string]*Subscriber
	history      *historyRing
	messageCount uint64
	closed       bool

	logger *slog.Logger
}

func newTopic(name string, historySize int, logger *slog.Logger) *Topic {
	return &Topic{
		name:        name,
		subscribers: make(map[string]*Subscriber),
		history:     newHistoryRing(historySize),
		logger:      logger,
	}
}

// Name returns the topic's unique name.
func (t *Topic) Name() string {
	return t.name
}

// AddSubscriber registers a subscriber under its client id. Subscribing with
// a client id that is already present replaces the prior subscriber: the old
// one is deactivated first so its delivery loop terminates, then the new one
// takes the slot. Returns ErrTopicNotFound if the topic was deleted
// concurrently.
func (t *Topic) AddSubscriber(sub *Subscriber) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTopicNotFound
	}

	if prev, ok := t.subscribers[sub.clientID]; ok {
		prev.Deactivate()
		t.logger.Info("replaced existing subscriber",
			slog.String("topic", t.name),
			slog.String("client_id", sub.clientID))
	}
	t.subscribers[sub.clientID] = sub

	t.logger.Info("subscriber added",
		slog.String("topic", t.name),
		slog.String("client_id", sub.clientID),
		slog.Int("subscribers", len(t.subscribers)))
	return nil
}

// RemoveSubscriber deactivates and removes the subscriber registered under
// clientID. Returns false if it is absent.
func (t *Topic) RemoveSubscriber(clientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subscribers[clientID]
	if !ok {
		return false
	}
	sub.Deactivate()
	delete(t.subscribers, clientID)

	t.logger.Info("subscriber removed",
		slog.String("topic", t.name),
		slog.String("client_id", clientID),
		slog.Int("subscribers", len(t.subscribers)))
	return true
}

// Publish appends the message to history, increments the message counter, and
// fans the message out to every active subscriber. Returns the number of
// subscribers whose enqueue succeeded. History append and fan-out are atomic
// with respect to concurrent subscriber changes on this topic.
func (t *Topic) Publish(msg Message) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrTopicNotFound
	}

	now := time.Now().UTC()
	t.history.append(HistoryEntry{Message: msg, Timestamp: now})
	t.messageCount++

	delivered := 0
	for _, sub := range t.subscribers {
		if !sub.Active() {
			continue
		}
		if sub.enqueue(Delivery{Topic: t.name, Message: msg, Timestamp: now}) {
			delivered++
		}
	}

	t.logger.Debug("message published",
		slog.String("topic", t.name),
		slog.String("message_id", msg.ID),
		slog.Int("delivered", delivered),
		slog.Int("subscribers", len(t.subscribers)))
	return delivered, nil
}

// History returns the most recent min(lastN, stored) entries, oldest first.
// lastN <= 0 returns an empty slice. The returned slice is a copy; concurrent
// publishes never tear it.
func (t *Topic) History(lastN int) []HistoryEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history.lastN(lastN)
}

// SubscriberCount returns a snapshot of the current subscriber count.
func (t *Topic) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

// MessageCount returns the total number of messages ever published to the
// topic. The counter is monotonic and never reset by history eviction.
func (t *Topic) MessageCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.messageCount
}

// removeExact removes sub only if it is still the one registered under its
// client id, leaving a concurrently registered replacement untouched.
func (t *Topic) removeExact(sub *Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.subscribers[sub.clientID]; ok && cur == sub {
		delete(t.subscribers, sub.clientID)
	}
}

// snapshotSubscribers returns the current subscribers without holding the
// lock beyond the copy.
func (t *Topic) snapshotSubscribers() []*Subscriber {
	t.mu.RLock()
	defer t.mu.RUnlock()

	subs := make([]*Subscriber, 0, len(t.subscribers))
	for _, sub := range t.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

// close marks the topic deleted and detaches every subscriber. Operations
// racing with deletion observe ErrTopicNotFound once the flag is set. The
// detached subscribers are returned still active so the caller can notify
// them before deactivation.
func (t *Topic) close() []*Subscriber {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return t.detachAll()
}

// detachAll removes and returns every subscriber without closing the topic.
// Used by broker shutdown, which keeps topics readable for draining.
func (t *Topic) detachAll() []*Subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()

	subs := make([]*Subscriber, 0, len(t.subscribers))
	for _, sub := range t.subscribers {
		subs = append(subs, sub)
	}
	t.subscribers = make(map[string]*Subscriber)
	return subs
}
