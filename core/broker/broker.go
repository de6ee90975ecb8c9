package broker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is the broker lifecycle state. Transitions are one-way:
// Running -> ShuttingDown -> Stopped.
type State int

const (
	// StateRunning accepts all operations.
	StateRunning State = iota

	// StateShuttingDown rejects mutating accept paths (create, subscribe,
	// publish) while read-only and teardown operations continue to work.
	StateShuttingDown

	// StateStopped is terminal: every subscriber has been detached.
	StateStopped
)

// Broker routes every public operation to the right topic. It guards only the
// topic registry and lifecycle state with its own lock, held for the duration
// of a lookup or insert/delete, never across a topic-level operation.
type Broker struct {
	mu        sync.RWMutex
	topics    map[string]*Topic
	state     State
	startTime time.Time

	cfg    Config
	logger *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithLogger configures structured logging for the broker and everything it
// creates. Use slog.New(slog.NewTextHandler(io.Discard, nil)) to disable logging.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithQueueSize sets the per-subscriber queue capacity.
func WithQueueSize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.cfg.QueueSize = size
		}
	}
}

// WithHistorySize sets the per-topic history capacity.
func WithHistorySize(size int) Option {
	return func(b *Broker) {
		if size > 0 {
			b.cfg.HistorySize = size
		}
	}
}

// WithShutdownGrace sets the drain window Shutdown waits after notifying
// subscribers.
func WithShutdownGrace(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.cfg.ShutdownGrace = d
		}
	}
}

// New creates a Broker with default configuration.
func New(opts ...Option) *Broker {
	b := &Broker{
		topics:    make(map[string]*Topic),
		state:     StateRunning,
		startTime: time.Now(),
		cfg:       DefaultConfig(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewFromConfig creates a Broker from configuration.
// Additional options can override config values.
func NewFromConfig(cfg Config, opts ...Option) *Broker {
	allOpts := append([]Option{
		WithQueueSize(cfg.QueueSize),
		WithHistorySize(cfg.HistorySize),
		WithShutdownGrace(cfg.ShutdownGrace),
	}, opts...)

	return New(allOpts...)
}

// CreateTopic creates an empty topic under the given name.
// Returns ErrTopicAlreadyExists if the name is taken and ErrShuttingDown if
// the broker no longer accepts new topics.
func (b *Broker) CreateTopic(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateRunning {
		return ErrShuttingDown
	}
	if _, ok := b.topics[name]; ok {
		return ErrTopicAlreadyExists
	}
	b.topics[name] = newTopic(name, b.cfg.HistorySize, b.logger)

	b.logger.Info("topic created",
		slog.String("topic", name),
		slog.Int("topics", len(b.topics)))
	return nil
}

// DeleteTopic removes the topic and detaches every subscriber, sending each a
// best-effort deletion notification first. A failing notification is logged
// and never aborts the deletion. Allowed in any state to support draining.
func (b *Broker) DeleteTopic(ctx context.Context, name string) error {
	b.mu.Lock()
	topic, ok := b.topics[name]
	if ok {
		delete(b.topics, name)
	}
	remaining := len(b.topics)
	b.mu.Unlock()

	if !ok {
		return ErrTopicNotFound
	}

	subs := topic.close()
	n := Notification{Kind: NotifyTopicDeleted, Topic: name}
	for _, sub := range subs {
		if err := sub.notify(ctx, n); err != nil {
			b.logger.Error("failed to notify subscriber of topic deletion",
				slog.String("topic", name),
				slog.String("client_id", sub.ClientID()),
				slog.Any("error", err))
		}
		sub.Deactivate()
	}

	b.logger.Info("topic deleted",
		slog.String("topic", name),
		slog.Int("detached_subscribers", len(subs)),
		slog.Int("topics", remaining))
	return nil
}

// Subscribe registers a new subscriber on the topic and, when lastN > 0,
// returns a history snapshot for replay before live delivery begins. The
// subscriber is registered before the snapshot is taken, so a message
// published concurrently may appear in both the snapshot and the live queue
// (boundary duplicate) but is never lost.
func (b *Broker) Subscribe(topicName, clientID string, handle Notifier, lastN int) (*Subscriber, []HistoryEntry, error) {
	b.mu.RLock()
	if b.state != StateRunning {
		b.mu.RUnlock()
		return nil, nil, ErrShuttingDown
	}
	topic, ok := b.topics[topicName]
	b.mu.RUnlock()

	if !ok {
		return nil, nil, ErrTopicNotFound
	}

	sub := newSubscriber(clientID, handle, b.cfg.QueueSize, b.logger)
	if err := topic.AddSubscriber(sub); err != nil {
		return nil, nil, err
	}

	// A shutdown may have run its detach pass between the state check above
	// and the registration. Re-check so no subscriber outlives the Stopped
	// transition.
	b.mu.RLock()
	running := b.state == StateRunning
	b.mu.RUnlock()
	if !running {
		topic.removeExact(sub)
		sub.Deactivate()
		return nil, nil, ErrShuttingDown
	}

	var history []HistoryEntry
	if lastN > 0 {
		history = topic.History(lastN)
	}
	return sub, history, nil
}

// Unsubscribe deactivates and removes the subscriber. Allowed while shutting
// down. Returns ErrTopicNotFound or ErrSubscriberNotFound on absence.
func (b *Broker) Unsubscribe(topicName, clientID string) error {
	b.mu.RLock()
	topic, ok := b.topics[topicName]
	b.mu.RUnlock()

	if !ok {
		return ErrTopicNotFound
	}
	if !topic.RemoveSubscriber(clientID) {
		return ErrSubscriberNotFound
	}
	return nil
}

// Publish delivers the message to every active subscriber of the topic and
// returns the delivered count. Publishing to a topic with no subscribers
// still appends to history and counts the message.
func (b *Broker) Publish(topicName string, msg Message) (int, error) {
	b.mu.RLock()
	if b.state != StateRunning {
		b.mu.RUnlock()
		return 0, ErrShuttingDown
	}
	topic, ok := b.topics[topicName]
	b.mu.RUnlock()

	if !ok {
		return 0, ErrTopicNotFound
	}
	return topic.Publish(msg)
}

// ListTopics returns a snapshot of all topics with their subscriber counts.
// Allowed in any state.
func (b *Broker) ListTopics() []TopicInfo {
	topics := b.snapshotTopics()
	infos := make([]TopicInfo, 0, len(topics))
	for _, topic := range topics {
		infos = append(infos, TopicInfo{
			Name:        topic.Name(),
			Subscribers: topic.SubscriberCount(),
		})
	}
	return infos
}

// Stats returns per-topic message and subscriber counts. Allowed in any state.
func (b *Broker) Stats() map[string]TopicStats {
	topics := b.snapshotTopics()
	stats := make(map[string]TopicStats, len(topics))
	for _, topic := range topics {
		stats[topic.Name()] = TopicStats{
			Messages:    topic.MessageCount(),
			Subscribers: topic.SubscriberCount(),
		}
	}
	return stats
}

// Uptime returns how long the broker has been running.
func (b *Broker) Uptime() time.Duration {
	return time.Since(b.startTime)
}

// TopicCount returns the number of live topics.
func (b *Broker) TopicCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics)
}

// TotalSubscribers returns the subscriber count across all topics.
func (b *Broker) TotalSubscribers() int {
	total := 0
	for _, topic := range b.snapshotTopics() {
		total += topic.SubscriberCount()
	}
	return total
}

// IsShuttingDown reports whether shutdown has been initiated.
func (b *Broker) IsShuttingDown() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state != StateRunning
}

// InitiateShutdown transitions Running -> ShuttingDown. Idempotent. From this
// point create, subscribe, and publish are rejected while reads and teardown
// keep working.
func (b *Broker) InitiateShutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateRunning {
		return
	}
	b.state = StateShuttingDown
	b.logger.Info("shutdown initiated",
		slog.Int("topics", len(b.topics)))
}

// Shutdown drains the broker: it stops accepting mutating operations,
// notifies every subscriber concurrently (best effort), waits the configured
// grace period for in-flight deliveries, then detaches every subscriber and
// transitions to Stopped. Safe to call more than once.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.InitiateShutdown()

	topics := b.snapshotTopics()

	var wg sync.WaitGroup
	notified := 0
	for _, topic := range topics {
		n := Notification{Kind: NotifyServerShutdown, Topic: topic.Name()}
		for _, sub := range topic.snapshotSubscribers() {
			notified++
			wg.Add(1)
			go func(sub *Subscriber) {
				defer wg.Done()
				if err := sub.notify(ctx, n); err != nil {
					b.logger.Error("failed to notify subscriber of shutdown",
						slog.String("topic", n.Topic),
						slog.String("client_id", sub.ClientID()),
						slog.Any("error", err))
				}
			}(sub)
		}
	}
	wg.Wait()

	if notified > 0 {
		b.logger.Info("notified subscribers of shutdown",
			slog.Int("subscribers", notified))
	}

	// Grace window for delivery loops to flush queued entries.
	if b.cfg.ShutdownGrace > 0 && notified > 0 {
		select {
		case <-time.After(b.cfg.ShutdownGrace):
		case <-ctx.Done():
		}
	}

	detached := 0
	for _, topic := range topics {
		for _, sub := range topic.detachAll() {
			sub.Deactivate()
			detached++
		}
	}

	b.mu.Lock()
	b.state = StateStopped
	b.mu.Unlock()

	b.logger.Info("shutdown complete",
		slog.Int("detached_subscribers", detached))
	return ctx.Err()
}

func (b *Broker) snapshotTopics() []*Topic {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make([]*Topic, 0, len(b.topics))
	for _, topic := range b.topics {
		topics = append(topics, topic)
	}
	return topics
}
