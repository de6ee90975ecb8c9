package broker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscriber holds the delivery state for a single client on one topic: a
// bounded outbound queue and an activity flag. It is created by Subscribe and
// destroyed by unsubscribe, topic deletion, or broker shutdown.
//
// Safe for concurrent use: the topic serializes enqueues under its lock while
// the transport's delivery loop drains the queue concurrently.
type Subscriber struct {
	clientID string
	handle   Notifier
	queue    chan Delivery
	done     chan struct{}
	once     sync.Once
	dropped  atomic.Int64
	logger   *slog.Logger
}

func newSubscriber(clientID string, handle Notifier, queueSize int, logger *slog.Logger) *Subscriber {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Subscriber{
		clientID: clientID,
		handle:   handle,
		queue:    make(chan Delivery, queueSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// ClientID returns the client identifier this subscriber was registered under.
func (s *Subscriber) ClientID() string {
	return s.clientID
}

// Active reports whether the subscriber can still receive deliveries.
func (s *Subscriber) Active() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Dropped returns the number of queued entries evicted under backpressure.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// enqueue appends a delivery without blocking. When the queue is full the
// oldest queued entry is evicted to admit the new one, favoring freshness
// over completeness for slow consumers. Returns false only when the
// subscriber is inactive or the evicted slot could not be reclaimed.
//
// Callers must hold the topic lock, which serializes producers; the consumer
// side may drain concurrently.
func (s *Subscriber) enqueue(d Delivery) bool {
	if !s.Active() {
		return false
	}

	select {
	case s.queue <- d:
		return true
	default:
	}

	// Queue full: evict the oldest entry, then retry the append. The consumer
	// may have freed a slot in the meantime, in which case nothing is evicted.
	select {
	case <-s.queue:
		s.dropped.Add(1)
		s.logger.Warn("subscriber queue full, dropped oldest message",
			slog.String("client_id", s.clientID),
			slog.String("topic", d.Topic),
			slog.Int64("dropped_total", s.dropped.Load()))
	default:
	}

	select {
	case s.queue <- d:
		return true
	default:
		// Unreachable while producers are serialized; treated as an internal
		// resource error.
		s.dropped.Add(1)
		return false
	}
}

// Dequeue blocks until an entry is available, the subscriber is deactivated,
// or ctx is canceled. After deactivation it keeps returning already-queued
// entries until the queue is empty, then ErrSubscriberClosed.
func (s *Subscriber) Dequeue(ctx context.Context) (Delivery, error) {
	// Prefer draining queued entries over observing deactivation so a
	// deactivated subscriber's consumer sees everything delivered before the
	// cutoff.
	select {
	case d := <-s.queue:
		return d, nil
	default:
	}

	select {
	case d := <-s.queue:
		return d, nil
	case <-s.done:
		return Delivery{}, ErrSubscriberClosed
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	}
}

// Deactivate marks the subscriber inactive and wakes any consumer blocked in
// Dequeue. Idempotent.
func (s *Subscriber) Deactivate() {
	s.once.Do(func() {
		close(s.done)
	})
}

// notify forwards an out-of-band notification through the transport handle.
// Best effort: errors are returned for logging but never acted on.
func (s *Subscriber) notify(ctx context.Context, n Notification) error {
	if s.handle == nil {
		return nil
	}
	return s.handle.Notify(ctx, n)
}
