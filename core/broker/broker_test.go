package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmitrymomot/pubsub/core/broker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// captureNotifier records notifications and can be told to fail.
type captureNotifier struct {
	mu            sync.Mutex
	notifications []broker.Notification
	err           error
}

func (n *captureNotifier) Notify(_ context.Context, notification broker.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return n.err
}

func (n *captureNotifier) all() []broker.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]broker.Notification(nil), n.notifications...)
}

func msg(id string) broker.Message {
	return broker.Message{ID: id, Payload: json.RawMessage(`{"n":1}`)}
}

func TestBroker_CreateTopic(t *testing.T) {
	t.Parallel()

	t.Run("creates a new topic", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		assert.Equal(t, 1, b.TopicCount())
	})

	t.Run("duplicate name fails without touching existing state", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		_, err := b.Publish("orders", msg(uuid.NewString()))
		require.NoError(t, err)

		err = b.CreateTopic("orders")
		require.ErrorIs(t, err, broker.ErrTopicAlreadyExists)
		assert.Equal(t, 1, b.TopicCount())
		assert.Equal(t, uint64(1), b.Stats()["orders"].Messages)
	})

	t.Run("rejected after shutdown initiated", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		b.InitiateShutdown()
		require.ErrorIs(t, b.CreateTopic("orders"), broker.ErrShuttingDown)
	})
}

func TestBroker_DeleteTopic(t *testing.T) {
	t.Parallel()

	t.Run("missing topic fails", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.ErrorIs(t, b.DeleteTopic(context.Background(), "missing"), broker.ErrTopicNotFound)
	})

	t.Run("notifies each subscriber exactly once and detaches them", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		notifiers := make([]*captureNotifier, 3)
		for i := range notifiers {
			notifiers[i] = &captureNotifier{}
			_, _, err := b.Subscribe("orders", fmt.Sprintf("client-%d", i), notifiers[i], 0)
			require.NoError(t, err)
		}

		require.NoError(t, b.DeleteTopic(context.Background(), "orders"))

		for _, n := range notifiers {
			got := n.all()
			require.Len(t, got, 1)
			assert.Equal(t, broker.NotifyTopicDeleted, got[0].Kind)
			assert.Equal(t, "orders", got[0].Topic)
		}
		assert.Empty(t, b.ListTopics())
		assert.Zero(t, b.TotalSubscribers())
	})

	t.Run("failing notification never aborts the deletion", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		bad := &captureNotifier{err: errors.New("connection reset")}
		good := &captureNotifier{}
		_, _, err := b.Subscribe("orders", "bad", bad, 0)
		require.NoError(t, err)
		_, _, err = b.Subscribe("orders", "good", good, 0)
		require.NoError(t, err)

		require.NoError(t, b.DeleteTopic(context.Background(), "orders"))
		assert.Len(t, good.all(), 1)
		assert.Zero(t, b.TopicCount())
	})

	t.Run("allowed while shutting down", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		b.InitiateShutdown()
		require.NoError(t, b.DeleteTopic(context.Background(), "orders"))
	})

	t.Run("deactivated subscriber unblocks its consumer", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		sub, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)

		errCh := make(chan error, 1)
		go func() {
			_, err := sub.Dequeue(context.Background())
			errCh <- err
		}()

		require.NoError(t, b.DeleteTopic(context.Background(), "orders"))

		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, broker.ErrSubscriberClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("consumer did not unblock after topic deletion")
		}
	})
}

func TestBroker_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("missing topic fails with no state mutation", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		sub, history, err := b.Subscribe("missing", "a", nil, 5)
		require.ErrorIs(t, err, broker.ErrTopicNotFound)
		assert.Nil(t, sub)
		assert.Nil(t, history)
		assert.Zero(t, b.TopicCount())
		assert.Zero(t, b.TotalSubscribers())
	})

	t.Run("returns most recent history oldest first", func(t *testing.T) {
		t.Parallel()

		b := broker.New(broker.WithHistorySize(3))
		require.NoError(t, b.CreateTopic("orders"))
		for i := 1; i <= 5; i++ {
			_, err := b.Publish("orders", msg(fmt.Sprintf("m%d", i)))
			require.NoError(t, err)
		}

		sub, history, err := b.Subscribe("orders", "a", nil, 10)
		require.NoError(t, err)
		defer sub.Deactivate()

		require.Len(t, history, 3)
		assert.Equal(t, "m3", history[0].Message.ID)
		assert.Equal(t, "m4", history[1].Message.ID)
		assert.Equal(t, "m5", history[2].Message.ID)
	})

	t.Run("identical reads with no intervening publish", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		for i := 1; i <= 3; i++ {
			_, err := b.Publish("orders", msg(fmt.Sprintf("m%d", i)))
			require.NoError(t, err)
		}

		s1, h1, err := b.Subscribe("orders", "a", nil, 3)
		require.NoError(t, err)
		defer s1.Deactivate()
		s2, h2, err := b.Subscribe("orders", "b", nil, 3)
		require.NoError(t, err)
		defer s2.Deactivate()

		// The second subscriber's snapshot additionally reflects nothing new.
		require.Len(t, h1, 3)
		assert.Equal(t, h1, h2)
	})

	t.Run("zero last_n skips replay", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		_, err := b.Publish("orders", msg("m1"))
		require.NoError(t, err)

		sub, history, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)
		defer sub.Deactivate()
		assert.Empty(t, history)
	})

	t.Run("duplicate client id replaces prior subscriber", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		old, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)
		replacement, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)
		defer replacement.Deactivate()

		assert.False(t, old.Active())
		assert.True(t, replacement.Active())
		assert.Equal(t, 1, b.TotalSubscribers())

		delivered, err := b.Publish("orders", msg(uuid.NewString()))
		require.NoError(t, err)
		assert.Equal(t, 1, delivered)

		d, err := replacement.Dequeue(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "orders", d.Topic)
	})

	t.Run("rejected after shutdown initiated", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		b.InitiateShutdown()

		_, _, err := b.Subscribe("orders", "a", nil, 0)
		require.ErrorIs(t, err, broker.ErrShuttingDown)
	})
}

func TestBroker_Unsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("removes and deactivates the subscriber", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		sub, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)

		require.NoError(t, b.Unsubscribe("orders", "a"))
		assert.False(t, sub.Active())
		assert.Zero(t, b.TotalSubscribers())
	})

	t.Run("missing topic or subscriber fails", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.ErrorIs(t, b.Unsubscribe("missing", "a"), broker.ErrTopicNotFound)

		require.NoError(t, b.CreateTopic("orders"))
		require.ErrorIs(t, b.Unsubscribe("orders", "ghost"), broker.ErrSubscriberNotFound)
	})

	t.Run("allowed while shutting down", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		_, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)

		b.InitiateShutdown()
		require.NoError(t, b.Unsubscribe("orders", "a"))
	})
}

func TestBroker_Publish(t *testing.T) {
	t.Parallel()

	t.Run("missing topic fails", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		_, err := b.Publish("missing", msg(uuid.NewString()))
		require.ErrorIs(t, err, broker.ErrTopicNotFound)
	})

	t.Run("zero subscribers still counts and retains the message", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		delivered, err := b.Publish("orders", msg("m1"))
		require.NoError(t, err)
		assert.Zero(t, delivered)

		stats := b.Stats()["orders"]
		assert.Equal(t, uint64(1), stats.Messages)
		assert.Zero(t, stats.Subscribers)

		sub, history, err := b.Subscribe("orders", "a", nil, 1)
		require.NoError(t, err)
		defer sub.Deactivate()
		require.Len(t, history, 1)
		assert.Equal(t, "m1", history[0].Message.ID)
	})

	t.Run("delivers to every active subscriber in publish order", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))

		s1, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)
		defer s1.Deactivate()
		s2, _, err := b.Subscribe("orders", "b", nil, 0)
		require.NoError(t, err)
		defer s2.Deactivate()

		for i := 1; i <= 3; i++ {
			delivered, err := b.Publish("orders", msg(fmt.Sprintf("m%d", i)))
			require.NoError(t, err)
			assert.Equal(t, 2, delivered)
		}

		for _, sub := range []*broker.Subscriber{s1, s2} {
			for i := 1; i <= 3; i++ {
				d, err := sub.Dequeue(context.Background())
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("m%d", i), d.Message.ID)
				assert.Equal(t, "orders", d.Topic)
			}
		}
	})

	t.Run("rejected after shutdown initiated", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		b.InitiateShutdown()

		_, err := b.Publish("orders", msg(uuid.NewString()))
		require.ErrorIs(t, err, broker.ErrShuttingDown)
	})
}

func TestBroker_Observability(t *testing.T) {
	t.Parallel()

	t.Run("list topics and stats snapshot", func(t *testing.T) {
		t.Parallel()

		b := broker.New()
		require.NoError(t, b.CreateTopic("orders"))
		require.NoError(t, b.CreateTopic("payments"))

		sub, _, err := b.Subscribe("orders", "a", nil, 0)
		require.NoError(t, err)
		defer sub.Deactivate()

		for i := 0; i < 3; i++ {
			_, err := b.Publish("orders", msg(uuid.NewString()))
			require.NoError(t, err)
		}

		topics := b.ListTopics()
		require.Len(t, topics, 2)
		byName := map[string]int{}
		for _, info := range topics {
			byName[info.Name] = info.Subscribers
		}
		assert.Equal(t, 1, byName["orders"])
		assert.Equal(t, 0, byName["payments"])

		stats := b.Stats()
		assert.Equal(t, broker.TopicStats{Messages: 3, Subscribers: 1}, stats["orders"])
		assert.Equal(t, broker.TopicStats{Messages: 0, Subscribers: 0}, stats["payments"])
		assert.Equal(t, 1, b.TotalSubscribers())
		assert.GreaterOrEqual(t, b.Uptime(), time.Duration(0))
	})
}
