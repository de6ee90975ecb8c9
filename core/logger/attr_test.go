package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pubsub/core/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("nil error yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Error(nil))
	})

	t.Run("non-nil error", func(t *testing.T) {
		t.Parallel()
		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
		assert.Equal(t, "boom", attr.Value.Any().(error).Error())
	})
}

func TestErrors(t *testing.T) {
	t.Parallel()

	t.Run("all nil yields empty attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
	})

	t.Run("keeps order with index keys", func(t *testing.T) {
		t.Parallel()
		attr := logger.Errors(errors.New("first"), nil, errors.New("third"))
		assert.Equal(t, "errors", attr.Key)

		group := attr.Value.Group()
		assert.Len(t, group, 2)
		assert.Equal(t, "0", group[0].Key)
		assert.Equal(t, "2", group[1].Key)
	})
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.String("component", "broker"), logger.Component("broker"))
	assert.Equal(t, slog.String("topic", "orders"), logger.Topic("orders"))
	assert.Equal(t, slog.String("client_id", "A"), logger.ClientID("A"))
	assert.Equal(t, slog.Attr{}, logger.ClientID(""))
	assert.Equal(t, slog.Int("dropped", 3), logger.Count("dropped", 3))
	assert.Equal(t, slog.Duration("duration", time.Second), logger.Duration(time.Second))
	assert.Equal(t, slog.Attr{}, logger.ID("message_id", nil))
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("debug level enables debug records", func(t *testing.T) {
		t.Parallel()
		log := logger.NewFromConfig(logger.Config{Level: "debug", Format: "text"})
		assert.True(t, log.Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		t.Parallel()
		log := logger.NewFromConfig(logger.Config{Level: "bogus", Format: "json"})
		assert.False(t, log.Enabled(t.Context(), slog.LevelDebug))
		assert.True(t, log.Enabled(t.Context(), slog.LevelInfo))
	})
}
