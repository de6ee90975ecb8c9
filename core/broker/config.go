package broker

import "time"

// Config holds broker tuning parameters with environment variable support.
type Config struct {
	// QueueSize bounds each subscriber's outbound queue. When the queue is
	// full the oldest entry is evicted to admit the newest.
	QueueSize int `env:"PUBSUB_MAX_QUEUE_SIZE" envDefault:"100"`

	// HistorySize bounds the per-topic replay buffer. Oldest entries are
	// evicted first.
	HistorySize int `env:"PUBSUB_HISTORY_SIZE" envDefault:"100"`

	// ShutdownGrace is how long Shutdown waits for in-flight deliveries to
	// drain after subscribers have been notified.
	ShutdownGrace time.Duration `env:"PUBSUB_SHUTDOWN_GRACE" envDefault:"2s"`
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		QueueSize:     DefaultQueueSize,
		HistorySize:   DefaultHistorySize,
		ShutdownGrace: DefaultShutdownGrace,
	}
}

const (
	// DefaultQueueSize is the default per-subscriber queue capacity.
	DefaultQueueSize = 100

	// DefaultHistorySize is the default per-topic history capacity.
	DefaultHistorySize = 100

	// DefaultShutdownGrace is the default drain window during shutdown.
	DefaultShutdownGrace = 2 * time.Second
)
