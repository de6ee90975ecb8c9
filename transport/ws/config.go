package ws

import "time"

// Config holds WebSocket transport configuration with environment variable
// support.
type Config struct {
	// PingInterval is how often the server pings each connection.
	// Zero disables server-side keepalive.
	PingInterval time.Duration `env:"PUBSUB_WS_PING_INTERVAL" envDefault:"30s"`

	// PongTimeout is how long to wait for a pong before the read deadline
	// expires.
	PongTimeout time.Duration `env:"PUBSUB_WS_PING_TIMEOUT" envDefault:"10s"`

	// WriteTimeout bounds every outbound frame write.
	WriteTimeout time.Duration `env:"PUBSUB_WS_WRITE_TIMEOUT" envDefault:"10s"`

	// Buffer sizes for the connection upgrader.
	ReadBufferSize  int `env:"PUBSUB_WS_READ_BUFFER" envDefault:"1024"`
	WriteBufferSize int `env:"PUBSUB_WS_WRITE_BUFFER" envDefault:"1024"`
}

// DefaultConfig returns sensible defaults for production use.
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		PongTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
