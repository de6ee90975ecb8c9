package logger

import (
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration with environment variable support.
type Config struct {
	// Level is the minimum record level: debug, info, warn, or error.
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format selects the handler: text or json.
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// New creates a text logger writing to stdout at info level.
func New() *slog.Logger {
	return NewFromConfig(Config{Level: "info", Format: "text"})
}

// NewFromConfig creates a logger from configuration. Unknown values fall back
// to info level and the text handler.
func NewFromConfig(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
