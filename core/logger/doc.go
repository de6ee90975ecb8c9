// Package logger builds slog loggers from environment-driven configuration
// and provides attribute helpers for consistent structured logging.
//
// The attribute helpers use the empty Attr pattern for nil safety, so calls
// like log.Info("msg", logger.Error(err)) need no explicit nil checks.
//
// Example:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.NewFromConfig(cfg)
//	log.Info("broker ready", logger.Component("broker"))
package logger
