// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls, so every component observes the same values.
//
// The package automatically loads .env files on first use and uses the
// caarlos0/env library for parsing environment variables into struct fields.
//
// Basic usage:
//
//	import "github.com/dmitrymomot/pubsub/core/config"
//
//	type BrokerConfig struct {
//		QueueSize   int `env:"PUBSUB_MAX_QUEUE_SIZE" envDefault:"100"`
//		HistorySize int `env:"PUBSUB_HISTORY_SIZE" envDefault:"100"`
//	}
//
//	func main() {
//		var cfg BrokerConfig
//
//		// Load with error handling
//		if err := config.Load(&cfg); err != nil {
//			log.Fatal(err)
//		}
//
//		// Or panic on failure (useful for startup)
//		config.MustLoad(&cfg)
//	}
//
// # Caching Behavior
//
// Each configuration type is loaded only once per application lifetime;
// subsequent Load calls for the same type return the cached value. Different
// types are cached independently.
package config
