package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrNilConfig is returned when Load is called with a nil pointer.
var ErrNilConfig = errors.New("config target must not be nil")

var (
	cache   sync.Map // reflect.Type -> loaded value
	envOnce sync.Once
)

// Load parses environment variables into cfg. The first call for a given type
// parses the environment; subsequent calls return the cached value. A missing
// .env file is not an error.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	envOnce.Do(func() {
		// Best effort: environment variables win over .env contents either way.
		_ = godotenv.Load()
	})

	typ := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(typ); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to load config %s: %w", typ, err)
	}

	// Another goroutine may have won the race; keep whichever landed first.
	actual, _ := cache.LoadOrStore(typ, *cfg)
	*cfg = actual.(T)
	return nil
}

// MustLoad is like Load but panics on failure. Useful during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
