// Package server provides an HTTP server wrapper with graceful shutdown,
// configurable options, and production-ready default timeouts.
//
// # Basic Usage
//
// Create and run a server with default configuration:
//
//	import (
//		"context"
//		"net/http"
//
//		"github.com/dmitrymomot/pubsub/core/server"
//	)
//
//	func main() {
//		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//			w.Write([]byte("Hello, World!"))
//		})
//
//		ctx := context.Background()
//		if err := server.Run(ctx, ":8080", handler); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// # Coordinated Lifecycle
//
// Run on a Server value returns an errgroup-compatible closure that starts
// the server and shuts it down gracefully when the context is canceled:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, mux))
//	if err := g.Wait(); err != nil {
//		log.Fatal(err)
//	}
package server
