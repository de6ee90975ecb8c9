// Package ws exposes the broker over a bidirectional WebSocket stream.
//
// Clients exchange JSON envelopes on a single connection: subscribe,
// unsubscribe, publish, and ping requests flow in; ack, event, error, pong,
// and info frames flow out. Each subscription gets its own delivery goroutine
// draining the subscriber queue, so a slow topic never blocks the read loop.
//
// The package owns everything the broker core does not: connection lifecycle,
// envelope validation (including UUID message ids), periodic keepalive pings,
// and mapping broker sentinel errors to protocol error codes.
package ws
