// Package broker implements an in-memory publish/subscribe engine with named
// topics, per-subscriber bounded queues, bounded history replay, and a one-way
// graceful shutdown lifecycle.
//
// The broker owns a registry of topics; each topic owns its subscribers and a
// circular history buffer behind its own lock, so traffic on one topic never
// contends with another. The broker lock protects only the topic registry and
// is never held across topic-level operations.
//
// Publishing is non-blocking for producers: when a subscriber's queue is full,
// the oldest queued entry is evicted to admit the newest (drop-oldest
// backpressure). Drops are counted and logged, never surfaced to publishers.
//
// The package performs no I/O. Deletion and shutdown notifications are handed
// to an opaque per-subscriber Notifier supplied by the transport layer.
//
// Example:
//
//	b := broker.New(
//	    broker.WithQueueSize(100),
//	    broker.WithHistorySize(100),
//	    broker.WithLogger(logger),
//	)
//
//	if err := b.CreateTopic("orders"); err != nil {
//	    log.Fatal(err)
//	}
//
//	sub, history, err := b.Subscribe("orders", "client-1", handle, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    for {
//	        d, err := sub.Dequeue(ctx)
//	        if err != nil {
//	            return
//	        }
//	        forward(d)
//	    }
//	}()
package broker
