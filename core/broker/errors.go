package broker

import "errors"

var (
	// ErrTopicNotFound is returned when an operation references an unknown topic.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrTopicAlreadyExists is returned when creating a topic whose name is taken.
	ErrTopicAlreadyExists = errors.New("topic already exists")

	// ErrShuttingDown is returned when a mutating operation is rejected after
	// shutdown has been initiated.
	ErrShuttingDown = errors.New("broker is shutting down")

	// ErrSubscriberNotFound is returned when unsubscribing a client that is not
	// registered on the topic.
	ErrSubscriberNotFound = errors.New("subscriber not found")

	// ErrSubscriberClosed is returned by Dequeue after the subscriber has been
	// deactivated.
	ErrSubscriberClosed = errors.New("subscriber is closed")
)
