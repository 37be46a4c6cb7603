// Package messaging defines the queue abstraction used to decouple event
// producers from the dispatcher.  The core ships an in-memory implementation;
// the interface keeps the door open for external brokers.
package messaging

import (
	"context"
)

// Queue is an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with the given payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or the context ends.
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a unit of work retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing.
	Ack() error

	// Nack reports a processing failure; the queue may redeliver.
	Nack(err error) error
}
