// Package brokers defines the message broker contract used to hand trigger
// events from the dispatcher to the resolution workers. Implementations
// exist for RabbitMQ, Redis Streams and an in-process memory queue.
package brokers

import (
	"context"
	"time"
)

// Broker is the queue transport between trigger dispatch and resolution.
type Broker interface {
	// Name returns the broker implementation name.
	Name() string
	// Publish enqueues a message. Delivery is at-least-once; callers must
	// tolerate duplicates.
	Publish(ctx context.Context, message *Message) error
	// Subscribe consumes messages from the given queue until the context
	// is cancelled. A handler error leaves the message unacknowledged
	// where the transport supports it; it is never redelivered by us.
	Subscribe(ctx context.Context, queue string, handler MessageHandler) error
	Health() error
	Close() error
}

// Config is the broker-specific configuration contract.
type Config interface {
	Validate() error
	GetType() string
}

// Message is one queued trigger event envelope.
type Message struct {
	Queue     string
	Body      []byte
	MessageID string
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes one delivered message.
type MessageHandler func(ctx context.Context, message *Message) error
