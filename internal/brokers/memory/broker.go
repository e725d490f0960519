// Package memory provides an in-process broker for single-binary
// deployments and tests. Subscribers on a queue are competing consumers
// over one buffered channel; nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"daisychain/internal/brokers"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
)

// Config holds memory broker configuration.
type Config struct {
	// BufferSize is the per-queue channel capacity. Publish blocks once
	// the buffer is full.
	BufferSize int
}

func (c *Config) Validate() error {
	if c.BufferSize < 0 {
		return errors.ConfigError("buffer size cannot be negative")
	}
	return nil
}

func (c *Config) GetType() string { return "memory" }

// Broker implements brokers.Broker with in-process channels.
type Broker struct {
	config *Config
	logger logging.Logger

	mu     sync.Mutex
	queues map[string]chan *brokers.Message
	closed bool
	wg     sync.WaitGroup
}

// NewBroker creates a memory broker.
func NewBroker(config *Config) (*Broker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.BufferSize == 0 {
		config.BufferSize = 256
	}

	return &Broker{
		config: config,
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "broker", Value: "memory"}),
		queues: make(map[string]chan *brokers.Message),
	}, nil
}

func (b *Broker) Name() string { return "memory" }

func (b *Broker) queue(name string) (chan *brokers.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.ConnectionError("memory broker is closed", nil)
	}

	ch, exists := b.queues[name]
	if !exists {
		ch = make(chan *brokers.Message, b.config.BufferSize)
		b.queues[name] = ch
	}
	return ch, nil
}

// Publish enqueues the message onto its queue's channel.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	ch, err := b.queue(message.Queue)
	if err != nil {
		return err
	}

	select {
	case ch <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe consumes the queue in a background goroutine until the context
// is cancelled. Handler errors are logged and the message is dropped.
func (b *Broker) Subscribe(ctx context.Context, queue string, handler brokers.MessageHandler) error {
	ch, err := b.queue(queue)
	if err != nil {
		return err
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case message, ok := <-ch:
				if !ok {
					return
				}
				if err := handler(ctx, message); err != nil {
					b.logger.Warn("message handler failed",
						logging.Field{Key: "queue", Value: queue},
						logging.Field{Key: "message_id", Value: message.MessageID},
						logging.Err(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (b *Broker) Health() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.ConnectionError("memory broker is closed", nil)
	}
	return nil
}

// Close stops all subscriptions. Queued messages are discarded.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for _, ch := range b.queues {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// Factory creates memory brokers.
type Factory struct{}

func (f *Factory) Create(config brokers.Config) (brokers.Broker, error) {
	memConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ConfigError("invalid config type for memory broker")
	}
	return NewBroker(memConfig)
}

func (f *Factory) GetType() string { return "memory" }

func init() {
	brokers.Register("memory", &Factory{})
}
