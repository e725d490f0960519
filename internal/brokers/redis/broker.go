// Package redis provides the Redis Streams implementation of the trigger
// queue. Each queue maps to one stream consumed through a consumer group,
// so multiple worker processes share the load.
package redis

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"daisychain/internal/brokers"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
)

// Config holds Redis broker configuration.
type Config struct {
	Address       string
	Password      string
	DB            int
	ConsumerGroup string
	// StreamMaxLen caps stream length via approximate trimming. Zero
	// disables trimming.
	StreamMaxLen int64
}

func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.ConfigError("Redis address cannot be empty")
	}
	if c.DB < 0 {
		return errors.ConfigError("Redis DB cannot be negative")
	}
	return nil
}

func (c *Config) GetType() string { return "redis" }

// Broker implements brokers.Broker over Redis Streams.
type Broker struct {
	config *Config
	logger logging.Logger
	client *redis.Client
}

// NewBroker connects to Redis and verifies the connection.
func NewBroker(config *Config) (*Broker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "daisychain-workers"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.ConnectionError("failed to connect to Redis", err)
	}

	return &Broker{
		config: config,
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "broker", Value: "redis"}),
		client: client,
	}, nil
}

func (b *Broker) Name() string { return "redis" }

// Publish appends the message to the stream named after its queue.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if b.client == nil {
		return errors.ConnectionError("Redis broker not connected", nil)
	}

	values := map[string]interface{}{
		"body":       string(message.Body),
		"message_id": message.MessageID,
		"timestamp":  message.Timestamp.UnixNano(),
	}
	for key, value := range message.Headers {
		values["header_"+key] = value
	}

	args := &redis.XAddArgs{
		Stream: message.Queue,
		Values: values,
	}
	if b.config.StreamMaxLen > 0 {
		args.MaxLen = b.config.StreamMaxLen
		args.Approx = true
	}

	if err := b.client.XAdd(ctx, args).Err(); err != nil {
		return errors.ConnectionError("failed to add message to stream", err)
	}

	return nil
}

func (b *Broker) ensureGroup(ctx context.Context, stream string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, b.config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.ConnectionError("failed to create consumer group", err)
	}
	return nil
}

// Subscribe reads the stream through the consumer group until the context is
// cancelled. Successfully handled entries are acknowledged; failed ones stay
// in the pending list for inspection.
func (b *Broker) Subscribe(ctx context.Context, queue string, handler brokers.MessageHandler) error {
	if b.client == nil {
		return errors.ConnectionError("Redis broker not connected", nil)
	}

	if err := b.ensureGroup(ctx, queue); err != nil {
		return err
	}

	consumer := "consumer-" + queue

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}

			streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
				Group:    b.config.ConsumerGroup,
				Consumer: consumer,
				Streams:  []string{queue, ">"},
				Count:    10,
				Block:    time.Second,
			}).Result()
			if err != nil {
				if err == redis.Nil || ctx.Err() != nil {
					continue
				}
				b.logger.Warn("stream read failed",
					logging.Field{Key: "stream", Value: queue},
					logging.Err(err))
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}

			for _, stream := range streams {
				for _, entry := range stream.Messages {
					message := entryToMessage(queue, entry)
					if err := handler(ctx, message); err != nil {
						b.logger.Warn("message handler failed",
							logging.Field{Key: "stream", Value: queue},
							logging.Field{Key: "message_id", Value: message.MessageID},
							logging.Err(err))
						continue
					}
					b.client.XAck(ctx, queue, b.config.ConsumerGroup, entry.ID)
				}
			}
		}
	}()

	return nil
}

func entryToMessage(queue string, entry redis.XMessage) *brokers.Message {
	message := &brokers.Message{
		Queue:     queue,
		MessageID: entry.ID,
	}

	var headers map[string]string
	for key, value := range entry.Values {
		text, ok := value.(string)
		if !ok {
			continue
		}
		switch {
		case key == "body":
			message.Body = []byte(text)
		case key == "message_id" && text != "":
			message.MessageID = text
		case strings.HasPrefix(key, "header_"):
			if headers == nil {
				headers = make(map[string]string)
			}
			headers[strings.TrimPrefix(key, "header_")] = text
		}
	}
	message.Headers = headers

	return message
}

func (b *Broker) Health() error {
	if b.client == nil {
		return errors.ConnectionError("Redis broker not connected", nil)
	}
	return b.client.Ping(context.Background()).Err()
}

func (b *Broker) Close() error {
	if b.client != nil {
		return b.client.Close()
	}
	return nil
}

// Factory creates Redis brokers.
type Factory struct{}

func (f *Factory) Create(config brokers.Config) (brokers.Broker, error) {
	redisConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ConfigError("invalid config type for Redis broker")
	}
	return NewBroker(redisConfig)
}

func (f *Factory) GetType() string { return "redis" }

func init() {
	brokers.Register("redis", &Factory{})
}
