// Package rabbitmq provides the AMQP implementation of the trigger queue.
// Queues are durable; deliveries are acknowledged after the handler runs.
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"daisychain/internal/brokers"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
)

// Config holds RabbitMQ broker configuration.
type Config struct {
	URL string
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.ConfigError("RabbitMQ URL cannot be empty")
	}
	return nil
}

func (c *Config) GetType() string { return "rabbitmq" }

// Broker implements brokers.Broker over AMQP.
type Broker struct {
	config  *Config
	logger  logging.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewBroker connects to RabbitMQ and opens a channel.
func NewBroker(config *Config) (*Broker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, errors.ConnectionError("failed to connect to RabbitMQ", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.ConnectionError("failed to open RabbitMQ channel", err)
	}

	return &Broker{
		config:  config,
		logger:  logging.GetGlobalLogger().WithFields(logging.Field{Key: "broker", Value: "rabbitmq"}),
		conn:    conn,
		channel: channel,
	}, nil
}

func (b *Broker) Name() string { return "rabbitmq" }

func (b *Broker) declareQueue(name string) error {
	_, err := b.channel.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return errors.ConnectionError(fmt.Sprintf("failed to declare queue %s", name), err)
	}
	return nil
}

// Publish sends the message to its queue with persistent delivery mode.
func (b *Broker) Publish(ctx context.Context, message *brokers.Message) error {
	if b.channel == nil {
		return errors.ConnectionError("RabbitMQ broker not connected", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.declareQueue(message.Queue); err != nil {
		return err
	}

	headers := amqp.Table{}
	for key, value := range message.Headers {
		headers[key] = value
	}

	err := b.channel.Publish(
		"", // default exchange routes by queue name
		message.Queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         message.Body,
			MessageId:    message.MessageID,
			Timestamp:    message.Timestamp,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return errors.ConnectionError("failed to publish message", err)
	}

	return nil
}

// Subscribe consumes the queue until the context is cancelled. Messages are
// acknowledged after the handler returns; handler errors reject without
// requeue so a poisoned event cannot loop forever.
func (b *Broker) Subscribe(ctx context.Context, queue string, handler brokers.MessageHandler) error {
	if b.channel == nil {
		return errors.ConnectionError("RabbitMQ broker not connected", nil)
	}

	if err := b.declareQueue(queue); err != nil {
		return err
	}

	deliveries, err := b.channel.Consume(
		queue,
		"",    // consumer tag
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return errors.ConnectionError(fmt.Sprintf("failed to consume queue %s", queue), err)
	}

	go func() {
		for {
			select {
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				message := &brokers.Message{
					Queue:     queue,
					Body:      delivery.Body,
					MessageID: delivery.MessageId,
					Timestamp: delivery.Timestamp,
					Headers:   tableToHeaders(delivery.Headers),
				}
				if err := handler(ctx, message); err != nil {
					b.logger.Warn("message handler failed",
						logging.Field{Key: "queue", Value: queue},
						logging.Field{Key: "message_id", Value: message.MessageID},
						logging.Err(err))
					delivery.Nack(false, false)
					continue
				}
				delivery.Ack(false)
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func tableToHeaders(table amqp.Table) map[string]string {
	if len(table) == 0 {
		return nil
	}
	headers := make(map[string]string, len(table))
	for key, value := range table {
		if s, ok := value.(string); ok {
			headers[key] = s
		}
	}
	return headers
}

func (b *Broker) Health() error {
	if b.conn == nil || b.conn.IsClosed() {
		return errors.ConnectionError("RabbitMQ connection is closed", nil)
	}
	return nil
}

func (b *Broker) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

// Factory creates RabbitMQ brokers.
type Factory struct{}

func (f *Factory) Create(config brokers.Config) (brokers.Broker, error) {
	rmqConfig, ok := config.(*Config)
	if !ok {
		return nil, errors.ConfigError("invalid config type for RabbitMQ broker")
	}
	return NewBroker(rmqConfig)
}

func (f *Factory) GetType() string { return "rabbitmq" }

func init() {
	brokers.Register("rabbitmq", &Factory{})
}
