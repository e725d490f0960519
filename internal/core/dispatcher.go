package core

import (
	"context"
	"time"

	"github.com/google/uuid"

	"daisychain/internal/brokers"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
)

// Dispatcher enqueues trigger events for asynchronous resolution. Event
// sources (webhook handlers, scheduled beats, pollers) call it and move on;
// they never wait for recipes to run.
type Dispatcher struct {
	broker brokers.Broker
	queue  string
	logger logging.Logger
}

// NewDispatcher creates a dispatcher publishing to the given queue.
func NewDispatcher(broker brokers.Broker, queue string) *Dispatcher {
	return &Dispatcher{
		broker: broker,
		queue:  queue,
		logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "dispatcher"}),
	}
}

// HandleTrigger publishes one trigger occurrence to the queue. Delivery is
// at-least-once and resolution happens out of band; the only error surfaced
// here is a failure to enqueue.
func (d *Dispatcher) HandleTrigger(ctx context.Context, channelName string, triggerType int, userID int64, payload map[string]interface{}) error {
	event := &TriggerEvent{
		ChannelName: channelName,
		TriggerType: triggerType,
		UserID:      userID,
		Payload:     payload,
	}

	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode trigger event", err)
	}

	message := &brokers.Message{
		Queue:     d.queue,
		Body:      body,
		MessageID: uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	if err := d.broker.Publish(ctx, message); err != nil {
		return errors.ConnectionError("failed to enqueue trigger event", err)
	}

	d.logger.Debug("trigger event enqueued",
		logging.Field{Key: "channel", Value: channelName},
		logging.Field{Key: "trigger_type", Value: triggerType},
		logging.Field{Key: "user_id", Value: userID},
		logging.Field{Key: "message_id", Value: message.MessageID})

	return nil
}
