// Package channels defines the contract every integration channel
// implements. The trigger resolution worker talks to channels exclusively
// through this interface, so adding an integration never touches the core
// pipeline.
package channels

import "context"

// Payload carries trigger-specific data from the event source to the
// channel. Keys and value shapes are private to each channel.
type Payload map[string]interface{}

// Channel is one integration (Clock, RSS, Github, ...). Implementations
// must be safe for concurrent use; the worker calls them from multiple
// goroutines.
type Channel interface {
	// Name returns the display name used for registry lookups. Lookups
	// are case-insensitive.
	Name() string

	// FillRecipeMappings evaluates a trigger occurrence against one
	// recipe. It checks the recipe's conditions against the payload and,
	// if they hold, substitutes trigger output values into the mapping
	// templates. It returns the completed action inputs, or
	// ErrConditionNotMet when the recipe's conditions reject this
	// occurrence, or ErrNotSupportedTrigger when triggerType is unknown
	// to this channel.
	FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
		payload Payload, conditions map[string]string,
		mappings map[string]interface{}) (map[string]interface{}, error)

	// HandleAction performs the action identified by actionType with the
	// completed inputs, on behalf of the user. It returns
	// ErrNotSupportedAction when actionType is unknown to this channel.
	HandleAction(ctx context.Context, actionType int, userID int64,
		inputs map[string]interface{}) error

	// UserIsConnected reports the state of the user's connection to the
	// external service. Channels that need no credentials return
	// ConnectionUnnecessary.
	UserIsConnected(ctx context.Context, userID int64) (ConnectionState, error)

	// TriggerSynopsis renders a human-readable summary of a configured
	// trigger for recipe listings.
	TriggerSynopsis(triggerType int, conditions map[string]string) string

	// ActionSynopsis renders a human-readable summary of a configured
	// action for recipe listings.
	ActionSynopsis(actionType int, inputs map[string]interface{}) string
}

// BaseChannel provides the default synopsis wording. Channels embed it and
// override only what they customize.
type BaseChannel struct {
	ChannelName string
}

func (b *BaseChannel) Name() string { return b.ChannelName }

func (b *BaseChannel) TriggerSynopsis(triggerType int, conditions map[string]string) string {
	return "If trigger of channel " + b.ChannelName + " fires"
}

func (b *BaseChannel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	return "then perform action of channel " + b.ChannelName
}
