package channels

import (
	stderrors "errors"
	"fmt"
)

// Sentinel errors that steer the trigger resolution worker. They are
// compared with errors.Is, so channels may wrap them with context.
var (
	// ErrNotSupportedTrigger means the channel does not know the trigger
	// type it was asked to resolve. The worker aborts the whole
	// invocation: the dispatch itself is malformed.
	ErrNotSupportedTrigger = stderrors.New("trigger type not supported by channel")

	// ErrNotSupportedAction means the channel does not know the action
	// type it was asked to perform.
	ErrNotSupportedAction = stderrors.New("action type not supported by channel")

	// ErrConditionNotMet means the recipe's conditions reject this
	// trigger occurrence. The worker skips the recipe and moves on.
	ErrConditionNotMet = stderrors.New("recipe conditions not met")
)

// NotSupportedTrigger wraps ErrNotSupportedTrigger with the offending type.
func NotSupportedTrigger(channelName string, triggerType int) error {
	return fmt.Errorf("%s: trigger type %d: %w", channelName, triggerType, ErrNotSupportedTrigger)
}

// NotSupportedAction wraps ErrNotSupportedAction with the offending type.
func NotSupportedAction(channelName string, actionType int) error {
	return fmt.Errorf("%s: action type %d: %w", channelName, actionType, ErrNotSupportedAction)
}
