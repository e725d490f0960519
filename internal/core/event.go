// Package core implements the trigger dispatch and resolution pipeline:
// event sources enqueue trigger events, workers resolve them against the
// owning user's recipes and fire the resulting actions.
package core

import (
	"encoding/json"

	"daisychain/internal/channels"
)

// TriggerEvent is the unit of work flowing through the trigger queue. It
// names the source channel, the channel-local trigger type, the affected
// user and the raw payload captured at the source.
type TriggerEvent struct {
	ChannelName string           `json:"channel_name"`
	TriggerType int              `json:"trigger_type"`
	UserID      int64            `json:"user_id"`
	Payload     channels.Payload `json:"payload"`
}

// Encode serializes the event for the broker.
func (e *TriggerEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeTriggerEvent parses a broker message body.
func DecodeTriggerEvent(body []byte) (*TriggerEvent, error) {
	event := &TriggerEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		return nil, err
	}
	return event, nil
}
