// Package rss implements the RSS trigger channel. A scheduled poller
// watches feeds and fires triggers when new entries appear; the channel
// itself only evaluates conditions and fills mappings.
package rss

import (
	"context"
	"strings"

	"daisychain/internal/channels"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "RSS"

// Trigger types.
const (
	TriggerNewEntries     = 100
	TriggerEntriesKeyword = 101
)

// Channel implements channels.Channel for RSS. It needs no user
// credentials and has no actions.
type Channel struct {
	channels.BaseChannel
}

// NewChannel creates the RSS channel.
func NewChannel() *Channel {
	return &Channel{BaseChannel: channels.BaseChannel{ChannelName: ChannelName}}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	// The feed a recipe watches must be the feed that updated,
	// regardless of trigger type.
	if stringField(payload, "feed_url") != conditions["feed_url"] {
		return nil, channels.ErrConditionNotMet
	}

	outputs := map[string]string{
		"summaries":           stringField(payload, "summaries"),
		"summaries_and_links": stringField(payload, "summaries_and_links"),
	}

	switch triggerType {
	case TriggerNewEntries:
		return channels.ReplaceTextMappings(mappings, outputs), nil

	case TriggerEntriesKeyword:
		keyword := conditions["keyword"]
		if keyword == "" || !strings.Contains(
			strings.ToLower(outputs["summaries"]), strings.ToLower(keyword)) {
			return nil, channels.ErrConditionNotMet
		}
		return channels.ReplaceTextMappings(mappings, outputs), nil

	default:
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return channels.NotSupportedAction(ChannelName, actionType)
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	return channels.ConnectionUnnecessary, nil
}

func stringField(payload channels.Payload, field string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[field].(string); ok {
		return value
	}
	return ""
}
