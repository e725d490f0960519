// Package instagram implements the Instagram trigger channel. Media
// notifications arrive through the subscription callback endpoint; recipes
// can watch all new photos or only those tagged with a hashtag.
package instagram

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/httpx"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Instagram"

// Trigger types.
const (
	TriggerNewPhoto         = 100
	TriggerNewPhotoWithTags = 101
)

// hashtagPattern matches a hashtag standing alone, mid-caption or at the
// caption edges. "##" is replaced by the concrete hashtag before compiling.
const hashtagPattern = `(^##$|\s##\b|##\b\s)`

const userSelfEndpoint = "https://api.instagram.com/v1/users/self/"

// Channel implements channels.Channel for Instagram. It has no actions.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	client *http.Client
	logger logging.Logger

	// userSelfURL and mediaURL are swapped in tests.
	userSelfURL string
	mediaURL    string
}

// NewChannel creates the Instagram channel.
func NewChannel(store storage.Storage, client *http.Client) *Channel {
	return NewChannelWithEndpoints(store, client, userSelfEndpoint, mediaEndpoint)
}

// NewChannelWithEndpoints creates the channel against custom API endpoints.
// Tests point these at local servers.
func NewChannelWithEndpoints(store storage.Storage, client *http.Client,
	userSelfURL, mediaURL string) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		client:      client,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "instagram"}),
		userSelfURL: userSelfURL,
		mediaURL:    mediaURL,
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	switch triggerType {
	case TriggerNewPhoto:
		caption := stringField(payload, "caption")
		return c.fillMappings(ctx, payload, caption, mappings)

	case TriggerNewPhotoWithTags:
		hashtag, ok := conditions["hashtag"]
		if !ok {
			return nil, channels.ErrConditionNotMet
		}
		if !strings.HasPrefix(hashtag, "#") {
			hashtag = "#" + hashtag
		}

		pattern, err := regexp.Compile(strings.ReplaceAll(hashtagPattern, "##", regexp.QuoteMeta(hashtag)))
		if err != nil {
			return nil, fmt.Errorf("invalid hashtag %q: %w", hashtag, err)
		}

		caption := stringField(payload, "caption")
		if !pattern.MatchString(caption) {
			return nil, channels.ErrConditionNotMet
		}

		return c.fillMappings(ctx, payload, pattern.ReplaceAllString(caption, ""), mappings)

	default:
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}
}

// fillMappings substitutes image placeholders with downloaded bytes and
// text placeholders with caption and url values.
func (c *Channel) fillMappings(ctx context.Context, payload channels.Payload,
	captionWithoutHashtags string, mappings map[string]interface{}) (map[string]interface{}, error) {

	result := make(map[string]interface{}, len(mappings))
	for input, template := range mappings {
		text, ok := template.(string)
		if !ok {
			result[input] = template
			continue
		}

		// Image placeholders resolve to the downloaded image, replacing
		// the whole value.
		switch {
		case strings.Contains(text, "%image_standard%"):
			data, err := httpx.DownloadFile(ctx, c.client, stringField(payload, "image_standard"))
			if err != nil {
				return nil, err
			}
			result[input] = data
			continue
		case strings.Contains(text, "%image_low%"):
			data, err := httpx.DownloadFile(ctx, c.client, stringField(payload, "image_low"))
			if err != nil {
				return nil, err
			}
			result[input] = data
			continue
		}

		result[input] = channels.ReplaceTextMappings(
			map[string]interface{}{input: text},
			map[string]string{
				"caption_without_hashtags": captionWithoutHashtags,
				"caption":                  stringField(payload, "caption"),
				"url":                      stringField(payload, "url"),
			})[input]
	}
	return result, nil
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return channels.NotSupportedAction(ChannelName, actionType)
}

// UserIsConnected verifies the stored token against the provider. A
// rejected token deletes the account row and reports expired.
func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return channels.ConnectionInitial, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.userSelfURL+"?access_token="+account.AccessToken, nil)
	if err != nil {
		return channels.ConnectionExpired, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return channels.ConnectionExpired, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return channels.ConnectionConnected, nil
	}

	if err := c.store.DeleteAccount(userID, ChannelName); err != nil {
		c.logger.Warn("failed to delete expired instagram account",
			logging.Field{Key: "user_id", Value: userID},
			logging.Err(err))
	}
	return channels.ConnectionExpired, nil
}

func (c *Channel) TriggerSynopsis(triggerType int, conditions map[string]string) string {
	switch triggerType {
	case TriggerNewPhoto:
		return "new photo by you on Instagram"
	case TriggerNewPhotoWithTags:
		return fmt.Sprintf("new photo by you with hashtag %q on Instagram", conditions["hashtag"])
	default:
		return c.BaseChannel.TriggerSynopsis(triggerType, conditions)
	}
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
