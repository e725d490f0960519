// Package facebook implements the Facebook trigger channel. Feed change
// notifications are fetched from the Graph API and classified into post,
// photo, link and video triggers.
package facebook

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
const ChannelName = "Facebook"

// Trigger types.
const (
	TriggerNewPost = 100 + iota
	TriggerNewPhoto
	TriggerNewPhotoWithHashtag
	TriggerNewLink
	TriggerNewVideo
)

// hashtagPattern requires the hashtag to stand alone or be delimited by
// whitespace. "##" is replaced by the concrete hashtag before compiling.
const hashtagPattern = `(^.*\s##$|^##\s.*$|^.*##\s.*$|^##$)`

// Channel implements channels.Channel for Facebook. It has no actions.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	client *http.Client
	logger logging.Logger

	// graphBaseURL is swapped in tests.
	graphBaseURL string
}

// NewChannel creates the Facebook channel.
func NewChannel(store storage.Storage, client *http.Client) *Channel {
	return NewChannelWithGraphURL(store, client, defaultGraphBaseURL)
}

// NewChannelWithGraphURL creates the Facebook channel against an alternate
// Graph API base address.
func NewChannelWithGraphURL(store storage.Storage, client *http.Client, graphBaseURL string) *Channel {
	return &Channel{
		BaseChannel:  channels.BaseChannel{ChannelName: ChannelName},
		store:        store,
		client:       client,
		logger:       logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "facebook"}),
		graphBaseURL: graphBaseURL,
	}
}

// TriggerTypesForFeedType classifies a Graph API feed entry type into the
// trigger types it fires. A photo whose message contains a hashtag fires
// both photo triggers.
func TriggerTypesForFeedType(feedType, message string) []int {
	switch {
	case strings.Contains(feedType, "link"):
		return []int{TriggerNewLink}
	case strings.Contains(feedType, "status"):
		return []int{TriggerNewPost}
	case strings.Contains(feedType, "photo"):
		types := []int{TriggerNewPhoto}
		if strings.Contains(message, "#") {
			types = append(types, TriggerNewPhotoWithHashtag)
		}
		return types
	case strings.Contains(feedType, "video"):
		return []int{TriggerNewVideo}
	default:
		return nil
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	switch triggerType {
	case TriggerNewPhotoWithHashtag:
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
		if !pattern.MatchString(stringField(payload, "message")) {
			return nil, channels.ErrConditionNotMet
		}
		return c.fillMappings(ctx, payload, mappings)

	case TriggerNewPost, TriggerNewPhoto, TriggerNewLink, TriggerNewVideo:
		return c.fillMappings(ctx, payload, mappings)

	default:
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}
}

func (c *Channel) fillMappings(ctx context.Context, payload channels.Payload,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	result := make(map[string]interface{}, len(mappings))
	for input, template := range mappings {
		text, ok := template.(string)
		if !ok {
			result[input] = template
			continue
		}

		switch {
		case strings.Contains(text, "%image_standard%"):
			data, err := httpx.DownloadFile(ctx, c.client, stringField(payload, "full_picture"))
			if err != nil {
				return nil, err
			}
			result[input] = data
			continue
		case strings.Contains(text, "%image_low%"):
			data, err := httpx.DownloadFile(ctx, c.client, stringField(payload, "picture"))
			if err != nil {
				return nil, err
			}
			result[input] = data
			continue
		}

		result[input] = channels.ReplaceTextMappings(
			map[string]interface{}{input: text},
			map[string]string{
				"message":       stringField(payload, "message"),
				"link":          stringField(payload, "link"),
				"permalink_url": stringField(payload, "permalink_url"),
				"description":   stringField(payload, "description"),
			})[input]
	}
	return result, nil
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return channels.NotSupportedAction(ChannelName, actionType)
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) TriggerSynopsis(triggerType int, conditions map[string]string) string {
	switch triggerType {
	case TriggerNewPost:
		return "new post by you on Facebook"
	case TriggerNewPhoto:
		return "new photo by you on Facebook"
	case TriggerNewPhotoWithHashtag:
		return fmt.Sprintf("new photo by you with hashtag %q on Facebook", conditions["hashtag"])
	case TriggerNewLink:
		return "new link by you on Facebook"
	case TriggerNewVideo:
		return "new video by you on Facebook"
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
