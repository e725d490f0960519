package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/storage"
)

const mediaEndpoint = "https://api.instagram.com/v1/media/%s/"

// SubscriptionEvent is one entry of the JSON array Instagram posts to the
// subscription callback.
type SubscriptionEvent struct {
	ObjectID string `json:"object_id"`
	Data     struct {
		MediaID string `json:"media_id"`
	} `json:"data"`
}

// DecodeSubscriptionEvents parses the callback body.
func DecodeSubscriptionEvents(body []byte) ([]SubscriptionEvent, error) {
	var events []SubscriptionEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, errors.ValidationError("malformed instagram subscription payload")
	}
	return events, nil
}

// Account resolves the local account of the Instagram user the event is
// about.
func (e *SubscriptionEvent) Account(store storage.Storage) (*storage.Account, error) {
	if e.ObjectID == "" || e.Data.MediaID == "" {
		return nil, errors.ValidationError("instagram subscription event is incomplete")
	}
	return store.GetAccountByIdentifier(ChannelName, e.ObjectID)
}

// MediaPayload fetches the media the event refers to and builds the trigger
// payload from it. The tagged flag reports whether the media carries
// hashtags, which decides whether the tag trigger fires as well.
func (c *Channel) MediaPayload(ctx context.Context, account *storage.Account,
	mediaID string) (payload channels.Payload, tagged bool, err error) {

	endpoint := fmt.Sprintf(c.mediaURL, mediaID) + "?access_token=" + account.AccessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, errors.InternalError("failed to build instagram media request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, false, errors.ConnectionError("instagram media fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, errors.ProviderError("instagram",
			fmt.Sprintf("media fetch returned status %d", resp.StatusCode), nil)
	}

	var media struct {
		Data struct {
			Type    string   `json:"type"`
			Link    string   `json:"link"`
			Tags    []string `json:"tags"`
			Caption *struct {
				Text string `json:"text"`
			} `json:"caption"`
			Images map[string]struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, false, errors.ProviderError("instagram", "unreadable media response", err)
	}
	if media.Data.Type != "image" {
		return nil, false, nil
	}

	payload = channels.Payload{"url": media.Data.Link, "caption": ""}
	if media.Data.Caption != nil {
		payload["caption"] = media.Data.Caption.Text
	}
	if image, ok := media.Data.Images["standard_resolution"]; ok {
		payload["image_standard"] = image.URL
	}
	if image, ok := media.Data.Images["low_resolution"]; ok {
		payload["image_low"] = image.URL
	}
	if image, ok := media.Data.Images["thumbnail"]; ok {
		payload["thumbnail"] = image.URL
	}
	return payload, len(media.Data.Tags) > 0, nil
}
