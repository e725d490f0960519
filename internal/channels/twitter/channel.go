// Package twitter implements the Twitter action channel. It offers no
// triggers; recipes use it to post statuses, images and direct messages on
// the user's behalf.
package twitter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Twitter"

// Action types.
const (
	ActionPostStatus = 100 + iota
	ActionPostImage
	ActionUpdateProfileImage
	ActionSendMessage
)

// maxStatusLength is the classic tweet length limit.
const maxStatusLength = 140

const (
	defaultAPIBaseURL    = "https://api.twitter.com/1.1"
	defaultUploadBaseURL = "https://upload.twitter.com/1.1"
)

// Channel implements channels.Channel for Twitter.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	client *http.Client
	logger logging.Logger

	// apiBaseURL and uploadBaseURL are swapped in tests.
	apiBaseURL    string
	uploadBaseURL string
}

// NewChannel creates the Twitter channel.
func NewChannel(store storage.Storage, client *http.Client) *Channel {
	return &Channel{
		BaseChannel:   channels.BaseChannel{ChannelName: ChannelName},
		store:         store,
		client:        client,
		logger:        logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "twitter"}),
		apiBaseURL:    defaultAPIBaseURL,
		uploadBaseURL: defaultUploadBaseURL,
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	// Twitter delivers no triggers.
	return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return errors.NotFoundError("twitter account")
	}

	switch actionType {
	case ActionPostStatus:
		status, err := statusInput(inputs, "status")
		if err != nil {
			return err
		}
		return c.postForm(ctx, account, "/statuses/update.json", url.Values{"status": {status}})

	case ActionPostImage:
		values := url.Values{}
		if raw, ok := inputs["status"]; ok && raw != nil {
			status, err := statusInput(inputs, "status")
			if err != nil {
				return err
			}
			values.Set("status", status)
		}
		image, ok := inputs["image"].([]byte)
		if !ok {
			return errors.ValidationError("image input must be image data")
		}
		mediaID, err := c.uploadMedia(ctx, account, image)
		if err != nil {
			return err
		}
		values.Set("media_ids", mediaID)
		return c.postForm(ctx, account, "/statuses/update.json", values)

	case ActionUpdateProfileImage:
		image, ok := inputs["image"].([]byte)
		if !ok {
			return errors.ValidationError("image input must be image data")
		}
		return c.postForm(ctx, account, "/account/update_profile_image.json",
			url.Values{"image": {encodeImage(image)}})

	case ActionSendMessage:
		screenName, _ := inputs["screen_name"].(string)
		text, _ := inputs["text"].(string)
		if screenName == "" || text == "" {
			return errors.ValidationError("send_message requires screen_name and text")
		}
		return c.postForm(ctx, account, "/direct_messages/new.json",
			url.Values{"screen_name": {screenName}, "text": {text}})

	default:
		return channels.NotSupportedAction(ChannelName, actionType)
	}
}

// statusInput validates the classic tweet constraints.
func statusInput(inputs map[string]interface{}, key string) (string, error) {
	status, ok := inputs[key].(string)
	if !ok {
		return "", errors.ValidationError("status must be a string")
	}
	if len([]rune(status)) > maxStatusLength {
		return "", errors.ValidationError(
			fmt.Sprintf("status exceeds %d characters", maxStatusLength))
	}
	return status, nil
}

func (c *Channel) uploadMedia(ctx context.Context, account *storage.Account, image []byte) (string, error) {
	resp, err := c.doForm(ctx, account, c.uploadBaseURL+"/media/upload.json",
		url.Values{"media_data": {encodeImage(image)}})
	if err != nil {
		return "", err
	}
	return resp, nil
}

// postForm sends an authorized form POST to the API and discards the body.
func (c *Channel) postForm(ctx context.Context, account *storage.Account, path string, values url.Values) error {
	_, err := c.doForm(ctx, account, c.apiBaseURL+path, values)
	return err
}

func (c *Channel) doForm(ctx context.Context, account *storage.Account, endpoint string, values url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(values.Encode()))
	if err != nil {
		return "", errors.InternalError("failed to build twitter request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.ConnectionError("twitter request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.ProviderError("twitter",
			fmt.Sprintf("request to %s returned status %d", endpoint, resp.StatusCode), nil)
	}

	var mediaResponse struct {
		MediaIDString string `json:"media_id_string"`
	}
	// Media uploads return an id; other endpoints' bodies are ignored.
	decodeBody(resp, &mediaResponse)
	return mediaResponse.MediaIDString, nil
}

func encodeImage(image []byte) string {
	return base64.StdEncoding.EncodeToString(image)
}

func decodeBody(resp *http.Response, out interface{}) {
	_ = json.NewDecoder(resp.Body).Decode(out)
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	switch actionType {
	case ActionPostStatus:
		return "post a status to your Twitter timeline"
	case ActionPostImage:
		return "post an image to your Twitter timeline"
	case ActionUpdateProfileImage:
		return "update your Twitter profile image"
	case ActionSendMessage:
		return "send a Twitter direct message"
	default:
		return c.BaseChannel.ActionSynopsis(actionType, inputs)
	}
}
