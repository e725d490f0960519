// Package dropbox implements the Dropbox channel. Triggers report file and
// account events; actions move file data in and out of the user's Dropbox.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Dropbox"

// Trigger types.
const (
	TriggerFilesChange = 1 + iota
	TriggerNewMedia
	TriggerNewAudio
	TriggerNewShared
	TriggerUserInfoChanged
)

// Action types.
const (
	ActionUpload = 1 + iota
	ActionDownload
	ActionDownloadToDestination
)

// maxDownloadBytes caps mapped file downloads. The content API is not meant
// for larger transfers in a single request.
const maxDownloadBytes = 150 << 20

const (
	defaultAPIBaseURL     = "https://api.dropboxapi.com/2"
	defaultContentBaseURL = "https://content.dropboxapi.com/2"
)

// placeholderPattern matches %field% tokens inside mapping templates.
var placeholderPattern = regexp.MustCompile(`%[a-z]+_?-?[a-z]+%`)

// dataFieldNames are placeholder fields that resolve to downloaded file
// content instead of a payload string.
var dataFieldNames = []string{"data", "jpg", "png", "video", "audio"}

// Channel implements channels.Channel for Dropbox.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	client *http.Client
	logger logging.Logger

	// apiBaseURL and contentBaseURL are swapped in tests.
	apiBaseURL     string
	contentBaseURL string
}

// NewChannel creates the Dropbox channel.
func NewChannel(store storage.Storage, client *http.Client) *Channel {
	return NewChannelWithEndpoints(store, client, defaultAPIBaseURL, defaultContentBaseURL)
}

// NewChannelWithEndpoints creates the Dropbox channel against alternate API
// base addresses.
func NewChannelWithEndpoints(store storage.Storage, client *http.Client,
	apiBaseURL, contentBaseURL string) *Channel {
	return &Channel{
		BaseChannel:    channels.BaseChannel{ChannelName: ChannelName},
		store:          store,
		client:         client,
		logger:         logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "dropbox"}),
		apiBaseURL:     apiBaseURL,
		contentBaseURL: contentBaseURL,
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	switch triggerType {
	case TriggerFilesChange, TriggerNewMedia, TriggerNewAudio, TriggerNewShared, TriggerUserInfoChanged:
	default:
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return nil, errors.NotFoundError("dropbox account")
	}

	for key, want := range conditions {
		got, _ := payload[key].(string)
		if got != want {
			return nil, fmt.Errorf("%s is %q but the recipe requires %q: %w",
				key, got, want, channels.ErrConditionNotMet)
		}
	}

	return c.fillMappings(ctx, account, payload, mappings)
}

func (c *Channel) fillMappings(ctx context.Context, account *storage.Account,
	payload channels.Payload, mappings map[string]interface{}) (map[string]interface{}, error) {

	for key, raw := range mappings {
		template, ok := raw.(string)
		if !ok {
			continue
		}
		fields := placeholderPattern.FindAllString(strings.ToLower(template), -1)
		if len(fields) == 0 {
			continue
		}

		if hasDataField(fields) {
			data, err := c.downloadPayloadFile(ctx, account, payload)
			if err != nil {
				return nil, err
			}
			mappings[key] = data
			continue
		}

		for _, field := range fields {
			name := strings.Trim(field, "%")
			if value, ok := payload[name].(string); ok {
				template = strings.ReplaceAll(template, field, value)
			}
		}
		mappings[key] = template
	}
	return mappings, nil
}

func hasDataField(fields []string) bool {
	for _, field := range fields {
		name := strings.Trim(field, "%")
		for _, data := range dataFieldNames {
			if name == data {
				return true
			}
		}
	}
	return false
}

// downloadPayloadFile fetches the file named by the payload's path field.
func (c *Channel) downloadPayloadFile(ctx context.Context, account *storage.Account,
	payload channels.Payload) ([]byte, error) {

	if payloadSize(payload) >= maxDownloadBytes {
		return nil, channels.NotSupportedTrigger(ChannelName, TriggerFilesChange)
	}
	path, _ := payload["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("payload carries no file path: %w", channels.ErrConditionNotMet)
	}

	data, err := c.download(ctx, account, path)
	if err != nil {
		return nil, fmt.Errorf("file download failed: %w", channels.ErrConditionNotMet)
	}
	c.logger.Debug("downloaded mapped file",
		logging.Field{Key: "path", Value: path},
		logging.Field{Key: "bytes", Value: len(data)})
	return data, nil
}

// payloadSize reads the size field however the event source encoded it.
func payloadSize(payload channels.Payload) int64 {
	switch v := payload["size"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return errors.NotFoundError("dropbox account")
	}

	switch actionType {
	case ActionUpload:
		data, ok := inputs["data"].([]byte)
		if !ok {
			if text, isText := inputs["data"].(string); isText {
				data = []byte(text)
			} else {
				return errors.ValidationError("upload requires data input")
			}
		}
		path, _ := inputs["path"].(string)
		if path == "" {
			return errors.ValidationError("upload requires a path input")
		}
		overwrite, _ := inputs["overwrite"].(bool)
		return c.upload(ctx, account, path, data, overwrite)

	case ActionDownload:
		path, _ := inputs["path"].(string)
		if path == "" {
			return errors.ValidationError("download requires a path input")
		}
		data, err := c.download(ctx, account, path)
		if err != nil {
			return err
		}
		c.logger.Debug("downloaded file",
			logging.Field{Key: "path", Value: path},
			logging.Field{Key: "bytes", Value: len(data)})
		return nil

	case ActionDownloadToDestination:
		pathFrom, _ := inputs["path_from"].(string)
		pathTo, _ := inputs["path_to"].(string)
		if pathFrom == "" || pathTo == "" {
			return errors.ValidationError("download_to_destination requires path_from and path_to")
		}
		data, err := c.download(ctx, account, pathFrom)
		if err != nil {
			return err
		}
		return c.upload(ctx, account, pathTo, data, true)

	default:
		return channels.NotSupportedAction(ChannelName, actionType)
	}
}

func (c *Channel) download(ctx context.Context, account *storage.Account, path string) ([]byte, error) {
	req, err := c.contentRequest(ctx, account, "/files/download", map[string]interface{}{"path": path}, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("dropbox download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ProviderError("dropbox",
			fmt.Sprintf("download of %s returned status %d", path, resp.StatusCode), nil)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

func (c *Channel) upload(ctx context.Context, account *storage.Account, path string,
	data []byte, overwrite bool) error {

	mode := "add"
	if overwrite {
		mode = "overwrite"
	}
	arg := map[string]interface{}{"path": path, "mode": mode, "mute": true}
	req, err := c.contentRequest(ctx, account, "/files/upload", arg, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.ConnectionError("dropbox upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.ProviderError("dropbox",
			fmt.Sprintf("upload to %s returned status %d", path, resp.StatusCode), nil)
	}
	return nil
}

// contentRequest builds a content API request with the argument header the
// Dropbox API expects.
func (c *Channel) contentRequest(ctx context.Context, account *storage.Account,
	path string, arg map[string]interface{}, body io.Reader) (*http.Request, error) {

	encoded, err := json.Marshal(arg)
	if err != nil {
		return nil, errors.InternalError("failed to encode dropbox api arg", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contentBaseURL+path, body)
	if err != nil {
		return nil, errors.InternalError("failed to build dropbox request", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Dropbox-API-Arg", string(encoded))
	return req, nil
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) TriggerSynopsis(triggerType int, conditions map[string]string) string {
	switch triggerType {
	case TriggerFilesChange:
		return "files change in your Dropbox"
	case TriggerNewMedia:
		return "a new media file appears in your Dropbox"
	case TriggerNewAudio:
		return "a new audio file appears in your Dropbox"
	case TriggerNewShared:
		return "a file is shared with you on Dropbox"
	case TriggerUserInfoChanged:
		return "your Dropbox account info changes"
	default:
		return c.BaseChannel.TriggerSynopsis(triggerType, conditions)
	}
}

func (c *Channel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	switch actionType {
	case ActionUpload:
		return "upload a file to your Dropbox"
	case ActionDownload:
		return "download a file from your Dropbox"
	case ActionDownloadToDestination:
		return "copy a Dropbox file to another path"
	default:
		return c.BaseChannel.ActionSynopsis(actionType, inputs)
	}
}
