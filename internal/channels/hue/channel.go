// Package hue implements the Philips Hue action channel. The bridge address
// and API token come from the user's stored account; the only action toggles
// a light.
package hue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Hue"

// ActionLight turns a light on or off.
const ActionLight = 100

// Channel implements channels.Channel for Philips Hue.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	client *http.Client
	logger logging.Logger
}

// NewChannel creates the Hue channel.
func NewChannel(store storage.Storage, client *http.Client) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		client:      client,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "hue"}),
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	// The bridge pushes no events to us.
	return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {

	if actionType != ActionLight {
		return channels.NotSupportedAction(ChannelName, actionType)
	}

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return errors.NotFoundError("hue account")
	}

	lightID, _ := inputs["light_id"].(string)
	if lightID == "" {
		return errors.ValidationError("light action requires a light_id input")
	}
	state, err := lightState(inputs["state"])
	if err != nil {
		return err
	}

	return c.setLightState(ctx, account, lightID, state)
}

// lightState accepts the bool an API payload carries or the "true"/"false"
// string a recipe mapping produces.
func lightState(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true", "on":
			return true, nil
		case "false", "off":
			return false, nil
		}
	}
	return false, errors.ValidationError("light action requires a boolean state input")
}

func (c *Channel) setLightState(ctx context.Context, account *storage.Account,
	lightID string, on bool) error {

	address := fmt.Sprintf("%s/api/%s/lights/%s/state",
		bridgeURL(account.Identifier), account.AccessToken, lightID)
	body := fmt.Sprintf(`{"on":%t}`, on)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, address, strings.NewReader(body))
	if err != nil {
		return errors.InternalError("failed to build hue request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.ConnectionError("hue bridge request failed", err)
	}
	defer resp.Body.Close()

	var results []struct {
		Error *struct {
			Address     string `json:"address"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return errors.ProviderError("hue", "unreadable bridge response", err)
	}
	for _, result := range results {
		if result.Error != nil {
			return errors.ProviderError("hue",
				fmt.Sprintf("bridge rejected %s: %s", result.Error.Address, result.Error.Description), nil)
		}
	}

	c.logger.Debug("set light state",
		logging.Field{Key: "light_id", Value: lightID},
		logging.Field{Key: "on", Value: on})
	return nil
}

func bridgeURL(identifier string) string {
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		return identifier
	}
	return "http://" + identifier
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	if actionType == ActionLight {
		return "switch a Hue light on or off"
	}
	return c.BaseChannel.ActionSynopsis(actionType, inputs)
}
