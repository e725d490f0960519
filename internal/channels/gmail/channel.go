// Package gmail implements the Gmail action channel. It sends mail through
// the Gmail API with the OAuth token stored on the user's account.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Gmail"

// ActionSendEmail sends an email from the user's Gmail address.
const ActionSendEmail = 100

// Channel implements channels.Channel for Gmail.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	oauth  *oauth2.Config
	logger logging.Logger

	// endpoint overrides the API base URL in tests.
	endpoint string
}

// NewChannel creates the Gmail channel.
func NewChannel(store storage.Storage, oauthConfig *oauth2.Config) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		oauth:       oauthConfig,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "gmail"}),
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	// Gmail delivers no triggers.
	return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {

	if actionType != ActionSendEmail {
		return channels.NotSupportedAction(ChannelName, actionType)
	}

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		c.logger.Error("no gmail account for user", err,
			logging.Field{Key: "user_id", Value: userID})
		return nil
	}

	sender, _ := inputs["sender"].(string)
	to, _ := inputs["to"].(string)
	subject, _ := inputs["subject"].(string)
	message, _ := inputs["message"].(string)
	if to == "" || message == "" {
		return errors.ValidationError("send_email requires to and message inputs")
	}
	if sender == "" {
		sender = account.Identifier
	}

	service, err := c.buildService(ctx, account)
	if err != nil {
		return err
	}

	raw := encodeMessage(sender, to, subject, message)
	if _, err := service.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Do(); err != nil {
		return errors.ProviderError("gmail", "message send failed", err)
	}
	c.logger.Debug("email sent via gmail",
		logging.Field{Key: "to", Value: to},
		logging.Field{Key: "subject", Value: subject})
	return nil
}

// buildService authorizes an API client with the token stored on the account.
func (c *Channel) buildService(ctx context.Context, account *storage.Account) (*gmailapi.Service, error) {
	var token oauth2.Token
	if err := json.Unmarshal([]byte(account.Extra), &token); err != nil {
		return nil, errors.InternalError("stored gmail token is unreadable", err)
	}

	opts := []option.ClientOption{
		option.WithHTTPClient(c.oauth.Client(ctx, &token)),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	service, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.ConnectionError("gmail service setup failed", err)
	}
	return service, nil
}

// encodeMessage builds the base64url RFC 2822 message the API expects.
func encodeMessage(sender, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	if actionType == ActionSendEmail {
		return "send an email from your Gmail address"
	}
	return c.BaseChannel.ActionSynopsis(actionType, inputs)
}
