// Package mail implements the Mail action channel. It delivers recipe
// output as email over SMTP to the address the user registered.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/config"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Mail"

// ActionSendEmail sends an email to the user's registered address.
const ActionSendEmail = 100

// sendFunc matches smtp.SendMail and is replaced in tests.
type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Channel implements channels.Channel for Mail.
type Channel struct {
	channels.BaseChannel
	store  storage.Storage
	smtp   config.SMTPConfig
	send   sendFunc
	logger logging.Logger
}

// NewChannel creates the Mail channel.
func NewChannel(store storage.Storage, smtpConfig config.SMTPConfig) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		smtp:        smtpConfig,
		send:        smtp.SendMail,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "mail"}),
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	// Mail delivers no triggers.
	return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {

	if actionType != ActionSendEmail {
		return channels.NotSupportedAction(ChannelName, actionType)
	}

	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		// Without a registered address there is nobody to deliver to.
		c.logger.Error("no mail account for user", err,
			logging.Field{Key: "user_id", Value: userID})
		return nil
	}

	subject, ok := inputs["subject"].(string)
	if !ok {
		return errors.ValidationError("send_email requires a string subject input")
	}
	body, ok := inputs["body"].(string)
	if !ok {
		return errors.ValidationError("send_email requires a string body input")
	}

	return c.sendEmail(account.Identifier, subject, body)
}

func (c *Channel) sendEmail(recipient, subject, body string) error {
	message := buildMessage(c.smtp.From, recipient, subject, body)

	var auth smtp.Auth
	if c.smtp.Username != "" {
		auth = smtp.PlainAuth("", c.smtp.Username, c.smtp.Password, c.smtp.Host)
	}
	addr := c.smtp.Host + ":" + c.smtp.Port

	if err := c.send(addr, auth, c.smtp.From, []string{recipient}, message); err != nil {
		return errors.ConnectionError("smtp delivery failed", err)
	}
	c.logger.Debug("email sent",
		logging.Field{Key: "recipient", Value: recipient},
		logging.Field{Key: "subject", Value: subject})
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) ActionSynopsis(actionType int, inputs map[string]interface{}) string {
	if actionType == ActionSendEmail {
		return "send you an email"
	}
	return c.BaseChannel.ActionSynopsis(actionType, inputs)
}
