package mail

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/config"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func newTestChannel(t *testing.T) (*Channel, *testutil.MemoryStorage, *[]sentMail) {
	t.Helper()
	store := testutil.NewMemoryStorage()
	ch := NewChannel(store, config.SMTPConfig{
		Host: "smtp.example.com",
		Port: "587",
		From: "noreply@daisychain.example",
	})

	var sent []sentMail
	ch.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: msg})
		return nil
	}
	return ch, store, &sent
}

func seedAccount(t *testing.T, store *testutil.MemoryStorage, userID int64, address string) {
	t.Helper()
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      userID,
		ChannelName: ChannelName,
		Identifier:  address,
	}))
}

func TestSendEmail(t *testing.T) {
	ch, store, sent := newTestChannel(t)
	seedAccount(t, store, 1, "alice@example.com")

	err := ch.HandleAction(context.Background(), ActionSendEmail, 1, map[string]interface{}{
		"subject": "new commit",
		"body":    "someone pushed to your repo",
	})
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", mail.addr)
	assert.Equal(t, "noreply@daisychain.example", mail.from)
	assert.Equal(t, []string{"alice@example.com"}, mail.to)
	assert.Contains(t, string(mail.msg), "Subject: new commit")
	assert.Contains(t, string(mail.msg), "someone pushed to your repo")
}

func TestSendEmailWithoutAccountIsQuiet(t *testing.T) {
	ch, _, sent := newTestChannel(t)

	err := ch.HandleAction(context.Background(), ActionSendEmail, 42, map[string]interface{}{
		"subject": "s", "body": "b",
	})
	assert.NoError(t, err)
	assert.Empty(t, *sent)
}

func TestSendEmailValidatesInputs(t *testing.T) {
	ch, store, _ := newTestChannel(t)
	seedAccount(t, store, 1, "alice@example.com")

	err := ch.HandleAction(context.Background(), ActionSendEmail, 1, map[string]interface{}{
		"subject": 7, "body": "b",
	})
	assert.Error(t, err)

	err = ch.HandleAction(context.Background(), ActionSendEmail, 1, map[string]interface{}{
		"subject": "s",
	})
	assert.Error(t, err)
}

func TestUnknownActionAndTriggers(t *testing.T) {
	ch, store, _ := newTestChannel(t)
	seedAccount(t, store, 1, "alice@example.com")

	err := ch.HandleAction(context.Background(), 999, 1, map[string]interface{}{})
	assert.ErrorIs(t, err, channels.ErrNotSupportedAction)

	_, err = ch.FillRecipeMappings(context.Background(), 1, 1, nil, nil, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestUserIsConnected(t *testing.T) {
	ch, store, _ := newTestChannel(t)

	state, err := ch.UserIsConnected(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)

	seedAccount(t, store, 3, "carol@example.com")

	state, err = ch.UserIsConnected(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)
}
