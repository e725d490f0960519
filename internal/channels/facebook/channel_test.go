package facebook

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

func feedPayload(message string) channels.Payload {
	return channels.Payload{
		"message":       message,
		"link":          "https://example.com/article",
		"permalink_url": "https://facebook.com/posts/1",
		"description":   "an article",
	}
}

func TestTriggerTypesForFeedType(t *testing.T) {
	tests := []struct {
		feedType string
		message  string
		want     []int
	}{
		{"link", "", []int{TriggerNewLink}},
		{"status", "hello", []int{TriggerNewPost}},
		{"photo", "no tags here", []int{TriggerNewPhoto}},
		{"photo", "look #sunset", []int{TriggerNewPhoto, TriggerNewPhotoWithHashtag}},
		{"video", "", []int{TriggerNewVideo}},
		{"offer", "", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TriggerTypesForFeedType(tt.feedType, tt.message), tt.feedType)
	}
}

func TestFillRecipeMappingsNewPost(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient)

	result, err := channel.FillRecipeMappings(context.Background(),
		TriggerNewPost, 1, feedPayload("hello world"), nil,
		map[string]interface{}{"status": "%message% (%permalink_url%)"})
	require.NoError(t, err)
	assert.Equal(t, "hello world (https://facebook.com/posts/1)", result["status"])
}

func TestFillRecipeMappingsHashtagMatching(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient)

	tests := []struct {
		name    string
		message string
		matches bool
	}{
		{"message is only the hashtag", "#sunset", true},
		{"hashtag at end after space", "lovely #sunset", true},
		{"hashtag at start before space", "#sunset tonight", true},
		{"hashtag mid message", "lovely #sunset tonight", true},
		{"no hashtag", "lovely evening", false},
		{"hashtag glued to text", "lovely#sunset", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := channel.FillRecipeMappings(context.Background(),
				TriggerNewPhotoWithHashtag, 1, feedPayload(tt.message),
				map[string]string{"hashtag": "sunset"},
				map[string]interface{}{"status": "%message%"})
			if tt.matches {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, channels.ErrConditionNotMet)
			}
		})
	}
}

func TestFillRecipeMappingsMissingHashtagCondition(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient)

	_, err := channel.FillRecipeMappings(context.Background(),
		TriggerNewPhotoWithHashtag, 1, feedPayload("#sunset"),
		map[string]string{}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsUnknownTrigger(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient)

	_, err := channel.FillRecipeMappings(context.Background(),
		42, 1, feedPayload("x"), nil, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestActionsUnsupported(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient)

	err := channel.HandleAction(context.Background(), 1, 1, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedAction)
}

func TestUserIsConnected(t *testing.T) {
	store := testutil.NewMemoryStorage()
	user := &storage.User{Username: "alice"}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      user.ID,
		ChannelName: ChannelName,
		AccessToken: "token",
	}))

	channel := NewChannel(store, http.DefaultClient)

	state, err := channel.UserIsConnected(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)

	state, err = channel.UserIsConnected(context.Background(), user.ID+1)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)
}
