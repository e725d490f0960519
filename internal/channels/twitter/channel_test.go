package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

func newTestChannel(t *testing.T, client *http.Client) (*Channel, *testutil.MemoryStorage) {
	t.Helper()
	store := testutil.NewMemoryStorage()
	if client == nil {
		client = http.DefaultClient
	}
	return NewChannel(store, client), store
}

func seedAccount(t *testing.T, store *testutil.MemoryStorage, userID int64) {
	t.Helper()
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      userID,
		ChannelName: ChannelName,
		Identifier:  "tester",
		AccessToken: "token-123",
	}))
}

func TestFillRecipeMappingsNeverSupported(t *testing.T) {
	ch, _ := newTestChannel(t, nil)

	for _, triggerType := range []int{0, 1, 100} {
		_, err := ch.FillRecipeMappings(context.Background(), triggerType, 1,
			nil, nil, map[string]interface{}{})
		assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
	}
}

func TestPostStatus(t *testing.T) {
	var gotPath, gotStatus, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotPath = r.URL.Path
		gotStatus = r.FormValue("status")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch, store := newTestChannel(t, server.Client())
	ch.apiBaseURL = server.URL
	seedAccount(t, store, 7)

	err := ch.HandleAction(context.Background(), ActionPostStatus, 7,
		map[string]interface{}{"status": "hello world"})
	require.NoError(t, err)

	assert.Equal(t, "/statuses/update.json", gotPath)
	assert.Equal(t, "hello world", gotStatus)
	assert.Equal(t, "Bearer token-123", gotAuth)
}

func TestPostStatusLengthLimit(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 7)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	ch.client = server.Client()
	ch.apiBaseURL = server.URL

	exactly140 := strings.Repeat("x", 140)
	err := ch.HandleAction(context.Background(), ActionPostStatus, 7,
		map[string]interface{}{"status": exactly140})
	assert.NoError(t, err)

	err = ch.HandleAction(context.Background(), ActionPostStatus, 7,
		map[string]interface{}{"status": exactly140 + "y"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "140")
}

func TestPostStatusRejectsNonString(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 7)

	err := ch.HandleAction(context.Background(), ActionPostStatus, 7,
		map[string]interface{}{"status": 42})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "string")
}

func TestPostImageUploadsThenPosts(t *testing.T) {
	var uploadSeen bool
	var postMediaIDs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/media/upload.json":
			uploadSeen = true
			assert.NotEmpty(t, r.FormValue("media_data"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"media_id_string":"9000"}`))
		case "/statuses/update.json":
			postMediaIDs = r.FormValue("media_ids")
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	ch, store := newTestChannel(t, server.Client())
	ch.apiBaseURL = server.URL
	ch.uploadBaseURL = server.URL
	seedAccount(t, store, 7)

	err := ch.HandleAction(context.Background(), ActionPostImage, 7,
		map[string]interface{}{"status": "look at this", "image": []byte{0x1, 0x2}})
	require.NoError(t, err)

	assert.True(t, uploadSeen)
	assert.Equal(t, "9000", postMediaIDs)
}

func TestSendMessageRequiresFields(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 7)

	err := ch.HandleAction(context.Background(), ActionSendMessage, 7,
		map[string]interface{}{"screen_name": "friend"})
	assert.Error(t, err)
}

func TestHandleActionWithoutAccount(t *testing.T) {
	ch, _ := newTestChannel(t, nil)

	err := ch.HandleAction(context.Background(), ActionPostStatus, 99,
		map[string]interface{}{"status": "orphan"})
	assert.Error(t, err)
}

func TestHandleActionUnknownType(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 7)

	err := ch.HandleAction(context.Background(), 999, 7, map[string]interface{}{})
	assert.ErrorIs(t, err, channels.ErrNotSupportedAction)
}

func TestUserIsConnected(t *testing.T) {
	ch, store := newTestChannel(t, nil)

	state, err := ch.UserIsConnected(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)

	seedAccount(t, store, 7)

	state, err = ch.UserIsConnected(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)
}

func TestActionSynopsis(t *testing.T) {
	ch, _ := newTestChannel(t, nil)

	assert.Equal(t, "post a status to your Twitter timeline",
		ch.ActionSynopsis(ActionPostStatus, nil))
	assert.Equal(t, "send a Twitter direct message",
		ch.ActionSynopsis(ActionSendMessage, nil))
	assert.Contains(t, ch.ActionSynopsis(999, nil), "Twitter")
}
