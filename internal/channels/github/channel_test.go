package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

func pushPayload() channels.Payload {
	return channels.Payload{
		"repository_name":      "test_repo",
		"repository_url":       "https://github.com/alice/test_repo",
		"repository_full_name": "alice/test_repo",
		"head_commit_message":  "fix the build",
		"head_commit_author":   "Alice",
	}
}

func TestFillRecipeMappingsPush(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient, "https://example.com/hook")

	result, err := channel.FillRecipeMappings(context.Background(),
		TriggerPush, 1, pushPayload(),
		map[string]string{"repository_name": "alice/test_repo"},
		map[string]interface{}{"status": "check out %repository_name%"})
	require.NoError(t, err)
	assert.Equal(t, "check out test_repo", result["status"])
}

func TestFillRecipeMappingsRepositoryMismatch(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient, "https://example.com/hook")

	_, err := channel.FillRecipeMappings(context.Background(),
		TriggerPush, 1, pushPayload(),
		map[string]string{"repository_name": "alice/other_repo"}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsIssuesNotImplemented(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage(), http.DefaultClient, "https://example.com/hook")

	_, err := channel.FillRecipeMappings(context.Background(),
		TriggerIssues, 1, pushPayload(), map[string]string{}, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestUserIsConnected(t *testing.T) {
	store := testutil.NewMemoryStorage()
	user := &storage.User{Username: "alice"}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      user.ID,
		ChannelName: ChannelName,
		Identifier:  "alice",
		AccessToken: "token",
	}))

	channel := NewChannel(store, http.DefaultClient, "https://example.com/hook")

	state, err := channel.UserIsConnected(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)

	state, err = channel.UserIsConnected(context.Background(), user.ID+1)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)
}

func TestCreateWebhook(t *testing.T) {
	var created map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]interface{}{})
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer server.Close()

	store := testutil.NewMemoryStorage()
	user := &storage.User{Username: "alice"}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      user.ID,
		ChannelName: ChannelName,
		Identifier:  "alice",
		AccessToken: "token",
	}))

	channel := NewChannel(store, server.Client(), "https://example.com/hooks/github")

	// Point the API at the test server.
	rewriting := &rewriteTransport{base: server.Client().Transport, target: server.URL}
	channel.client = &http.Client{Transport: rewriting}

	repoName, err := channel.CreateWebhook(context.Background(), user.ID, "", "test_repo", []string{"push"})
	require.NoError(t, err)
	assert.Equal(t, "alice/test_repo", repoName)

	config := created["config"].(map[string]interface{})
	assert.Equal(t, "https://example.com/hooks/github", config["url"])
	assert.Equal(t, true, created["active"])
}

func TestPushEventDecoding(t *testing.T) {
	raw := `{
		"repository": {
			"name": "test_repo",
			"full_name": "alice/test_repo",
			"url": "https://github.com/alice/test_repo",
			"owner": {"name": "alice"}
		},
		"head_commit": {"message": "fix", "author": {"name": "Alice"}},
		"pusher": {"name": "alice"},
		"commits": [{}]
	}`

	var event PushEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	assert.True(t, event.IsPush())

	payload := event.TriggerPayload()
	assert.Equal(t, "alice/test_repo", payload["repository_full_name"])
	assert.Equal(t, "fix", payload["head_commit_message"])
}

// rewriteTransport redirects every request to the test server.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewritten := *req
	rewritten.URL.Scheme = "http"
	rewritten.URL.Host = t.target[len("http://"):]
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(&rewritten)
}
