package handlers

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels/dropbox"
	"daisychain/internal/channels/facebook"
	"daisychain/internal/channels/github"
	"daisychain/internal/channels/instagram"
	"daisychain/internal/config"
	"daisychain/internal/signature"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

type firedTrigger struct {
	ChannelName string
	TriggerType int
	UserID      int64
	Payload     map[string]interface{}
}

type recordingDispatcher struct {
	mu    sync.Mutex
	fired []firedTrigger
}

func (d *recordingDispatcher) HandleTrigger(ctx context.Context, channelName string,
	triggerType int, userID int64, payload map[string]interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = append(d.fired, firedTrigger{channelName, triggerType, userID, payload})
	return nil
}

func (d *recordingDispatcher) Fired() []firedTrigger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]firedTrigger(nil), d.fired...)
}

const pushBody = `{
	"repository": {
		"name": "test_repo",
		"full_name": "alice/test_repo",
		"url": "https://github.com/alice/test_repo",
		"owner": {"name": "alice"}
	},
	"head_commit": {"message": "fix things", "author": {"name": "Alice"}},
	"pusher": {"name": "alice"},
	"commits": [{}]
}`

func newTestHandlers(t *testing.T, instagramChannel *instagram.Channel) (*Handlers, *testutil.MemoryStorage, *recordingDispatcher) {
	t.Helper()
	store := testutil.NewMemoryStorage()
	dispatcher := &recordingDispatcher{}
	cfg := &config.Config{
		Github:    config.GithubConfig{WebhookSecret: "hook-secret"},
		Instagram: config.InstagramConfig{ClientSecret: "client-secret"},
		Facebook:  config.FacebookConfig{AppSecret: "app-secret", VerifyToken: "verify-tok"},
		Dropbox:   config.DropboxConfig{AppSecret: "box-secret"},
	}
	if instagramChannel == nil {
		instagramChannel = instagram.NewChannel(store, http.DefaultClient)
	}
	h := New(store, dispatcher, instagramChannel,
		facebook.NewChannel(store, http.DefaultClient),
		dropbox.NewChannel(store, http.DefaultClient), cfg, nil)
	return h, store, dispatcher
}

func signedGithubRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(body))
	r.Header.Set("X-Hub-Signature-256",
		"sha256="+signature.Sign(sha256.New, "hook-secret", []byte(body)))
	return r
}

func TestGithubWebhookFiresPushTrigger(t *testing.T) {
	h, store, dispatcher := newTestHandlers(t, nil)
	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      7,
		ChannelName: github.ChannelName,
		Identifier:  "alice",
	}))

	w := httptest.NewRecorder()
	h.HandleGithubWebhook(w, signedGithubRequest(pushBody))

	assert.Equal(t, http.StatusOK, w.Code)
	fired := dispatcher.Fired()
	require.Len(t, fired, 1)
	assert.Equal(t, github.ChannelName, fired[0].ChannelName)
	assert.Equal(t, github.TriggerPush, fired[0].TriggerType)
	assert.Equal(t, int64(7), fired[0].UserID)
	assert.Equal(t, "alice/test_repo", fired[0].Payload["repository_full_name"])
}

func TestGithubWebhookRejectsBadSignature(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(pushBody))
	r.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	w := httptest.NewRecorder()
	h.HandleGithubWebhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestGithubWebhookUnknownOwnerIsAcknowledged(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	w := httptest.NewRecorder()
	h.HandleGithubWebhook(w, signedGithubRequest(pushBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestGithubWebhookIgnoresNonPushEvents(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	body := `{"repository": {"full_name": "alice/test_repo", "owner": {"name": "alice"}}}`
	w := httptest.NewRecorder()
	h.HandleGithubWebhook(w, signedGithubRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestInstagramVerifyEchoesChallenge(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodGet,
		"/webhooks/instagram?hub.mode=subscribe&hub.challenge=challenge-42&hub.verify_token=tok", nil)
	w := httptest.NewRecorder()
	h.HandleInstagramVerify(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "challenge-42", w.Body.String())
}

func TestInstagramVerifyRejectsOtherModes(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/webhooks/instagram?hub.mode=noop", nil)
	w := httptest.NewRecorder()
	h.HandleInstagramVerify(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstagramWebhookFiresPhotoTriggers(t *testing.T) {
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{
			"type":"image",
			"link":"http://instagram.example/p/1",
			"tags":["sunset"],
			"caption":{"text":"lovely #sunset"},
			"images":{"standard_resolution":{"url":"http://img/std.jpg"}}}}`))
	}))
	defer media.Close()

	store := testutil.NewMemoryStorage()
	instagramChannel := instagram.NewChannelWithEndpoints(store, media.Client(),
		"https://api.instagram.com/v1/users/self/", media.URL+"/media/%s/")

	dispatcher := &recordingDispatcher{}
	cfg := &config.Config{
		Instagram: config.InstagramConfig{ClientSecret: "client-secret"},
	}
	h := New(store, dispatcher, instagramChannel,
		facebook.NewChannel(store, media.Client()),
		dropbox.NewChannel(store, media.Client()), cfg, nil)

	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      3,
		ChannelName: instagram.ChannelName,
		Identifier:  "111",
		AccessToken: "tok",
	}))

	body := `[{"object_id":"111","data":{"media_id":"m-1"}}]`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewBufferString(body))
	r.Header.Set("X-Hub-Signature", signature.Sign(sha1.New, "client-secret", []byte(body)))
	w := httptest.NewRecorder()
	h.HandleInstagramWebhook(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	fired := dispatcher.Fired()
	require.Len(t, fired, 2)
	assert.Equal(t, instagram.TriggerNewPhoto, fired[0].TriggerType)
	assert.Equal(t, instagram.TriggerNewPhotoWithTags, fired[1].TriggerType)
	assert.Equal(t, "lovely #sunset", fired[0].Payload["caption"])
}

func TestInstagramWebhookRejectsBadSignature(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	body := `[{"object_id":"111","data":{"media_id":"m-1"}}]`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/instagram", bytes.NewBufferString(body))
	r.Header.Set("X-Hub-Signature", "0000")
	w := httptest.NewRecorder()
	h.HandleInstagramWebhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestFacebookVerifyEchoesChallenge(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodGet,
		"/webhooks/facebook?hub.mode=subscribe&hub.challenge=challenge-9&hub.verify_token=verify-tok", nil)
	w := httptest.NewRecorder()
	h.HandleFacebookVerify(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "challenge-9", w.Body.String())
}

func TestFacebookVerifyRejectsWrongToken(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodGet,
		"/webhooks/facebook?hub.challenge=challenge-9&hub.verify_token=guess", nil)
	w := httptest.NewRecorder()
	h.HandleFacebookVerify(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func signedFacebookRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/facebook", bytes.NewBufferString(body))
	r.Header.Set("X-Hub-Signature",
		"sha1="+signature.Sign(sha1.New, "app-secret", []byte(body)))
	return r
}

func TestFacebookWebhookFiresFeedTriggers(t *testing.T) {
	graph := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"p2","type":"status","message":"second post",
			 "permalink_url":"http://fb/p2","created_time":"2026-08-30T12:00:00+0000"},
			{"id":"p1","type":"photo","message":"snap #trip",
			 "permalink_url":"http://fb/p1","created_time":"2026-08-30T11:00:00+0000"}]}`))
	}))
	defer graph.Close()

	store := testutil.NewMemoryStorage()
	dispatcher := &recordingDispatcher{}
	cfg := &config.Config{
		Facebook: config.FacebookConfig{AppSecret: "app-secret", VerifyToken: "verify-tok"},
	}
	h := New(store, dispatcher, instagram.NewChannel(store, graph.Client()),
		facebook.NewChannelWithGraphURL(store, graph.Client(), graph.URL),
		dropbox.NewChannel(store, graph.Client()), cfg, nil)

	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      5,
		ChannelName: facebook.ChannelName,
		Identifier:  "999",
		AccessToken: "tok",
	}))

	body := `{"object":"user","entry":[{"uid":999,"time":1756500000,"changed_fields":["statuses"]}]}`
	w := httptest.NewRecorder()
	h.HandleFacebookWebhook(w, signedFacebookRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	fired := dispatcher.Fired()
	require.Len(t, fired, 3)
	assert.Equal(t, facebook.TriggerNewPost, fired[0].TriggerType)
	assert.Equal(t, "second post", fired[0].Payload["message"])
	assert.Equal(t, facebook.TriggerNewPhoto, fired[1].TriggerType)
	assert.Equal(t, facebook.TriggerNewPhotoWithHashtag, fired[2].TriggerType)
	assert.Equal(t, int64(5), fired[0].UserID)
}

func TestFacebookWebhookRejectsBadSignature(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	body := `{"object":"user","entry":[{"uid":999,"changed_fields":["statuses"]}]}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/facebook", bytes.NewBufferString(body))
	r.Header.Set("X-Hub-Signature", "sha1=deadbeef")
	w := httptest.NewRecorder()
	h.HandleFacebookWebhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestFacebookWebhookUnknownUserIsAcknowledged(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	body := `{"object":"user","entry":[{"uid":12345,"changed_fields":["statuses"]}]}`
	w := httptest.NewRecorder()
	h.HandleFacebookWebhook(w, signedFacebookRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestDropboxVerifyEchoesChallenge(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	r := httptest.NewRequest(http.MethodGet, "/webhooks/dropbox?challenge=abc123", nil)
	w := httptest.NewRecorder()
	h.HandleDropboxVerify(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc123", w.Body.String())
}

func TestDropboxVerifyRequiresChallenge(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)

	w := httptest.NewRecorder()
	h.HandleDropboxVerify(w, httptest.NewRequest(http.MethodGet, "/webhooks/dropbox", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func signedDropboxRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/dropbox", bytes.NewBufferString(body))
	r.Header.Set("X-Dropbox-Signature", signature.Sign(sha256.New, "box-secret", []byte(body)))
	return r
}

func TestDropboxWebhookFiresFileTriggers(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/get_current_account":
			w.Write([]byte(`{"name":{"display_name":"Bob"},"email":"bob@example.com"}`))
		case "/files/list_folder":
			w.Write([]byte(`{"entries":[
				{".tag":"file","name":"song.mp3","path_display":"/music/song.mp3","size":4000000},
				{".tag":"folder","name":"music","path_display":"/music"}],
				"cursor":"cur-1","has_more":false}`))
		case "/files/get_temporary_link":
			w.Write([]byte(`{"link":"http://dl.example/song.mp3"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	store := testutil.NewMemoryStorage()
	dispatcher := &recordingDispatcher{}
	cfg := &config.Config{
		Dropbox: config.DropboxConfig{AppSecret: "box-secret"},
	}
	h := New(store, dispatcher, instagram.NewChannel(store, api.Client()),
		facebook.NewChannel(store, api.Client()),
		dropbox.NewChannelWithEndpoints(store, api.Client(), api.URL, api.URL), cfg, nil)

	require.NoError(t, store.SaveAccount(&storage.Account{
		UserID:      9,
		ChannelName: dropbox.ChannelName,
		Identifier:  "555",
		AccessToken: "tok",
	}))

	body := `{"delta":{"users":[555]}}`
	w := httptest.NewRecorder()
	h.HandleDropboxWebhook(w, signedDropboxRequest(body))

	assert.Equal(t, http.StatusOK, w.Code)
	fired := dispatcher.Fired()
	// The first profile fetch only records a baseline, so just the file fires.
	require.Len(t, fired, 2)
	assert.Equal(t, dropbox.TriggerNewAudio, fired[0].TriggerType)
	assert.Equal(t, dropbox.TriggerFilesChange, fired[1].TriggerType)
	assert.Equal(t, "song.mp3", fired[0].Payload["filename"])
	assert.Equal(t, "http://dl.example/song.mp3", fired[0].Payload["url"])
	assert.Equal(t, int64(9), fired[0].UserID)

	account, err := store.GetAccountByIdentifier(dropbox.ChannelName, "555")
	require.NoError(t, err)
	assert.Contains(t, account.Extra, "cur-1")
}

func TestDropboxWebhookRejectsBadSignature(t *testing.T) {
	h, _, dispatcher := newTestHandlers(t, nil)

	body := `{"delta":{"users":[555]}}`
	r := httptest.NewRequest(http.MethodPost, "/webhooks/dropbox", bytes.NewBufferString(body))
	r.Header.Set("X-Dropbox-Signature", "deadbeef")
	w := httptest.NewRecorder()
	h.HandleDropboxWebhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, dispatcher.Fired())
}

func TestRouterRoutes(t *testing.T) {
	h, _, _ := newTestHandlers(t, nil)
	router := NewRouter(h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhooks/github", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/webhooks/dropbox?challenge=ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ping", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/webhooks/facebook?hub.challenge=c&hub.verify_token=verify-tok", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
