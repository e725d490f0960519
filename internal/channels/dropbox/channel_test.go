package dropbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
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
		AccessToken: "dbx-token",
	}))
}

func TestFillRecipeMappingsTextFields(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 1)

	payload := channels.Payload{"path": "/notes/todo.txt", "name": "todo.txt"}
	mappings := map[string]interface{}{
		"status": "changed %name% at %path%",
		"count":  3,
	}

	filled, err := ch.FillRecipeMappings(context.Background(), TriggerFilesChange, 1,
		payload, nil, mappings)
	require.NoError(t, err)

	assert.Equal(t, "changed todo.txt at /notes/todo.txt", filled["status"])
	assert.Equal(t, 3, filled["count"])
}

func TestFillRecipeMappingsConditionEquality(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 1)

	payload := channels.Payload{"name": "report.pdf"}

	_, err := ch.FillRecipeMappings(context.Background(), TriggerFilesChange, 1,
		payload, map[string]string{"name": "report.pdf"}, map[string]interface{}{})
	assert.NoError(t, err)

	_, err = ch.FillRecipeMappings(context.Background(), TriggerFilesChange, 1,
		payload, map[string]string{"name": "other.pdf"}, map[string]interface{}{})
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsDownloadsDataFields(t *testing.T) {
	content := []byte("file bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/download", r.URL.Path)
		assert.Equal(t, "Bearer dbx-token", r.Header.Get("Authorization"))

		var arg struct {
			Path string `json:"path"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/photos/sunset.jpg", arg.Path)
		w.Write(content)
	}))
	defer server.Close()

	ch, store := newTestChannel(t, server.Client())
	ch.contentBaseURL = server.URL
	seedAccount(t, store, 1)

	payload := channels.Payload{"path": "/photos/sunset.jpg", "size": float64(2048)}
	mappings := map[string]interface{}{"image": "%jpg%"}

	filled, err := ch.FillRecipeMappings(context.Background(), TriggerNewMedia, 1,
		payload, nil, mappings)
	require.NoError(t, err)
	assert.Equal(t, content, filled["image"])
}

func TestFillRecipeMappingsRejectsOversizedFile(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 1)

	payload := channels.Payload{"path": "/big.bin", "size": float64(maxDownloadBytes)}
	_, err := ch.FillRecipeMappings(context.Background(), TriggerNewMedia, 1,
		payload, nil, map[string]interface{}{"data": "%data%"})
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestFillRecipeMappingsUnknownTrigger(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 1)

	_, err := ch.FillRecipeMappings(context.Background(), 42, 1,
		channels.Payload{}, nil, map[string]interface{}{})
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestHandleActionUpload(t *testing.T) {
	var gotBody []byte
	var gotMode string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/upload", r.URL.Path)

		var arg struct {
			Path string `json:"path"`
			Mode string `json:"mode"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
		assert.Equal(t, "/backup/out.txt", arg.Path)
		gotMode = arg.Mode

		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch, store := newTestChannel(t, server.Client())
	ch.contentBaseURL = server.URL
	seedAccount(t, store, 1)

	err := ch.HandleAction(context.Background(), ActionUpload, 1, map[string]interface{}{
		"data":      []byte("payload"),
		"path":      "/backup/out.txt",
		"overwrite": true,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), gotBody)
	assert.Equal(t, "overwrite", gotMode)
}

func TestHandleActionDownloadToDestination(t *testing.T) {
	content := []byte("roundtrip")
	var uploadedTo string
	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/download":
			w.Write(content)
		case "/files/upload":
			var arg struct {
				Path string `json:"path"`
			}
			require.NoError(t, json.Unmarshal([]byte(r.Header.Get("Dropbox-API-Arg")), &arg))
			uploadedTo = arg.Path
			uploaded, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	ch, store := newTestChannel(t, server.Client())
	ch.contentBaseURL = server.URL
	seedAccount(t, store, 1)

	err := ch.HandleAction(context.Background(), ActionDownloadToDestination, 1,
		map[string]interface{}{"path_from": "/a.txt", "path_to": "/b.txt"})
	require.NoError(t, err)
	assert.Equal(t, "/b.txt", uploadedTo)
	assert.Equal(t, content, uploaded)
}

func TestHandleActionValidation(t *testing.T) {
	ch, store := newTestChannel(t, nil)
	seedAccount(t, store, 1)

	err := ch.HandleAction(context.Background(), ActionUpload, 1,
		map[string]interface{}{"path": "/x"})
	assert.Error(t, err)

	err = ch.HandleAction(context.Background(), ActionDownload, 1, map[string]interface{}{})
	assert.Error(t, err)

	err = ch.HandleAction(context.Background(), 77, 1, map[string]interface{}{})
	assert.ErrorIs(t, err, channels.ErrNotSupportedAction)
}

func TestUserIsConnected(t *testing.T) {
	ch, store := newTestChannel(t, nil)

	state, err := ch.UserIsConnected(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)

	seedAccount(t, store, 5)

	state, err = ch.UserIsConnected(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)
}

func TestSynopses(t *testing.T) {
	ch, _ := newTestChannel(t, nil)

	assert.Equal(t, "files change in your Dropbox", ch.TriggerSynopsis(TriggerFilesChange, nil))
	assert.Equal(t, "upload a file to your Dropbox", ch.ActionSynopsis(ActionUpload, nil))
	assert.Contains(t, ch.TriggerSynopsis(99, nil), "Dropbox")
}
