package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/common/errors"
)

func TestNewClientOptions(t *testing.T) {
	client := NewClient(WithTimeout(5 * time.Second))
	assert.Equal(t, 5*time.Second, client.Timeout)

	def := NewDefaultClient()
	assert.Equal(t, 30*time.Second, def.Timeout)
}

func TestDownloadFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	data, err := DownloadFile(context.Background(), NewDefaultClient(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestDownloadFileBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := DownloadFile(context.Background(), NewDefaultClient(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProvider))
}

func TestDownloadFileConnectionError(t *testing.T) {
	_, err := DownloadFile(context.Background(), NewDefaultClient(), "http://127.0.0.1:1/missing")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}
