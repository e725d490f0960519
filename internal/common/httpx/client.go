// Package httpx provides the shared HTTP client used by channel
// implementations for provider API calls and media downloads.
package httpx

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"daisychain/internal/common/errors"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	DisableKeepAlives   bool
	InsecureSkipVerify  bool
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithTransport sets a custom transport, primarily for testing
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// WithoutKeepAlives disables HTTP keep-alives
func WithoutKeepAlives() ClientOption {
	return func(c *ClientConfig) {
		c.DisableKeepAlives = true
	}
}

// WithInsecureSkipVerify disables TLS certificate verification
func WithInsecureSkipVerify() ClientOption {
	return func(c *ClientConfig) {
		c.InsecureSkipVerify = true
	}
}

// NewClient creates an *http.Client from the supplied options
func NewClient(opts ...ClientOption) *http.Client {
	config := DefaultClientConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Transport != nil {
		return &http.Client{
			Timeout:   config.Timeout,
			Transport: config.Transport,
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableKeepAlives:   config.DisableKeepAlives,
	}
	if config.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}
}

// NewDefaultClient creates an *http.Client with default configuration
func NewDefaultClient() *http.Client {
	return NewClient()
}

// DownloadFile fetches the resource at url and returns its bytes.
// Channels use this to resolve media placeholders into binary content.
func DownloadFile(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.InternalError("building download request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("downloading %s", url), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ProviderError("download", fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, url), nil).
			WithCode(fmt.Sprintf("%d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ConnectionError(fmt.Sprintf("reading body of %s", url), err)
	}
	return data, nil
}
