package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tubemirror/internal/domain"
)

const (
	// DefaultBaseURL is the default base URL for the metadata fetcher.
	DefaultBaseURL = "http://localhost:8555"
	// DefaultTimeout is the default timeout for fetcher requests.
	DefaultTimeout = 30 * time.Second

	maxErrorBodyBytes = 4096
)

// HTTPClient is a Client backed by the external metadata fetcher's HTTP API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures an HTTPClient.
type Option func(*HTTPClient)

// WithBaseURL sets the base URL for the fetcher.
func WithBaseURL(baseURL string) Option {
	return func(c *HTTPClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout for fetcher requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewHTTPClient creates a new metadata fetcher client.
func NewHTTPClient(opts ...Option) *HTTPClient {
	client := &HTTPClient{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ChannelDetails fetches the channel's remote metadata.
func (c *HTTPClient) ChannelDetails(ctx context.Context, channel *domain.Channel) (*ChannelDetailsResponse, error) {
	var response ChannelDetailsResponse
	if err := c.get(ctx, "channels/"+url.PathEscape(channel.ProviderObjectID), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ChannelPlaylists fetches the channel's remote playlist listing.
func (c *HTTPClient) ChannelPlaylists(ctx context.Context, channel *domain.Channel) (*ChannelPlaylistsResponse, error) {
	var response ChannelPlaylistsResponse
	if err := c.get(ctx, "channels/"+url.PathEscape(channel.ProviderObjectID)+"/playlists", &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// get performs a GET against the fetcher and decodes the JSON response.
// Non-2xx responses become DownloadErrors carrying the fetcher's reason.
func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to construct URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DownloadError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &DownloadError{Reason: readErrorReason(resp)}
	}

	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}

// readErrorReason extracts the fetcher's error wording from a failed
// response. The fetcher reports terminal conditions ("this account has been
// terminated", "user is banned") in the error field.
func readErrorReason(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var payload struct {
		Error string `json:"error"`
	}
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr == nil && payload.Error != "" {
		return payload.Error
	}

	return string(body)
}
