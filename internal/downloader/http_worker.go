package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tubemirror/internal/domain"
)

const (
	// DefaultBaseURL is the default base URL for the download worker.
	DefaultBaseURL = "http://localhost:8556"
	// DefaultTimeout is generous: a scan can enumerate hundreds of items.
	DefaultTimeout = 5 * time.Minute

	maxErrorBodyBytes = 4096
)

// HTTPWorker is a Worker backed by the download worker's HTTP API.
type HTTPWorker struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an HTTPWorker.
type Option func(*HTTPWorker)

// WithBaseURL sets the base URL for the download worker.
func WithBaseURL(baseURL string) Option {
	return func(w *HTTPWorker) {
		w.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(w *HTTPWorker) {
		w.httpClient = httpClient
	}
}

// WithTimeout sets the timeout for download worker requests.
func WithTimeout(timeout time.Duration) Option {
	return func(w *HTTPWorker) {
		w.httpClient.Timeout = timeout
	}
}

// NewHTTPWorker creates a new download worker client.
func NewHTTPWorker(opts ...Option) *HTTPWorker {
	worker := &HTTPWorker{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(worker)
	}

	return worker
}

// ScanChannel enumerates recent channel items of one kind.
func (w *HTTPWorker) ScanChannel(ctx context.Context, channel *domain.Channel, kind ScanKind, limit int) (*ScanResult, error) {
	path := "channels/" + url.PathEscape(channel.ProviderObjectID) + "/scan" +
		"?kind=" + url.QueryEscape(string(kind)) +
		"&limit=" + strconv.Itoa(limit)

	var result ScanResult
	if err := w.post(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncPlaylist reconciles the playlist's membership with the provider.
func (w *HTTPWorker) SyncPlaylist(ctx context.Context, playlist *domain.Playlist) (*SyncResult, error) {
	path := "playlists/" + url.PathEscape(playlist.ProviderObjectID) + "/sync"

	var result SyncResult
	if err := w.post(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RenameFiles renames the channel's files to the current naming scheme.
func (w *HTTPWorker) RenameFiles(ctx context.Context, channel *domain.Channel) error {
	path := "channels/" + url.PathEscape(channel.ProviderObjectID) + "/rename"
	return w.post(ctx, path, nil)
}

// post performs a POST against the download worker and decodes the JSON
// response. A 404 becomes ErrNotFoundUpstream.
func (w *HTTPWorker) post(ctx context.Context, path string, out any) error {
	endpoint, err := url.JoinPath(w.baseURL, path)
	if err != nil {
		return fmt.Errorf("failed to construct URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download worker request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", path, ErrNotFoundUpstream)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("download worker returned %s: %s", resp.Status, readErrorBody(resp))
	}

	if out == nil {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return nil
}

func readErrorBody(resp *http.Response) string {
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
