package downloader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubemirror/internal/domain"
	"tubemirror/internal/downloader"
)

func TestHTTPWorker_ScanChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/channels/UC1234/scan", r.URL.Path)
		assert.Equal(t, "shorts", r.URL.Query().Get("kind"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"found": 12, "queued": 3}`))
	}))
	defer server.Close()

	worker := downloader.NewHTTPWorker(downloader.WithBaseURL(server.URL))
	result, err := worker.ScanChannel(context.Background(), &domain.Channel{ProviderObjectID: "UC1234"}, downloader.ScanShorts, 50)
	require.NoError(t, err)

	assert.Equal(t, 12, result.Found)
	assert.Equal(t, 3, result.Queued)
}

func TestHTTPWorker_SyncPlaylistNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	worker := downloader.NewHTTPWorker(downloader.WithBaseURL(server.URL))
	_, err := worker.SyncPlaylist(context.Background(), &domain.Playlist{ProviderObjectID: "PLgone"})
	require.ErrorIs(t, err, downloader.ErrNotFoundUpstream)
}

func TestHTTPWorker_RenameFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/UC1234/rename", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	worker := downloader.NewHTTPWorker(downloader.WithBaseURL(server.URL))
	err := worker.RenameFiles(context.Background(), &domain.Channel{ProviderObjectID: "UC1234"})
	require.NoError(t, err)
}

func TestHTTPWorker_ServerErrorCarriesReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "yt-dlp crashed"}`))
	}))
	defer server.Close()

	worker := downloader.NewHTTPWorker(downloader.WithBaseURL(server.URL))
	_, err := worker.ScanChannel(context.Background(), &domain.Channel{ProviderObjectID: "UC1"}, downloader.ScanVideos, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yt-dlp crashed")
}
