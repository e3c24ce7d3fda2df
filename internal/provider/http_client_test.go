package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubemirror/internal/domain"
	"tubemirror/internal/provider"
)

func TestHTTPClient_ChannelDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/UC1234", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "UC1234",
			"channel": "Example",
			"description": "about",
			"uploader_id": "@example",
			"thumbnails": [{"id": "avatar_uncropped", "url": "https://img/a.jpg"}]
		}`))
	}))
	defer server.Close()

	client := provider.NewHTTPClient(provider.WithBaseURL(server.URL))
	details, err := client.ChannelDetails(context.Background(), &domain.Channel{ProviderObjectID: "UC1234"})
	require.NoError(t, err)

	assert.Equal(t, "Example", details.Name)
	assert.Equal(t, "@example", details.UploaderID)
	require.Len(t, details.Thumbnails, 1)
	assert.Equal(t, "avatar_uncropped", details.Thumbnails[0].ID)
}

func TestHTTPClient_TerminatedChannelBecomesDownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "This account has been terminated"}`))
	}))
	defer server.Close()

	client := provider.NewHTTPClient(provider.WithBaseURL(server.URL))
	_, err := client.ChannelDetails(context.Background(), &domain.Channel{ProviderObjectID: "UCgone"})
	require.Error(t, err)

	var dlErr *provider.DownloadError
	require.ErrorAs(t, err, &dlErr)

	status, terminal := dlErr.TerminalStatus()
	assert.True(t, terminal)
	assert.Equal(t, domain.ChannelTerminated, status)
}

func TestHTTPClient_ChannelPlaylists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/UC1234/playlists", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries": [{"id": "PL1", "title": "First"}]}`))
	}))
	defer server.Close()

	client := provider.NewHTTPClient(provider.WithBaseURL(server.URL))
	listing, err := client.ChannelPlaylists(context.Background(), &domain.Channel{ProviderObjectID: "UC1234"})
	require.NoError(t, err)

	require.Len(t, listing.Entries, 1)
	assert.Equal(t, "PL1", listing.Entries[0].ID)
}

func TestDownloadError_TerminalStatus(t *testing.T) {
	tests := []struct {
		name     string
		reason   string
		status   domain.ChannelStatus
		terminal bool
	}{
		{"terminated", "This account has been terminated", domain.ChannelTerminated, true},
		{"banned", "the uploader is banned", domain.ChannelBanned, true},
		{"transient", "connection reset by peer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &provider.DownloadError{Reason: tt.reason}
			status, terminal := err.TerminalStatus()
			assert.Equal(t, tt.terminal, terminal)
			assert.Equal(t, tt.status, status)
		})
	}
}
