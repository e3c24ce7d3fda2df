// Package provider defines the interface to the external metadata fetcher
// and the response and error types it produces.
package provider

import (
	"context"
	"strings"

	"tubemirror/internal/domain"
)

// Client fetches remote metadata for channels and playlists.
type Client interface {
	// ChannelDetails fetches the channel's remote metadata, including
	// artwork thumbnails.
	ChannelDetails(ctx context.Context, channel *domain.Channel) (*ChannelDetailsResponse, error)
	// ChannelPlaylists fetches the channel's remote playlist listing.
	ChannelPlaylists(ctx context.Context, channel *domain.Channel) (*ChannelPlaylistsResponse, error)
}

// Thumbnail is one artwork entry in a channel details response.
type Thumbnail struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ChannelDetailsResponse is the remote metadata for a channel.
type ChannelDetailsResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"channel"`
	Description string      `json:"description"`
	UploaderID  string      `json:"uploader_id"`
	Thumbnails  []Thumbnail `json:"thumbnails"`
}

// PlaylistEntry is one playlist in a channel playlists response.
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ChannelPlaylistsResponse is the remote playlist listing for a channel.
// Entries is nil when the provider returned a payload without entries, which
// callers treat as transient.
type ChannelPlaylistsResponse struct {
	Entries []PlaylistEntry `json:"entries"`
}

// DownloadError is the failure reported by the metadata fetcher. The reason
// string carries the provider's wording, which is matched against known
// terminal phrases.
type DownloadError struct {
	Reason string
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return "download error: " + e.Reason
}

// Terminal phrases the provider uses for channels that no longer exist.
const (
	phraseTerminated = "terminated"
	phraseBanned     = "banned"
)

// TerminalStatus maps a known terminal reason to the channel status it
// implies. The second return is false for transient or unknown reasons.
func (e *DownloadError) TerminalStatus() (domain.ChannelStatus, bool) {
	reason := strings.ToLower(e.Reason)
	switch {
	case strings.Contains(reason, phraseTerminated):
		return domain.ChannelTerminated, true
	case strings.Contains(reason, phraseBanned):
		return domain.ChannelBanned, true
	default:
		return "", false
	}
}
