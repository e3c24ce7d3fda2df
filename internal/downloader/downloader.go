// Package downloader talks to the external download worker, the service that
// owns yt-dlp and the media files on disk. The scheduling core only tells it
// what to scan, sync or rename; downloading itself happens out of process.
package downloader

import (
	"context"
	"errors"

	"tubemirror/internal/domain"
)

// ErrNotFoundUpstream is returned when the download worker reports that the
// subject no longer exists at the provider.
var ErrNotFoundUpstream = errors.New("not found upstream")

// ScanKind selects which upload tab a channel scan enumerates.
type ScanKind string

const (
	ScanVideos      ScanKind = "videos"
	ScanShorts      ScanKind = "shorts"
	ScanLivestreams ScanKind = "livestreams"
)

// ScanResult summarizes one channel scan.
type ScanResult struct {
	// Found is how many items the scan enumerated.
	Found int `json:"found"`
	// Queued is how many of them were new and queued for download.
	Queued int `json:"queued"`
}

// SyncResult summarizes one playlist sync.
type SyncResult struct {
	// Entries is the playlist's current size upstream.
	Entries int `json:"entries"`
	// Added and Removed are the membership changes applied locally.
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Worker is the interface to the external download worker.
type Worker interface {
	// ScanChannel enumerates up to limit recent items of one kind and queues
	// the new ones for download.
	ScanChannel(ctx context.Context, channel *domain.Channel, kind ScanKind, limit int) (*ScanResult, error)
	// SyncPlaylist reconciles the playlist's local membership with the
	// provider. Returns ErrNotFoundUpstream when the playlist is gone.
	SyncPlaylist(ctx context.Context, playlist *domain.Playlist) (*SyncResult, error)
	// RenameFiles renames the channel's on-disk files to the current naming
	// scheme.
	RenameFiles(ctx context.Context, channel *domain.Channel) error
}
