package domain

import (
	"time"
)

// PlaybackOrdering controls how the playback UI orders a playlist's videos.
// Opaque to the scheduling core.
type PlaybackOrdering string

const (
	OrderingDefault      PlaybackOrdering = "default"
	OrderingAudio        PlaybackOrdering = "audio"
	OrderingVideoReverse PlaybackOrdering = "video_reverse"
)

// Playlist represents a remote playlist mirrored into the local library.
type Playlist struct {
	ID        int64  `db:"id" json:"id"`
	ChannelID *int64 `db:"channel_id" json:"channel_id,omitempty"`

	ProviderObjectID string `db:"provider_object_id" json:"provider_object_id"`
	// ProviderObjectIDOld is a legacy alias for the provider id. Both columns
	// participate in mirror dedup.
	ProviderObjectIDOld *string `db:"provider_object_id_old" json:"provider_object_id_old,omitempty"`

	Title string `db:"title" json:"title"`

	// Crontab is the playlist's sync schedule. Empty means not auto-synced.
	Crontab string `db:"crontab" json:"crontab"`

	// NotFoundFailures counts consecutive sync attempts where the provider
	// reported the playlist missing. Drives auto-disable elsewhere.
	NotFoundFailures int `db:"not_found_failures" json:"not_found_failures"`

	VideosPlaybackOrdering PlaybackOrdering `db:"videos_playback_ordering" json:"videos_playback_ordering"`
	PreviousPlaylistID     *int64           `db:"previous_playlist_id" json:"previous_playlist_id,omitempty"`
	NextPlaylistID         *int64           `db:"next_playlist_id" json:"next_playlist_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Video represents an owned-by-channel media record. The scheduling core only
// reads whether a local artifact exists.
type Video struct {
	ID               int64     `db:"id" json:"id"`
	ChannelID        int64     `db:"channel_id" json:"channel_id"`
	ProviderObjectID string    `db:"provider_object_id" json:"provider_object_id"`
	Title            string    `db:"title" json:"title"`
	FilePath         string    `db:"file_path" json:"file_path"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// HasFile reports whether a local artifact has been downloaded for the video.
func (v *Video) HasFile() bool {
	return v.FilePath != ""
}
