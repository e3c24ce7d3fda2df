// Package domain provides domain models used across the application.
package domain

import (
	"time"
)

// ChannelStatus represents the lifecycle status of a tracked channel.
type ChannelStatus string

const (
	// ChannelActive means the channel is eligible for scheduled scanning.
	ChannelActive ChannelStatus = "active"
	// ChannelTerminated means the provider reported the channel as terminated.
	ChannelTerminated ChannelStatus = "terminated"
	// ChannelPaused means scanning is suspended by the operator.
	ChannelPaused ChannelStatus = "paused"
	// ChannelBanned means the provider reported the channel as banned.
	ChannelBanned ChannelStatus = "banned"
	// ChannelDeleted means the channel was removed from the catalog.
	ChannelDeleted ChannelStatus = "deleted"
)

// MirrorCrontab selects the schedule class assigned to playlists discovered
// through playlist mirroring.
type MirrorCrontab string

const (
	MirrorHourly  MirrorCrontab = "hourly"
	MirrorDaily   MirrorCrontab = "daily"
	MirrorWeekly  MirrorCrontab = "weekly"
	MirrorMonthly MirrorCrontab = "monthly"
)

// Channel represents a remote channel mirrored into the local library.
type Channel struct {
	ID               int64         `db:"id" json:"id"`
	ProviderObjectID string        `db:"provider_object_id" json:"provider_object_id"`
	Status           ChannelStatus `db:"status" json:"status"`

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	UploaderID  string `db:"uploader_id" json:"uploader_id"`

	// ScannerCrontab is the channel's scan schedule. Empty means the channel
	// never auto-scans.
	ScannerCrontab string `db:"scanner_crontab" json:"scanner_crontab"`
	// ScanAfterDatetime forces a dispatch once the instant has elapsed,
	// regardless of the crontab or the suppression window.
	ScanAfterDatetime *time.Time `db:"scan_after_datetime" json:"scan_after_datetime,omitempty"`

	IndexVideos      bool `db:"index_videos" json:"index_videos"`
	IndexShorts      bool `db:"index_shorts" json:"index_shorts"`
	IndexLivestreams bool `db:"index_livestreams" json:"index_livestreams"`

	MirrorPlaylists        bool          `db:"mirror_playlists" json:"mirror_playlists"`
	MirrorPlaylistsCrontab MirrorCrontab `db:"mirror_playlists_crontab" json:"mirror_playlists_crontab"`

	// Artwork URLs resolved by the art refresh task.
	ThumbnailURL string `db:"thumbnail_url" json:"thumbnail_url"`
	BannerURL    string `db:"banner_url" json:"banner_url"`
	TVArtURL     string `db:"tvart_url" json:"tvart_url"`

	NotificationsEnabled bool `db:"notifications_enabled" json:"notifications_enabled"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Scannable reports whether the channel is eligible for scheduled scanning.
func (c *Channel) Scannable() bool {
	return c.Status == ChannelActive
}

// WantsAnyScan reports whether the channel has opted into at least one scan
// kind. A channel with no truthy index flag yields zero scanner tasks.
func (c *Channel) WantsAnyScan() bool {
	return c.IndexVideos || c.IndexShorts || c.IndexLivestreams
}
