package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"tubemirror/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

const channelColumns = `
	id, provider_object_id, status, name, description, uploader_id,
	scanner_crontab, scan_after_datetime,
	index_videos, index_shorts, index_livestreams,
	mirror_playlists, mirror_playlists_crontab,
	thumbnail_url, banner_url, tvart_url,
	notifications_enabled, created_at, updated_at`

// ChannelRepository handles database operations for channels.
type ChannelRepository struct {
	db *sqlx.DB
}

// NewChannelRepository creates a new channel repository.
func NewChannelRepository(db *sqlx.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a new channel and fills in its generated fields.
func (r *ChannelRepository) Create(ctx context.Context, channel *domain.Channel) error {
	query := `
		INSERT INTO channels (
			provider_object_id, status, name, description, uploader_id,
			scanner_crontab, scan_after_datetime,
			index_videos, index_shorts, index_livestreams,
			mirror_playlists, mirror_playlists_crontab, notifications_enabled
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		channel.ProviderObjectID,
		channel.Status,
		channel.Name,
		channel.Description,
		channel.UploaderID,
		channel.ScannerCrontab,
		channel.ScanAfterDatetime,
		channel.IndexVideos,
		channel.IndexShorts,
		channel.IndexLivestreams,
		channel.MirrorPlaylists,
		channel.MirrorPlaylistsCrontab,
		channel.NotificationsEnabled,
	).Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	return nil
}

// GetByID retrieves a channel by its local id.
func (r *ChannelRepository) GetByID(ctx context.Context, id int64) (*domain.Channel, error) {
	var channel domain.Channel
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1`

	err := r.db.GetContext(ctx, &channel, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &channel, nil
}

// GetByProviderObjectID retrieves a channel by its external key.
func (r *ChannelRepository) GetByProviderObjectID(ctx context.Context, providerObjectID string) (*domain.Channel, error) {
	var channel domain.Channel
	query := `SELECT ` + channelColumns + ` FROM channels WHERE provider_object_id = $1`

	err := r.db.GetContext(ctx, &channel, query, providerObjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %s: %w", providerObjectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &channel, nil
}

// ListScanCandidates returns active channels with a crontab or an elapsed
// scan-after instant. This is the trigger engine's candidate enumeration.
func (r *ChannelRepository) ListScanCandidates(ctx context.Context, now time.Time) ([]*domain.Channel, error) {
	var channels []*domain.Channel
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE status = $1
		  AND (scanner_crontab <> '' OR scan_after_datetime <= $2)
		ORDER BY id
	`

	err := r.db.SelectContext(ctx, &channels, query, domain.ChannelActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan candidates: %w", err)
	}

	if channels == nil {
		channels = []*domain.Channel{}
	}

	return channels, nil
}

// ListMirrorEnabled returns active channels with playlist mirroring on.
func (r *ChannelRepository) ListMirrorEnabled(ctx context.Context) ([]*domain.Channel, error) {
	var channels []*domain.Channel
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE status = $1 AND mirror_playlists = TRUE
		ORDER BY id
	`

	err := r.db.SelectContext(ctx, &channels, query, domain.ChannelActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirror-enabled channels: %w", err)
	}

	if channels == nil {
		channels = []*domain.Channel{}
	}

	return channels, nil
}

// UpdateDetails persists the remote metadata fields.
func (r *ChannelRepository) UpdateDetails(ctx context.Context, id int64, name, description, uploaderID string) error {
	query := `
		UPDATE channels
		SET name = $1, description = $2, uploader_id = $3, updated_at = NOW()
		WHERE id = $4
	`

	return r.exec(ctx, query, "update channel details", name, description, uploaderID, id)
}

// UpdateStatus transitions a channel's lifecycle status.
func (r *ChannelRepository) UpdateStatus(ctx context.Context, id int64, status domain.ChannelStatus) error {
	query := `UPDATE channels SET status = $1, updated_at = NOW() WHERE id = $2`

	return r.exec(ctx, query, "update channel status", status, id)
}

// UpdateArtwork persists the artwork URLs resolved by the art refresh task.
func (r *ChannelRepository) UpdateArtwork(ctx context.Context, id int64, thumbnailURL, bannerURL, tvArtURL string) error {
	query := `
		UPDATE channels
		SET thumbnail_url = $1, banner_url = $2, tvart_url = $3, updated_at = NOW()
		WHERE id = $4
	`

	return r.exec(ctx, query, "update channel artwork", thumbnailURL, bannerURL, tvArtURL, id)
}

// ClearScanAfter resets the force-scan instant after a successful dispatch.
func (r *ChannelRepository) ClearScanAfter(ctx context.Context, id int64) error {
	query := `UPDATE channels SET scan_after_datetime = NULL, updated_at = NOW() WHERE id = $1`

	return r.exec(ctx, query, "clear scan after", id)
}

// exec runs an update and verifies it touched a row.
func (r *ChannelRepository) exec(ctx context.Context, query, action string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", action, ErrNotFound)
	}

	return nil
}
