package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"tubemirror/internal/domain"
)

const playlistColumns = `
	id, channel_id, provider_object_id, provider_object_id_old, title, crontab,
	not_found_failures, videos_playback_ordering,
	previous_playlist_id, next_playlist_id, created_at, updated_at`

// PlaylistRepository handles database operations for playlists.
type PlaylistRepository struct {
	db *sqlx.DB
}

// NewPlaylistRepository creates a new playlist repository.
func NewPlaylistRepository(db *sqlx.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist and fills in its generated fields.
func (r *PlaylistRepository) Create(ctx context.Context, playlist *domain.Playlist) error {
	if playlist.VideosPlaybackOrdering == "" {
		playlist.VideosPlaybackOrdering = domain.OrderingDefault
	}

	query := `
		INSERT INTO playlists (
			channel_id, provider_object_id, provider_object_id_old,
			title, crontab, videos_playback_ordering
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		playlist.ChannelID,
		playlist.ProviderObjectID,
		playlist.ProviderObjectIDOld,
		playlist.Title,
		playlist.Crontab,
		playlist.VideosPlaybackOrdering,
	).Scan(&playlist.ID, &playlist.CreatedAt, &playlist.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	return nil
}

// GetByID retrieves a playlist by its local id.
func (r *PlaylistRepository) GetByID(ctx context.Context, id int64) (*domain.Playlist, error) {
	var playlist domain.Playlist
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = $1`

	err := r.db.GetContext(ctx, &playlist, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	return &playlist, nil
}

// FindByProviderObjectID looks up a playlist by its external key. Both the
// current and the legacy alias column count as a match.
func (r *PlaylistRepository) FindByProviderObjectID(ctx context.Context, providerObjectID string) (*domain.Playlist, error) {
	var playlist domain.Playlist
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE provider_object_id = $1 OR provider_object_id_old = $1
	`

	err := r.db.GetContext(ctx, &playlist, query, providerObjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("playlist %s: %w", providerObjectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find playlist: %w", err)
	}

	return &playlist, nil
}

// ListScheduled returns playlists with a non-empty sync crontab.
func (r *PlaylistRepository) ListScheduled(ctx context.Context) ([]*domain.Playlist, error) {
	var playlists []*domain.Playlist
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE crontab <> '' ORDER BY id`

	err := r.db.SelectContext(ctx, &playlists, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled playlists: %w", err)
	}

	if playlists == nil {
		playlists = []*domain.Playlist{}
	}

	return playlists, nil
}

// IncrementNotFoundFailures bumps the consecutive not-found counter.
func (r *PlaylistRepository) IncrementNotFoundFailures(ctx context.Context, id int64) error {
	query := `
		UPDATE playlists
		SET not_found_failures = not_found_failures + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment not found failures: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}

	return nil
}

// ResetNotFoundFailures clears the counter after a successful sync.
func (r *PlaylistRepository) ResetNotFoundFailures(ctx context.Context, id int64) error {
	query := `
		UPDATE playlists
		SET not_found_failures = 0, updated_at = NOW()
		WHERE id = $1 AND not_found_failures <> 0
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to reset not found failures: %w", err)
	}

	return nil
}
