package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// VideoRepository handles database operations for videos. The scheduling core
// only needs to know whether a channel has downloaded artifacts.
type VideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository creates a new video repository.
func NewVideoRepository(db *sqlx.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// ChannelHasFiles reports whether any video under the channel has a local
// artifact.
func (r *VideoRepository) ChannelHasFiles(ctx context.Context, channelID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM videos WHERE channel_id = $1 AND file_path <> '')`

	err := r.db.GetContext(ctx, &exists, query, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to check channel files: %w", err)
	}

	return exists, nil
}
