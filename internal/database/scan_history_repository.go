package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tubemirror/internal/domain"
)

// ScanHistoryRepository handles the append-only scan log.
type ScanHistoryRepository struct {
	db *sqlx.DB
}

// NewScanHistoryRepository creates a new scan history repository.
func NewScanHistoryRepository(db *sqlx.DB) *ScanHistoryRepository {
	return &ScanHistoryRepository{db: db}
}

// Create appends a new entry. A missing id or outcome gets defaults.
func (r *ScanHistoryRepository) Create(ctx context.Context, entry *domain.ScanHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Outcome == "" {
		entry.Outcome = domain.ScanPending
	}

	query := `
		INSERT INTO scan_history (id, subject_kind, subject_id, outcome)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		entry.ID,
		entry.SubjectKind,
		entry.SubjectID,
		entry.Outcome,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create scan history entry: %w", err)
	}

	return nil
}

// Finish records the terminal outcome of a scan. Entries are immutable after
// this single update.
func (r *ScanHistoryRepository) Finish(ctx context.Context, id string, outcome domain.ScanOutcome) error {
	query := `
		UPDATE scan_history
		SET outcome = $1, finished_at = NOW()
		WHERE id = $2 AND finished_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, outcome, id)
	if err != nil {
		return fmt.Errorf("failed to finish scan history entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("scan history entry %s: %w", id, ErrNotFound)
	}

	return nil
}

// ExistsSince reports whether the subject has a scan entry created at or
// after the given instant. This existence test backs fresh-scan suppression.
func (r *ScanHistoryRepository) ExistsSince(ctx context.Context, kind domain.SubjectKind, subjectID int64, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM scan_history
			WHERE subject_kind = $1 AND subject_id = $2 AND created_at >= $3
		)
	`

	err := r.db.GetContext(ctx, &exists, query, kind, subjectID, since)
	if err != nil {
		return false, fmt.Errorf("failed to check scan history: %w", err)
	}

	return exists, nil
}
