package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tubemirror/internal/domain"
)

// TaskResultRepository records task executions. The trigger engine's gap
// auditor queries it for the latest successful trigger run.
type TaskResultRepository struct {
	db *sqlx.DB
}

// NewTaskResultRepository creates a new task result repository.
func NewTaskResultRepository(db *sqlx.DB) *TaskResultRepository {
	return &TaskResultRepository{db: db}
}

// Create inserts a new task result row.
func (r *TaskResultRepository) Create(ctx context.Context, result *domain.TaskResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.Status == "" {
		result.Status = domain.TaskPending
	}

	query := `
		INSERT INTO task_results (id, task_name, status, date_done, error_message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		result.ID,
		result.TaskName,
		result.Status,
		result.DateDone,
		result.ErrorMessage,
	).Scan(&result.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task result: %w", err)
	}

	return nil
}

// LatestSuccess returns the most recent successful execution of the named
// task, or ErrNotFound when none exists.
func (r *TaskResultRepository) LatestSuccess(ctx context.Context, taskName string) (*domain.TaskResult, error) {
	var result domain.TaskResult
	query := `
		SELECT id, task_name, status, date_done, error_message, created_at
		FROM task_results
		WHERE task_name = $1 AND status = $2 AND date_done IS NOT NULL
		ORDER BY date_done DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &result, query, taskName, domain.TaskOK)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task result for %s: %w", taskName, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest task result: %w", err)
	}

	return &result, nil
}
