package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
)

func TestTaskResultRepository_LatestSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewTaskResultRepository(db)

	dateDone := time.Date(2025, 3, 10, 8, 55, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "task_name", "status", "date_done", "error_message", "created_at",
	}).AddRow("res-1", "trigger_crontab_scans", "ok", dateDone, nil, dateDone)

	mock.ExpectQuery("SELECT (.+) FROM task_results").
		WithArgs("trigger_crontab_scans", domain.TaskOK).
		WillReturnRows(rows)

	result, err := repo.LatestSuccess(context.Background(), "trigger_crontab_scans")
	if err != nil {
		t.Fatalf("LatestSuccess() error = %v", err)
	}

	if result.DateDone == nil || !result.DateDone.Equal(dateDone) {
		t.Errorf("expected date_done %v, got %v", dateDone, result.DateDone)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTaskResultRepository_LatestSuccess_None(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewTaskResultRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM task_results").
		WithArgs("trigger_crontab_scans", domain.TaskOK).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "task_name", "status", "date_done", "error_message", "created_at",
		}))

	_, err := repo.LatestSuccess(context.Background(), "trigger_crontab_scans")
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskResultRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewTaskResultRepository(db)

	done := time.Now()

	mock.ExpectQuery("INSERT INTO task_results").
		WithArgs(sqlmock.AnyArg(), "sync_playlist_data", domain.TaskOK, &done, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(done))

	result := &domain.TaskResult{
		TaskName: "sync_playlist_data",
		Status:   domain.TaskOK,
		DateDone: &done,
	}

	if err := repo.Create(context.Background(), result); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if result.ID == "" {
		t.Error("expected a generated id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
