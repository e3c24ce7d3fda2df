package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
)

func TestScanHistoryRepository_Create_FillsDefaults(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewScanHistoryRepository(db)

	createdAt := time.Now()

	mock.ExpectQuery("INSERT INTO scan_history").
		WithArgs(sqlmock.AnyArg(), domain.SubjectChannel, int64(4), domain.ScanPending).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	entry := &domain.ScanHistoryEntry{
		SubjectKind: domain.SubjectChannel,
		SubjectID:   4,
	}

	if err := repo.Create(context.Background(), entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if entry.ID == "" {
		t.Error("expected a generated id")
	}
	if entry.Outcome != domain.ScanPending {
		t.Errorf("expected pending outcome, got %s", entry.Outcome)
	}
	if !entry.CreatedAt.Equal(createdAt) {
		t.Errorf("expected created_at %v, got %v", createdAt, entry.CreatedAt)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScanHistoryRepository_ExistsSince(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewScanHistoryRepository(db)

	since := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(domain.SubjectPlaylist, int64(12), since).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsSince(context.Background(), domain.SubjectPlaylist, 12, since)
	if err != nil {
		t.Fatalf("ExistsSince() error = %v", err)
	}
	if !exists {
		t.Error("expected exists=true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestScanHistoryRepository_Finish(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewScanHistoryRepository(db)

	mock.ExpectExec("UPDATE scan_history").
		WithArgs(domain.ScanOK, "entry-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Finish(context.Background(), "entry-1", domain.ScanOK); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
