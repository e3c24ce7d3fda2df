package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func channelRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "provider_object_id", "status", "name", "description", "uploader_id",
		"scanner_crontab", "scan_after_datetime",
		"index_videos", "index_shorts", "index_livestreams",
		"mirror_playlists", "mirror_playlists_crontab",
		"thumbnail_url", "banner_url", "tvart_url",
		"notifications_enabled", "created_at", "updated_at",
	})
}

func TestChannelRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewChannelRepository(db)
	ctx := context.Background()

	createdAt := time.Now()

	mock.ExpectQuery("INSERT INTO channels").
		WithArgs(
			"UCabc123",
			domain.ChannelActive,
			"Test Channel",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"0 9 * * *",
			sqlmock.AnyArg(),
			true,
			false,
			false,
			true,
			domain.MirrorDaily,
			true,
		).
		WillReturnRows(
			sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(7), createdAt, createdAt),
		)

	channel := &domain.Channel{
		ProviderObjectID:       "UCabc123",
		Status:                 domain.ChannelActive,
		Name:                   "Test Channel",
		ScannerCrontab:         "0 9 * * *",
		IndexVideos:            true,
		MirrorPlaylists:        true,
		MirrorPlaylistsCrontab: domain.MirrorDaily,
		NotificationsEnabled:   true,
	}

	if err := repo.Create(ctx, channel); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if channel.ID != 7 {
		t.Errorf("expected channel.ID=7, got %d", channel.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestChannelRepository_GetByProviderObjectID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewChannelRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM channels").
		WithArgs("UCmissing").
		WillReturnRows(channelRows())

	_, err := repo.GetByProviderObjectID(context.Background(), "UCmissing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChannelRepository_ListScanCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewChannelRepository(db)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rows := channelRows().
		AddRow(
			int64(1), "UCone", "active", "One", "", "",
			"0 9 * * *", nil,
			true, false, false,
			false, "daily",
			"", "", "",
			true, now, now,
		).
		AddRow(
			int64(2), "UCtwo", "active", "Two", "", "",
			"", now.Add(-time.Hour),
			true, true, true,
			false, "daily",
			"", "", "",
			true, now, now,
		)

	mock.ExpectQuery("SELECT (.+) FROM channels").
		WithArgs(domain.ChannelActive, now).
		WillReturnRows(rows)

	channels, err := repo.ListScanCandidates(context.Background(), now)
	if err != nil {
		t.Fatalf("ListScanCandidates() error = %v", err)
	}

	if len(channels) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(channels))
	}

	if channels[1].ScanAfterDatetime == nil {
		t.Error("expected second candidate to carry scan_after_datetime")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestChannelRepository_ClearScanAfter(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewChannelRepository(db)

	mock.ExpectExec("UPDATE channels SET scan_after_datetime = NULL").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearScanAfter(context.Background(), 3); err != nil {
		t.Fatalf("ClearScanAfter() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestChannelRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := database.NewChannelRepository(db)

	mock.ExpectExec("UPDATE channels SET status").
		WithArgs(domain.ChannelTerminated, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), 99, domain.ChannelTerminated)
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
