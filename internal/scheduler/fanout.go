// Package scheduler implements the scheduling core: the crontab trigger
// engine, the gap-recovery auditor, and the scanner fan-out.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
	"tubemirror/internal/queue"
)

// HistoryStore records dispatched scans and answers suppression queries.
type HistoryStore interface {
	Create(ctx context.Context, entry *domain.ScanHistoryEntry) error
	ExistsSince(ctx context.Context, kind domain.SubjectKind, subjectID int64, since time.Time) (bool, error)
}

// Enqueuer pushes tasks onto the work queue, optionally deferred.
type Enqueuer interface {
	Enqueue(ctx context.Context, task string, args map[string]any, countdown time.Duration) (string, error)
}

// ScanParams shapes one channel fan-out.
type ScanParams struct {
	// Limit caps how many items each scan task enumerates.
	Limit int
	// Countdown defers the first scan task.
	Countdown time.Duration
	// WaitPeriod staggers each subsequent scan kind after the first.
	WaitPeriod time.Duration
}

// FanOut expands one due channel into its scan tasks.
type FanOut struct {
	history HistoryStore
	queue   Enqueuer
	log     logger.Interface
}

// NewFanOut creates a scanner fan-out.
func NewFanOut(history HistoryStore, enqueuer Enqueuer, log logger.Interface) *FanOut {
	return &FanOut{history: history, queue: enqueuer, log: log}
}

// scanSlots maps each scan kind to its stagger slot. Slot positions are
// fixed: disabling a kind leaves a hole rather than shifting later kinds
// earlier, so livestream scans always land at the same offset.
var scanSlots = []struct {
	task string
	want func(*domain.Channel) bool
}{
	{queue.TaskScanChannelVideos, func(c *domain.Channel) bool { return c.IndexVideos }},
	{queue.TaskScanChannelShorts, func(c *domain.Channel) bool { return c.IndexShorts }},
	{queue.TaskScanChannelLivestreams, func(c *domain.Channel) bool { return c.IndexLivestreams }},
}

// Scan records a scan-history entry for the channel and enqueues one task per
// enabled scan kind, staggered by the wait period. The history entry is
// written first so suppression sees the dispatch even if enqueueing fails
// partway.
func (f *FanOut) Scan(ctx context.Context, channel *domain.Channel, params ScanParams) error {
	entry := &domain.ScanHistoryEntry{
		SubjectKind: domain.SubjectChannel,
		SubjectID:   channel.ID,
	}
	if err := f.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record channel scan %d: %w", channel.ID, err)
	}

	if !channel.WantsAnyScan() {
		f.log.Debug("channel has no scan kinds enabled", "channel_id", channel.ID)
		return nil
	}

	for slot, kind := range scanSlots {
		if !kind.want(channel) {
			continue
		}

		countdown := params.Countdown + time.Duration(slot)*params.WaitPeriod
		args := map[string]any{
			queue.ArgChannelID:     channel.ID,
			queue.ArgLimit:         params.Limit,
			queue.ArgScanHistoryID: entry.ID,
		}
		if _, err := f.queue.Enqueue(ctx, kind.task, args, countdown); err != nil {
			return fmt.Errorf("failed to enqueue %s for channel %d: %w", kind.task, channel.ID, err)
		}

		f.log.Debug("enqueued channel scan",
			"task", kind.task,
			"channel_id", channel.ID,
			"countdown", countdown,
		)
	}

	return nil
}

// Sync records a scan-history entry for the playlist and enqueues its sync
// task.
func (f *FanOut) Sync(ctx context.Context, playlist *domain.Playlist) error {
	entry := &domain.ScanHistoryEntry{
		SubjectKind: domain.SubjectPlaylist,
		SubjectID:   playlist.ID,
	}
	if err := f.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record playlist sync %d: %w", playlist.ID, err)
	}

	args := map[string]any{
		queue.ArgPlaylistID:    playlist.ID,
		queue.ArgScanHistoryID: entry.ID,
	}
	if _, err := f.queue.Enqueue(ctx, queue.TaskSyncPlaylistData, args, 0); err != nil {
		return fmt.Errorf("failed to enqueue %s for playlist %d: %w", queue.TaskSyncPlaylistData, playlist.ID, err)
	}

	f.log.Debug("enqueued playlist sync", "playlist_id", playlist.ID)
	return nil
}
