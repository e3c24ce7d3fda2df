package scheduler

import (
	"context"
	"fmt"
	"time"

	"tubemirror/internal/config"
	"tubemirror/internal/cronexpr"
	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
)

// ChannelStore is the channel access the engine needs.
type ChannelStore interface {
	ListScanCandidates(ctx context.Context, now time.Time) ([]*domain.Channel, error)
	ClearScanAfter(ctx context.Context, id int64) error
}

// PlaylistStore is the playlist access the engine needs.
type PlaylistStore interface {
	ListScheduled(ctx context.Context) ([]*domain.Playlist, error)
}

// TaskResultStore answers when the trigger last ran successfully.
type TaskResultStore interface {
	LatestSuccess(ctx context.Context, taskName string) (*domain.TaskResult, error)
}

// Engine is the crontab trigger engine. Each run evaluates every scannable
// channel and scheduled playlist against one instant and dispatches the due
// ones, at most once per subject per run.
type Engine struct {
	channels  ChannelStore
	playlists PlaylistStore
	history   HistoryStore
	results   TaskResultStore
	fanout    *FanOut
	cron      *cronexpr.Evaluator
	metrics   *metrics.Metrics
	log       logger.Interface
	cfg       config.SchedulerConfig
}

// NewEngine creates a trigger engine.
func NewEngine(
	channels ChannelStore,
	playlists PlaylistStore,
	history HistoryStore,
	results TaskResultStore,
	fanout *FanOut,
	m *metrics.Metrics,
	log logger.Interface,
	cfg config.SchedulerConfig,
) *Engine {
	return &Engine{
		channels:  channels,
		playlists: playlists,
		history:   history,
		results:   results,
		fanout:    fanout,
		cron:      cronexpr.NewEvaluator(),
		metrics:   m,
		log:       log,
		cfg:       cfg,
	}
}

// Run executes one trigger tick at the given instant and returns what it
// dispatched. When checkMissed is set, the gap auditor runs first and its
// dispatches are folded in so the tick cannot double-dispatch a subject the
// audit already covered.
func (e *Engine) Run(ctx context.Context, now time.Time, checkMissed bool) (domain.Dispatched, error) {
	now = now.Truncate(time.Second)
	var dispatched domain.Dispatched

	if checkMissed {
		recovered, ran, err := e.AuditMissed(ctx, AuditWindow{End: &now})
		if err != nil {
			// The audit is best effort; the live tick still runs.
			e.log.Error("gap audit failed", "error", err)
		}
		if ran {
			dispatched.Merge(recovered)
			e.metrics.RecordRecovered(len(recovered.Channels) + len(recovered.Playlists))
			e.log.Info("gap audit recovered dispatches",
				"channels", len(recovered.Channels),
				"playlists", len(recovered.Playlists),
			)
		}
	}

	result, err := e.dispatchTick(ctx, now, dispatched)
	e.metrics.RecordDispatch(len(result.Channels), len(result.Playlists), now)
	return result, err
}

// dispatchTick evaluates every candidate against one instant. Subjects in
// already are treated as dispatched and skipped; the returned set includes
// them.
func (e *Engine) dispatchTick(ctx context.Context, tick time.Time, already domain.Dispatched) (domain.Dispatched, error) {
	out := already

	channels, err := e.channels.ListScanCandidates(ctx, tick)
	if err != nil {
		return out, fmt.Errorf("failed to list scan candidates: %w", err)
	}

	for _, channel := range channels {
		if out.HasChannel(channel.ID) || !channel.Scannable() {
			continue
		}

		due, forced := e.channelDue(ctx, channel, tick)
		if !due {
			continue
		}

		if err := e.fanout.Scan(ctx, channel, ScanParams{
			Limit:      e.cfg.ScanLimit,
			Countdown:  e.cfg.Countdown,
			WaitPeriod: e.cfg.WaitPeriod,
		}); err != nil {
			return out, err
		}
		if forced {
			if err := e.channels.ClearScanAfter(ctx, channel.ID); err != nil {
				e.log.Error("failed to clear scan-after override",
					"channel_id", channel.ID,
					"error", err,
				)
			}
		}
		out.Channels = append(out.Channels, channel.ID)
	}

	playlists, err := e.playlists.ListScheduled(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to list scheduled playlists: %w", err)
	}

	for _, playlist := range playlists {
		if out.HasPlaylist(playlist.ID) {
			continue
		}
		if !e.playlistDue(ctx, playlist, tick) {
			continue
		}
		if err := e.fanout.Sync(ctx, playlist); err != nil {
			return out, err
		}
		out.Playlists = append(out.Playlists, playlist.ID)
	}

	return out, nil
}

// channelDue decides whether the channel should be dispatched at the tick.
// The second return reports a scan-after override, which bypasses both the
// crontab and the suppression window.
func (e *Engine) channelDue(ctx context.Context, channel *domain.Channel, tick time.Time) (due, forced bool) {
	if channel.ScanAfterDatetime != nil && !channel.ScanAfterDatetime.After(tick) {
		return true, true
	}
	if channel.ScannerCrontab == "" {
		return false, false
	}

	interval, err := e.cron.Interval(channel.ScannerCrontab, tick)
	if err != nil {
		// One bad crontab must not block the rest of the tick.
		e.log.Warn("skipping channel with invalid crontab",
			"channel_id", channel.ID,
			"crontab", channel.ScannerCrontab,
			"error", err,
		)
		return false, false
	}

	recent, err := e.history.ExistsSince(ctx, domain.SubjectChannel, channel.ID, e.suppressionSince(tick, interval))
	if err != nil {
		e.log.Error("failed to query scan history", "channel_id", channel.ID, "error", err)
		return false, false
	}
	if recent {
		return false, false
	}

	matches, err := e.cron.Matches(channel.ScannerCrontab, tick)
	if err != nil {
		return false, false
	}
	return matches, false
}

// playlistDue decides whether the playlist should be dispatched at the tick.
func (e *Engine) playlistDue(ctx context.Context, playlist *domain.Playlist, tick time.Time) bool {
	interval, err := e.cron.Interval(playlist.Crontab, tick)
	if err != nil {
		e.log.Warn("skipping playlist with invalid crontab",
			"playlist_id", playlist.ID,
			"crontab", playlist.Crontab,
			"error", err,
		)
		return false
	}

	recent, err := e.history.ExistsSince(ctx, domain.SubjectPlaylist, playlist.ID, e.suppressionSince(tick, interval))
	if err != nil {
		e.log.Error("failed to query scan history", "playlist_id", playlist.ID, "error", err)
		return false
	}
	if recent {
		return false
	}

	matches, err := e.cron.Matches(playlist.Crontab, tick)
	if err != nil {
		return false
	}
	return matches
}

// suppressionSince returns the start of the fresh-scan window for a subject
// whose crontab fires every interval. The window is the larger of the
// interval and the configured floor, shaved by one minute so the entry
// written exactly one activation ago does not suppress the current one.
func (e *Engine) suppressionSince(tick time.Time, interval time.Duration) time.Time {
	window := interval
	if window < e.cfg.SuppressionFloor {
		window = e.cfg.SuppressionFloor
	}
	if window > time.Minute {
		window -= time.Minute
	}
	return tick.Add(-window)
}
