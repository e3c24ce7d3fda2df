package scheduler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubemirror/internal/config"
	"tubemirror/internal/database"
	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
	"tubemirror/internal/queue"
	"tubemirror/internal/scheduler"
)

type fakeChannels struct {
	candidates []*domain.Channel
	cleared    []int64
}

func (f *fakeChannels) ListScanCandidates(_ context.Context, _ time.Time) ([]*domain.Channel, error) {
	return f.candidates, nil
}

func (f *fakeChannels) ClearScanAfter(_ context.Context, id int64) error {
	f.cleared = append(f.cleared, id)
	return nil
}

type fakePlaylists struct {
	scheduled []*domain.Playlist
}

func (f *fakePlaylists) ListScheduled(_ context.Context) ([]*domain.Playlist, error) {
	return f.scheduled, nil
}

type fakeHistory struct {
	entries   []*domain.ScanHistoryEntry
	seq       int
	createErr error
}

func (f *fakeHistory) Create(_ context.Context, entry *domain.ScanHistoryEntry) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	entry.ID = fmt.Sprintf("entry-%d", f.seq)
	entry.Outcome = domain.ScanPending
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeHistory) ExistsSince(_ context.Context, kind domain.SubjectKind, subjectID int64, since time.Time) (bool, error) {
	for _, e := range f.entries {
		if e.SubjectKind == kind && e.SubjectID == subjectID && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeResults struct {
	last *domain.TaskResult
}

func (f *fakeResults) LatestSuccess(_ context.Context, taskName string) (*domain.TaskResult, error) {
	if f.last == nil {
		return nil, fmt.Errorf("task result %s: %w", taskName, database.ErrNotFound)
	}
	return f.last, nil
}

type enqueuedTask struct {
	Task      string
	Args      map[string]any
	Countdown time.Duration
}

type fakeQueue struct {
	tasks []enqueuedTask
}

func (f *fakeQueue) Enqueue(_ context.Context, task string, args map[string]any, countdown time.Duration) (string, error) {
	f.tasks = append(f.tasks, enqueuedTask{Task: task, Args: args, Countdown: countdown})
	return fmt.Sprintf("msg-%d", len(f.tasks)), nil
}

func (f *fakeQueue) named(task string) []enqueuedTask {
	var out []enqueuedTask
	for _, t := range f.tasks {
		if t.Task == task {
			out = append(out, t)
		}
	}
	return out
}

type engineEnv struct {
	channels  *fakeChannels
	playlists *fakePlaylists
	history   *fakeHistory
	results   *fakeResults
	queue     *fakeQueue
	engine    *scheduler.Engine
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		TickInterval:                  time.Minute,
		CrontabCheckInterval:          10 * time.Minute,
		CrontabCheckIntervalMaxInDays: 7,
		SuppressionFloor:              time.Hour,
		ScanLimit:                     50,
		WaitPeriod:                    30 * time.Second,
		Countdown:                     time.Minute,
	}
}

func newEngineEnv(t *testing.T) *engineEnv {
	t.Helper()

	env := &engineEnv{
		channels:  &fakeChannels{},
		playlists: &fakePlaylists{},
		history:   &fakeHistory{},
		results:   &fakeResults{},
		queue:     &fakeQueue{},
	}

	log := logger.NewNoop()
	fanout := scheduler.NewFanOut(env.history, env.queue, log)
	env.engine = scheduler.NewEngine(
		env.channels,
		env.playlists,
		env.history,
		env.results,
		fanout,
		metrics.NewMetrics(),
		log,
		testSchedulerConfig(),
	)
	return env
}

func activeChannel(id int64, crontab string) *domain.Channel {
	return &domain.Channel{
		ID:               id,
		ProviderObjectID: fmt.Sprintf("UC%04d", id),
		Status:           domain.ChannelActive,
		Name:             fmt.Sprintf("channel-%d", id),
		ScannerCrontab:   crontab,
		IndexVideos:      true,
		IndexShorts:      true,
		IndexLivestreams: true,
	}
}

func TestEngine_DispatchesChannelWhenCrontabMatches(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "0 9 * * *")}

	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, dispatched.Channels)
	assert.Empty(t, dispatched.Playlists)

	require.Len(t, env.history.entries, 1)
	assert.Equal(t, domain.SubjectChannel, env.history.entries[0].SubjectKind)
	assert.Equal(t, int64(1), env.history.entries[0].SubjectID)

	require.Len(t, env.queue.tasks, 3)
	assert.Equal(t, queue.TaskScanChannelVideos, env.queue.tasks[0].Task)
	assert.Equal(t, queue.TaskScanChannelShorts, env.queue.tasks[1].Task)
	assert.Equal(t, queue.TaskScanChannelLivestreams, env.queue.tasks[2].Task)
}

func TestEngine_SkipsChannelWhenCrontabDoesNotMatch(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "0 9 * * *")}

	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Empty(t, dispatched.Channels)
	assert.Empty(t, env.queue.tasks)
	assert.Empty(t, env.history.entries)
}

func TestEngine_SuppressesRecentlyScannedChannel(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "* * * * *")}

	at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	// A minutely crontab is still bounded by the one-hour suppression floor,
	// so a scan fifteen minutes ago blocks this activation.
	env.history.entries = []*domain.ScanHistoryEntry{{
		ID:          "prior",
		SubjectKind: domain.SubjectChannel,
		SubjectID:   1,
		CreatedAt:   at.Add(-15 * time.Minute),
	}}

	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Empty(t, dispatched.Channels)
	assert.Empty(t, env.queue.tasks)
}

func TestEngine_EntryOneFullIntervalOldDoesNotSuppress(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "0 * * * *")}

	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	env.history.entries = []*domain.ScanHistoryEntry{{
		ID:          "prior",
		SubjectKind: domain.SubjectChannel,
		SubjectID:   1,
		CreatedAt:   at.Add(-time.Hour).Add(200 * time.Millisecond),
	}}

	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, dispatched.Channels)
}

func TestEngine_ScanAfterOverrideBypassesCrontabAndSuppression(t *testing.T) {
	env := newEngineEnv(t)

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	override := at.Add(-2 * time.Hour)
	channel := activeChannel(7, "0 9 * * *")
	channel.ScanAfterDatetime = &override
	env.channels.candidates = []*domain.Channel{channel}

	// Fresh history that would suppress a crontab dispatch.
	env.history.entries = []*domain.ScanHistoryEntry{{
		ID:          "prior",
		SubjectKind: domain.SubjectChannel,
		SubjectID:   7,
		CreatedAt:   at.Add(-5 * time.Minute),
	}}

	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{7}, dispatched.Channels)
	assert.Equal(t, []int64{7}, env.channels.cleared)
}

func TestEngine_FutureScanAfterDoesNotDispatch(t *testing.T) {
	env := newEngineEnv(t)

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	override := at.Add(time.Hour)
	channel := activeChannel(7, "")
	channel.ScanAfterDatetime = &override
	env.channels.candidates = []*domain.Channel{channel}

	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Empty(t, dispatched.Channels)
	assert.Empty(t, env.channels.cleared)
}

func TestEngine_InvalidCrontabSkipsChannelOnly(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{
		activeChannel(1, "not a crontab"),
		activeChannel(2, "17 10 * * *"),
	}

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{2}, dispatched.Channels)
}

func TestEngine_FanOutStaggerKeepsFixedSlots(t *testing.T) {
	env := newEngineEnv(t)

	channel := activeChannel(3, "17 10 * * *")
	channel.IndexShorts = false
	env.channels.candidates = []*domain.Channel{channel}

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	_, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	require.Len(t, env.queue.tasks, 2)

	videos := env.queue.named(queue.TaskScanChannelVideos)
	require.Len(t, videos, 1)
	assert.Equal(t, time.Minute, videos[0].Countdown)
	assert.Equal(t, int64(3), videos[0].Args[queue.ArgChannelID])
	assert.Equal(t, 50, videos[0].Args[queue.ArgLimit])
	assert.Equal(t, "entry-1", videos[0].Args[queue.ArgScanHistoryID])

	// Shorts disabled: the livestream task keeps its third slot instead of
	// sliding into the vacated second one.
	live := env.queue.named(queue.TaskScanChannelLivestreams)
	require.Len(t, live, 1)
	assert.Equal(t, time.Minute+2*30*time.Second, live[0].Countdown)
}

func TestEngine_ChannelWithNoScanKindsWritesHistoryOnly(t *testing.T) {
	env := newEngineEnv(t)

	channel := activeChannel(4, "17 10 * * *")
	channel.IndexVideos = false
	channel.IndexShorts = false
	channel.IndexLivestreams = false
	env.channels.candidates = []*domain.Channel{channel}

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{4}, dispatched.Channels)
	assert.Empty(t, env.queue.tasks)
	assert.Len(t, env.history.entries, 1)
}

func TestEngine_DispatchesDuePlaylist(t *testing.T) {
	env := newEngineEnv(t)
	env.playlists.scheduled = []*domain.Playlist{{
		ID:               11,
		ProviderObjectID: "PL0011",
		Crontab:          "17 10 * * *",
	}}

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	dispatched, err := env.engine.Run(context.Background(), at, false)
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, dispatched.Playlists)

	syncs := env.queue.named(queue.TaskSyncPlaylistData)
	require.Len(t, syncs, 1)
	assert.Equal(t, int64(11), syncs[0].Args[queue.ArgPlaylistID])
	assert.Equal(t, "entry-1", syncs[0].Args[queue.ArgScanHistoryID])

	require.Len(t, env.history.entries, 1)
	assert.Equal(t, domain.SubjectPlaylist, env.history.entries[0].SubjectKind)
}

func TestEngine_HistoryWriteFailureStopsFanOut(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "17 10 * * *")}
	env.history.createErr = fmt.Errorf("database gone away")

	at := time.Date(2026, 3, 10, 10, 17, 0, 0, time.UTC)
	_, err := env.engine.Run(context.Background(), at, false)
	require.Error(t, err)
	assert.Empty(t, env.queue.tasks)
}
