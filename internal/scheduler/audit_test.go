package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubemirror/internal/domain"
	"tubemirror/internal/queue"
	"tubemirror/internal/scheduler"
)

func lastRun(at time.Time) *domain.TaskResult {
	return &domain.TaskResult{
		ID:       "result-1",
		TaskName: queue.TaskTriggerCrontabScans,
		Status:   domain.TaskOK,
		DateDone: &at,
	}
}

func TestAuditMissed_RecoversScanMissedDuringOutage(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "0 9 * * *")}

	// Scheduler was down across the 09:00 activation.
	now := time.Date(2026, 3, 10, 9, 10, 0, 0, time.UTC)
	env.results.last = lastRun(now.Add(-20 * time.Minute))

	dispatched, err := env.engine.Run(context.Background(), now, true)
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, dispatched.Channels)
	// Exactly one dispatch even though the audit replays eleven ticks and the
	// live tick runs afterwards.
	assert.Len(t, env.history.entries, 1)
	assert.Len(t, env.queue.named(queue.TaskScanChannelVideos), 1)
}

func TestAuditMissed_SkippedWhenNoTriggerRunRecorded(t *testing.T) {
	env := newEngineEnv(t)

	dispatched, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{})
	require.NoError(t, err)

	assert.False(t, ran)
	assert.Empty(t, dispatched.Channels)
	assert.Empty(t, dispatched.Playlists)
}

func TestAuditMissed_SkippedWhenLastRunTooRecent(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "* * * * *")}

	now := time.Date(2026, 3, 10, 9, 10, 0, 0, time.UTC)
	env.results.last = lastRun(now.Add(-5 * time.Minute))

	_, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{End: &now})
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, env.queue.tasks)
}

func TestAuditMissed_SkippedWhenLastRunTooOld(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "* * * * *")}

	now := time.Date(2026, 3, 10, 9, 10, 0, 0, time.UTC)
	env.results.last = lastRun(now.Add(-8 * 24 * time.Hour))

	_, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{End: &now})
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, env.queue.tasks)
}

func TestAuditMissed_ForceBypassesGuards(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "5 9 * * *")}

	now := time.Date(2026, 3, 10, 9, 10, 0, 0, time.UTC)
	env.results.last = lastRun(now.Add(-8 * 24 * time.Hour))

	dispatched, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{
		End:   &now,
		Force: true,
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []int64{1}, dispatched.Channels)
}

func TestAuditMissed_ForceWithoutPriorRunStillSkipped(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "* * * * *")}

	_, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{Force: true})
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestAuditMissed_ExplicitWindowReplaysEveryMinute(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "30 14 * * *")}
	env.playlists.scheduled = []*domain.Playlist{{
		ID:               5,
		ProviderObjectID: "PL0005",
		Crontab:          "45 14 * * *",
	}}

	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	dispatched, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{
		Start: &start,
		End:   &end,
	})
	require.NoError(t, err)
	assert.True(t, ran)

	assert.Equal(t, []int64{1}, dispatched.Channels)
	assert.Equal(t, []int64{5}, dispatched.Playlists)
}

func TestAuditMissed_EmptyWindowDoesNothing(t *testing.T) {
	env := newEngineEnv(t)
	env.channels.candidates = []*domain.Channel{activeChannel(1, "* * * * *")}

	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	_, ran, err := env.engine.AuditMissed(context.Background(), scheduler.AuditWindow{
		Start: &at,
		End:   &at,
	})
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, env.queue.tasks)
}
