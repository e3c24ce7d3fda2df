package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
	"tubemirror/internal/downloader"
	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
	"tubemirror/internal/queue"
	"tubemirror/internal/worker"
)

type fakeChannels struct {
	channels map[int64]*domain.Channel
}

func (f *fakeChannels) GetByID(_ context.Context, id int64) (*domain.Channel, error) {
	if c, ok := f.channels[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("channel %d: %w", id, database.ErrNotFound)
}

type fakePlaylists struct {
	playlists   map[int64]*domain.Playlist
	incremented []int64
	reset       []int64
}

func (f *fakePlaylists) GetByID(_ context.Context, id int64) (*domain.Playlist, error) {
	if p, ok := f.playlists[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("playlist %d: %w", id, database.ErrNotFound)
}

func (f *fakePlaylists) IncrementNotFoundFailures(_ context.Context, id int64) error {
	f.incremented = append(f.incremented, id)
	return nil
}

func (f *fakePlaylists) ResetNotFoundFailures(_ context.Context, id int64) error {
	f.reset = append(f.reset, id)
	return nil
}

type fakeHistory struct {
	finished map[string]domain.ScanOutcome
}

func (f *fakeHistory) Finish(_ context.Context, id string, outcome domain.ScanOutcome) error {
	if f.finished == nil {
		f.finished = map[string]domain.ScanOutcome{}
	}
	if _, done := f.finished[id]; done {
		return fmt.Errorf("entry %s: %w", id, database.ErrNotFound)
	}
	f.finished[id] = outcome
	return nil
}

type fakeDownloader struct {
	scanErr error
	syncErr error
	scans   []downloader.ScanKind
	renamed []int64
}

func (f *fakeDownloader) ScanChannel(_ context.Context, _ *domain.Channel, kind downloader.ScanKind, _ int) (*downloader.ScanResult, error) {
	f.scans = append(f.scans, kind)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return &downloader.ScanResult{Found: 10, Queued: 2}, nil
}

func (f *fakeDownloader) SyncPlaylist(_ context.Context, _ *domain.Playlist) (*downloader.SyncResult, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &downloader.SyncResult{Entries: 5, Added: 1}, nil
}

func (f *fakeDownloader) RenameFiles(_ context.Context, channel *domain.Channel) error {
	f.renamed = append(f.renamed, channel.ID)
	return nil
}

type fakeResults struct {
	mu      sync.Mutex
	results []*domain.TaskResult
}

func (f *fakeResults) Create(_ context.Context, result *domain.TaskResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
	return nil
}

func (f *fakeResults) statuses() map[string]domain.TaskStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]domain.TaskStatus{}
	for _, r := range f.results {
		out[r.TaskName] = r.Status
	}
	return out
}

type handlerEnv struct {
	channels  *fakeChannels
	playlists *fakePlaylists
	history   *fakeHistory
	download  *fakeDownloader
	registry  map[string]worker.HandlerFunc
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	env := &handlerEnv{
		channels: &fakeChannels{channels: map[int64]*domain.Channel{
			1: {ID: 1, ProviderObjectID: "UC0001", Status: domain.ChannelActive},
		}},
		playlists: &fakePlaylists{playlists: map[int64]*domain.Playlist{
			5: {ID: 5, ProviderObjectID: "PL0005"},
		}},
		history:  &fakeHistory{},
		download: &fakeDownloader{},
	}

	handlers := worker.NewHandlers(
		nil, nil, nil,
		env.download,
		env.channels,
		env.playlists,
		env.history,
		logger.NewNoop(),
	)
	env.registry = handlers.Registry()
	return env
}

func scanMessage(task string) *queue.TaskMessage {
	return &queue.TaskMessage{
		ID:   "msg-1",
		Task: task,
		Args: map[string]any{
			queue.ArgChannelID:     float64(1),
			queue.ArgLimit:         float64(50),
			queue.ArgScanHistoryID: "entry-1",
		},
	}
}

func TestHandlers_RegistryCoversEveryTask(t *testing.T) {
	env := newHandlerEnv(t)

	tasks := []string{
		queue.TaskTriggerCrontabScans,
		queue.TaskCheckMissedScans,
		queue.TaskScanChannelVideos,
		queue.TaskScanChannelShorts,
		queue.TaskScanChannelLivestreams,
		queue.TaskSyncPlaylistData,
		queue.TaskUpdateChannelBanners,
		queue.TaskRenameVideoFiles,
		queue.TaskMirrorLivePlaylist,
		queue.TaskTriggerMirrorLivePlaylists,
		queue.TaskSubscribeToChannel,
	}
	for _, task := range tasks {
		assert.Contains(t, env.registry, task)
	}
}

func TestScanHandler_FinishesHistoryOnSuccess(t *testing.T) {
	env := newHandlerEnv(t)

	err := env.registry[queue.TaskScanChannelVideos](context.Background(), scanMessage(queue.TaskScanChannelVideos))
	require.NoError(t, err)

	assert.Equal(t, []downloader.ScanKind{downloader.ScanVideos}, env.download.scans)
	assert.Equal(t, domain.ScanOK, env.history.finished["entry-1"])
}

func TestScanHandler_FinishesHistoryFailedOnError(t *testing.T) {
	env := newHandlerEnv(t)
	env.download.scanErr = fmt.Errorf("worker unreachable")

	err := env.registry[queue.TaskScanChannelShorts](context.Background(), scanMessage(queue.TaskScanChannelShorts))
	require.Error(t, err)
	assert.Equal(t, domain.ScanFailed, env.history.finished["entry-1"])
}

func TestSyncHandler_CountsNotFoundFailures(t *testing.T) {
	env := newHandlerEnv(t)
	env.download.syncErr = fmt.Errorf("playlist gone: %w", downloader.ErrNotFoundUpstream)

	msg := &queue.TaskMessage{
		ID:   "msg-2",
		Task: queue.TaskSyncPlaylistData,
		Args: map[string]any{
			queue.ArgPlaylistID:    float64(5),
			queue.ArgScanHistoryID: "entry-2",
		},
	}
	err := env.registry[queue.TaskSyncPlaylistData](context.Background(), msg)
	require.Error(t, err)

	assert.Equal(t, []int64{5}, env.playlists.incremented)
	assert.Equal(t, domain.ScanFailed, env.history.finished["entry-2"])
}

func TestSyncHandler_ResetsFailureCounterOnSuccess(t *testing.T) {
	env := newHandlerEnv(t)
	env.playlists.playlists[5].NotFoundFailures = 2

	msg := &queue.TaskMessage{
		ID:   "msg-3",
		Task: queue.TaskSyncPlaylistData,
		Args: map[string]any{queue.ArgPlaylistID: float64(5)},
	}
	err := env.registry[queue.TaskSyncPlaylistData](context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, env.playlists.reset)
}

func TestRenameHandler_UsesDownloadWorker(t *testing.T) {
	env := newHandlerEnv(t)

	msg := &queue.TaskMessage{
		ID:   "msg-4",
		Task: queue.TaskRenameVideoFiles,
		Args: map[string]any{queue.ArgChannelID: float64(1)},
	}
	err := env.registry[queue.TaskRenameVideoFiles](context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, env.download.renamed)
}

func TestPool_ProcessesAndRecordsTasks(t *testing.T) {
	env := newHandlerEnv(t)
	results := &fakeResults{}

	pool, err := worker.NewPool(worker.Config{
		PoolSize:     2,
		TaskTimeout:  time.Second,
		DrainTimeout: time.Second,
	}, env.registry, results, metrics.NewMetrics(), logger.NewNoop())
	require.NoError(t, err)
	require.NoError(t, pool.Start())

	var acked sync.WaitGroup
	acked.Add(2)

	ok := &queue.ConsumedTask{MessageID: "1-0", Message: scanMessage(queue.TaskScanChannelVideos)}
	unknown := &queue.ConsumedTask{MessageID: "1-1", Message: &queue.TaskMessage{ID: "msg-x", Task: "no_such_task"}}

	require.NoError(t, pool.Submit(context.Background(), ok, acked.Done))
	require.NoError(t, pool.Submit(context.Background(), unknown, acked.Done))
	acked.Wait()

	require.NoError(t, pool.Stop(context.Background()))

	statuses := results.statuses()
	assert.Equal(t, domain.TaskOK, statuses[queue.TaskScanChannelVideos])
	assert.Equal(t, domain.TaskFailed, statuses["no_such_task"])
}

func TestPool_RejectsSubmitWhenStopped(t *testing.T) {
	env := newHandlerEnv(t)
	pool, err := worker.NewPool(worker.DefaultConfig(), env.registry, &fakeResults{}, metrics.NewMetrics(), logger.NewNoop())
	require.NoError(t, err)

	err = pool.Submit(context.Background(), &queue.ConsumedTask{
		MessageID: "1-0",
		Message:   &queue.TaskMessage{ID: "m", Task: queue.TaskTriggerCrontabScans},
	}, nil)
	require.Error(t, err)
}
