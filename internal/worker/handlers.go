package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubemirror/internal/database"
	"tubemirror/internal/domain"
	"tubemirror/internal/downloader"
	"tubemirror/internal/logger"
	"tubemirror/internal/mirror"
	"tubemirror/internal/queue"
	"tubemirror/internal/scheduler"
	"tubemirror/internal/subscription"
)

// ChannelGetter loads channels for scan and rename tasks.
type ChannelGetter interface {
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
}

// PlaylistSyncStore is the playlist access sync tasks need, including the
// not-found failure counter driven by upstream deletions.
type PlaylistSyncStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Playlist, error)
	IncrementNotFoundFailures(ctx context.Context, id int64) error
	ResetNotFoundFailures(ctx context.Context, id int64) error
}

// HistoryFinisher closes out scan-history entries.
type HistoryFinisher interface {
	Finish(ctx context.Context, id string, outcome domain.ScanOutcome) error
}

// HandlerFunc processes one task message.
type HandlerFunc func(ctx context.Context, msg *queue.TaskMessage) error

// Handlers binds task names to their implementations.
type Handlers struct {
	engine       *scheduler.Engine
	mirror       *mirror.Service
	subscription *subscription.Service
	download     downloader.Worker
	channels     ChannelGetter
	playlists    PlaylistSyncStore
	history      HistoryFinisher
	log          logger.Interface
}

// NewHandlers creates the task handler set.
func NewHandlers(
	engine *scheduler.Engine,
	mirrorSvc *mirror.Service,
	subscriptionSvc *subscription.Service,
	download downloader.Worker,
	channels ChannelGetter,
	playlists PlaylistSyncStore,
	history HistoryFinisher,
	log logger.Interface,
) *Handlers {
	return &Handlers{
		engine:       engine,
		mirror:       mirrorSvc,
		subscription: subscriptionSvc,
		download:     download,
		channels:     channels,
		playlists:    playlists,
		history:      history,
		log:          log,
	}
}

// Registry returns the task-name-to-handler map the pool dispatches on.
func (h *Handlers) Registry() map[string]HandlerFunc {
	return map[string]HandlerFunc{
		queue.TaskTriggerCrontabScans:        h.triggerCrontabScans,
		queue.TaskCheckMissedScans:           h.checkMissedScans,
		queue.TaskScanChannelVideos:          h.scanChannel(downloader.ScanVideos),
		queue.TaskScanChannelShorts:          h.scanChannel(downloader.ScanShorts),
		queue.TaskScanChannelLivestreams:     h.scanChannel(downloader.ScanLivestreams),
		queue.TaskSyncPlaylistData:           h.syncPlaylistData,
		queue.TaskUpdateChannelBanners:       h.updateChannelBanners,
		queue.TaskRenameVideoFiles:           h.renameVideoFiles,
		queue.TaskMirrorLivePlaylist:         h.mirrorLivePlaylist,
		queue.TaskTriggerMirrorLivePlaylists: h.triggerMirrorLivePlaylists,
		queue.TaskSubscribeToChannel:         h.subscribeToChannel,
	}
}

func (h *Handlers) triggerCrontabScans(ctx context.Context, _ *queue.TaskMessage) error {
	dispatched, err := h.engine.Run(ctx, time.Now(), true)
	if err != nil {
		return err
	}
	h.log.Info("trigger run complete",
		"channels", len(dispatched.Channels),
		"playlists", len(dispatched.Playlists),
	)
	return nil
}

func (h *Handlers) checkMissedScans(ctx context.Context, msg *queue.TaskMessage) error {
	force, _ := msg.Args["force"].(bool)
	dispatched, ran, err := h.engine.AuditMissed(ctx, scheduler.AuditWindow{Force: force})
	if err != nil {
		return err
	}
	if !ran {
		h.log.Debug("gap audit did not run")
		return nil
	}
	h.log.Info("gap audit complete",
		"channels", len(dispatched.Channels),
		"playlists", len(dispatched.Playlists),
	)
	return nil
}

// scanChannel returns the handler for one scan kind. All three kinds share
// the shape: load the channel, hand it to the download worker, close out the
// scan-history entry.
func (h *Handlers) scanChannel(kind downloader.ScanKind) HandlerFunc {
	return func(ctx context.Context, msg *queue.TaskMessage) error {
		channelID, ok := msg.Int64Arg(queue.ArgChannelID)
		if !ok {
			return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgChannelID)
		}
		limit, ok := msg.Int64Arg(queue.ArgLimit)
		if !ok {
			return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgLimit)
		}

		channel, err := h.channels.GetByID(ctx, channelID)
		if err != nil {
			h.finishHistory(ctx, msg, domain.ScanFailed)
			return err
		}

		result, err := h.download.ScanChannel(ctx, channel, kind, int(limit))
		if err != nil {
			h.finishHistory(ctx, msg, domain.ScanFailed)
			return fmt.Errorf("scan %s for channel %d failed: %w", kind, channelID, err)
		}

		h.finishHistory(ctx, msg, domain.ScanOK)
		h.log.Info("channel scan complete",
			"channel_id", channelID,
			"kind", kind,
			"found", result.Found,
			"queued", result.Queued,
		)
		return nil
	}
}

func (h *Handlers) syncPlaylistData(ctx context.Context, msg *queue.TaskMessage) error {
	playlistID, ok := msg.Int64Arg(queue.ArgPlaylistID)
	if !ok {
		return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgPlaylistID)
	}

	playlist, err := h.playlists.GetByID(ctx, playlistID)
	if err != nil {
		h.finishHistory(ctx, msg, domain.ScanFailed)
		return err
	}

	result, err := h.download.SyncPlaylist(ctx, playlist)
	if err != nil {
		h.finishHistory(ctx, msg, domain.ScanFailed)
		if errors.Is(err, downloader.ErrNotFoundUpstream) {
			if incErr := h.playlists.IncrementNotFoundFailures(ctx, playlistID); incErr != nil {
				h.log.Error("failed to count playlist not-found failure",
					"playlist_id", playlistID,
					"error", incErr,
				)
			}
		}
		return fmt.Errorf("sync for playlist %d failed: %w", playlistID, err)
	}

	if playlist.NotFoundFailures > 0 {
		if resetErr := h.playlists.ResetNotFoundFailures(ctx, playlistID); resetErr != nil {
			h.log.Error("failed to reset playlist not-found failures",
				"playlist_id", playlistID,
				"error", resetErr,
			)
		}
	}

	h.finishHistory(ctx, msg, domain.ScanOK)
	h.log.Info("playlist sync complete",
		"playlist_id", playlistID,
		"entries", result.Entries,
		"added", result.Added,
		"removed", result.Removed,
	)
	return nil
}

func (h *Handlers) updateChannelBanners(ctx context.Context, msg *queue.TaskMessage) error {
	channelID, ok := msg.Int64Arg(queue.ArgChannelID)
	if !ok {
		return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgChannelID)
	}

	retries, err := h.mirror.RefreshArt(ctx, channelID)
	if retries > 0 {
		h.log.Warn("art refresh needed retries", "channel_id", channelID, "retries", retries)
	}
	return err
}

func (h *Handlers) renameVideoFiles(ctx context.Context, msg *queue.TaskMessage) error {
	channelID, ok := msg.Int64Arg(queue.ArgChannelID)
	if !ok {
		return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgChannelID)
	}

	channel, err := h.channels.GetByID(ctx, channelID)
	if err != nil {
		return err
	}
	return h.download.RenameFiles(ctx, channel)
}

func (h *Handlers) mirrorLivePlaylist(ctx context.Context, msg *queue.TaskMessage) error {
	channelID, ok := msg.Int64Arg(queue.ArgChannelID)
	if !ok {
		return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgChannelID)
	}
	return h.mirror.MirrorChannel(ctx, channelID)
}

func (h *Handlers) triggerMirrorLivePlaylists(ctx context.Context, _ *queue.TaskMessage) error {
	_, err := h.mirror.MirrorAll(ctx)
	return err
}

func (h *Handlers) subscribeToChannel(ctx context.Context, msg *queue.TaskMessage) error {
	providerObjectID, ok := msg.StringArg(queue.ArgProviderID)
	if !ok {
		return fmt.Errorf("task %s missing %s", msg.Task, queue.ArgProviderID)
	}
	_, err := h.subscription.Subscribe(ctx, providerObjectID)
	return err
}

// finishHistory closes the message's scan-history entry, if it carries one.
// Sibling scan tasks share one entry; whichever finishes first wins and the
// rest land on the already-finished guard, which is not an error.
func (h *Handlers) finishHistory(ctx context.Context, msg *queue.TaskMessage, outcome domain.ScanOutcome) {
	entryID, ok := msg.StringArg(queue.ArgScanHistoryID)
	if !ok {
		return
	}

	err := h.history.Finish(ctx, entryID, outcome)
	if err == nil || errors.Is(err, database.ErrNotFound) {
		return
	}
	h.log.Error("failed to finish scan-history entry",
		"entry_id", entryID,
		"outcome", outcome,
		"error", err,
	)
}
