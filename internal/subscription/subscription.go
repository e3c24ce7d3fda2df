// Package subscription implements the channel subscription workflow: resolve
// or create the channel row, pull remote metadata, and bootstrap the followup
// tasks a newly tracked channel needs.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"tubemirror/internal/cronexpr"
	"tubemirror/internal/database"
	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
	"tubemirror/internal/notify"
	"tubemirror/internal/provider"
	"tubemirror/internal/queue"
	"tubemirror/internal/scheduler"
)

// ChannelStore is the channel access the workflow needs.
type ChannelStore interface {
	GetByProviderObjectID(ctx context.Context, providerObjectID string) (*domain.Channel, error)
	Create(ctx context.Context, channel *domain.Channel) error
	UpdateDetails(ctx context.Context, id int64, name, description, uploaderID string) error
	UpdateStatus(ctx context.Context, id int64, status domain.ChannelStatus) error
}

// VideoStore answers whether a channel already owns downloaded files.
type VideoStore interface {
	ChannelHasFiles(ctx context.Context, channelID int64) (bool, error)
}

// Service runs the subscription workflow.
type Service struct {
	channels ChannelStore
	videos   VideoStore
	provider provider.Client
	fanout   *scheduler.FanOut
	queue    scheduler.Enqueuer
	notifier notify.Notifier
	gen      *cronexpr.Generator
	log      logger.Interface
	params   scheduler.ScanParams
}

// NewService creates a subscription service. The scan params shape the
// initial fan-out issued for the new channel.
func NewService(
	channels ChannelStore,
	videos VideoStore,
	client provider.Client,
	fanout *scheduler.FanOut,
	enqueuer scheduler.Enqueuer,
	notifier notify.Notifier,
	log logger.Interface,
	params scheduler.ScanParams,
) *Service {
	return &Service{
		channels: channels,
		videos:   videos,
		provider: client,
		fanout:   fanout,
		queue:    enqueuer,
		notifier: notifier,
		gen:      cronexpr.NewGenerator(),
		log:      log,
		params:   params,
	}
}

// Subscribe tracks the channel identified by the provider object id. Calling
// it for an already tracked channel refreshes its metadata and re-runs the
// bootstrap tasks instead of failing.
//
// A provider response naming the channel terminated or banned is not an
// error: the status is persisted and the workflow stops cleanly. Transient
// provider failures propagate so the task can be retried.
func (s *Service) Subscribe(ctx context.Context, providerObjectID string) (*domain.Channel, error) {
	channel, err := s.resolveChannel(ctx, providerObjectID)
	if err != nil {
		return nil, err
	}

	details, err := s.provider.ChannelDetails(ctx, channel)
	if err != nil {
		var dlErr *provider.DownloadError
		if errors.As(err, &dlErr) {
			if status, terminal := dlErr.TerminalStatus(); terminal {
				s.log.Warn("channel is gone upstream",
					"channel_id", channel.ID,
					"provider_object_id", providerObjectID,
					"status", status,
				)
				if updateErr := s.channels.UpdateStatus(ctx, channel.ID, status); updateErr != nil {
					return nil, fmt.Errorf("failed to mark channel %d %s: %w", channel.ID, status, updateErr)
				}
				channel.Status = status
				s.notifier.ChannelStatusChanged(ctx, channel, status)
				return channel, nil
			}
		}
		return nil, fmt.Errorf("failed to fetch channel details for %s: %w", providerObjectID, err)
	}

	if err := s.channels.UpdateDetails(ctx, channel.ID, details.Name, details.Description, details.UploaderID); err != nil {
		return nil, fmt.Errorf("failed to store channel details: %w", err)
	}
	channel.Name = details.Name
	channel.Description = details.Description
	channel.UploaderID = details.UploaderID

	if _, err := s.queue.Enqueue(ctx, queue.TaskUpdateChannelBanners, map[string]any{
		queue.ArgChannelID: channel.ID,
	}, 0); err != nil {
		return nil, fmt.Errorf("failed to enqueue banner update: %w", err)
	}

	// Existing files may carry names from before the subscription; schedule a
	// rename pass only when there is something on disk to rename.
	hasFiles, err := s.videos.ChannelHasFiles(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check channel files: %w", err)
	}
	if hasFiles {
		if _, err := s.queue.Enqueue(ctx, queue.TaskRenameVideoFiles, map[string]any{
			queue.ArgChannelID: channel.ID,
		}, 0); err != nil {
			return nil, fmt.Errorf("failed to enqueue file rename: %w", err)
		}
	}

	if err := s.fanout.Scan(ctx, channel, s.params); err != nil {
		return nil, fmt.Errorf("failed to dispatch initial scan: %w", err)
	}

	s.notifier.ChannelSubscribed(ctx, channel)
	s.log.Info("channel subscribed",
		"channel_id", channel.ID,
		"provider_object_id", providerObjectID,
	)

	return channel, nil
}

// resolveChannel finds the tracked channel or creates it with subscription
// defaults: active, scanning videos on a load-balanced daily crontab, with
// playlist mirroring and notifications on.
func (s *Service) resolveChannel(ctx context.Context, providerObjectID string) (*domain.Channel, error) {
	channel, err := s.channels.GetByProviderObjectID(ctx, providerObjectID)
	if err == nil {
		return channel, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up channel %s: %w", providerObjectID, err)
	}

	channel = &domain.Channel{
		ProviderObjectID:       providerObjectID,
		Status:                 domain.ChannelActive,
		ScannerCrontab:         s.gen.Daily(providerObjectID),
		IndexVideos:            true,
		MirrorPlaylists:        true,
		MirrorPlaylistsCrontab: domain.MirrorDaily,
		NotificationsEnabled:   true,
	}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, fmt.Errorf("failed to create channel %s: %w", providerObjectID, err)
	}

	s.log.Info("created channel",
		"channel_id", channel.ID,
		"provider_object_id", providerObjectID,
		"scanner_crontab", channel.ScannerCrontab,
	)
	return channel, nil
}
