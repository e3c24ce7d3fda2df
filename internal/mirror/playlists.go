// Package mirror keeps a channel's playlist set and artwork in step with the
// provider.
package mirror

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

// playlistListingAttempts is how many times one mirror run asks the provider
// for the playlist listing before giving up on an entry-less payload.
const playlistListingAttempts = 3

// ChannelStore is the channel access the mirror needs.
type ChannelStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Channel, error)
	ListMirrorEnabled(ctx context.Context) ([]*domain.Channel, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ChannelStatus) error
	UpdateDetails(ctx context.Context, id int64, name, description, uploaderID string) error
	UpdateArtwork(ctx context.Context, id int64, thumbnailURL, bannerURL, tvArtURL string) error
}

// PlaylistStore is the playlist access the mirror needs.
type PlaylistStore interface {
	FindByProviderObjectID(ctx context.Context, providerObjectID string) (*domain.Playlist, error)
	Create(ctx context.Context, playlist *domain.Playlist) error
}

// Service mirrors provider playlists and artwork into the catalog.
type Service struct {
	channels  ChannelStore
	playlists PlaylistStore
	provider  provider.Client
	queue     scheduler.Enqueuer
	notifier  notify.Notifier
	gen       *cronexpr.Generator
	log       logger.Interface
}

// NewService creates a mirror service.
func NewService(
	channels ChannelStore,
	playlists PlaylistStore,
	client provider.Client,
	enqueuer scheduler.Enqueuer,
	notifier notify.Notifier,
	log logger.Interface,
) *Service {
	return &Service{
		channels:  channels,
		playlists: playlists,
		provider:  client,
		queue:     enqueuer,
		notifier:  notifier,
		gen:       cronexpr.NewGenerator(),
		log:       log,
	}
}

// MirrorChannel pulls the channel's remote playlist listing and adopts every
// playlist not yet in the catalog. Adopted playlists get a sync crontab in
// the channel's mirror schedule class, seeded by the playlist id so siblings
// spread their activations, and an immediate first sync.
func (s *Service) MirrorChannel(ctx context.Context, channelID int64) error {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to load channel %d: %w", channelID, err)
	}
	if !channel.MirrorPlaylists {
		s.log.Debug("playlist mirroring disabled", "channel_id", channelID)
		return nil
	}

	listing, err := s.fetchListing(ctx, channel)
	if err != nil {
		return err
	}

	adopted := 0
	for _, entry := range listing.Entries {
		created, adoptErr := s.adoptPlaylist(ctx, channel, entry)
		if adoptErr != nil {
			return adoptErr
		}
		if created {
			adopted++
		}
	}

	s.log.Info("mirrored channel playlists",
		"channel_id", channelID,
		"remote", len(listing.Entries),
		"adopted", adopted,
	)
	return nil
}

// MirrorAll fans one mirror task out per mirror-enabled channel. This is the
// top-level sweep the scheduler runs on its own crontab.
func (s *Service) MirrorAll(ctx context.Context) (int, error) {
	channels, err := s.channels.ListMirrorEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list mirror-enabled channels: %w", err)
	}

	for _, channel := range channels {
		if _, err := s.queue.Enqueue(ctx, queue.TaskMirrorLivePlaylist, map[string]any{
			queue.ArgChannelID: channel.ID,
		}, 0); err != nil {
			return 0, fmt.Errorf("failed to enqueue mirror for channel %d: %w", channel.ID, err)
		}
	}

	s.log.Info("scheduled playlist mirror sweep", "channels", len(channels))
	return len(channels), nil
}

// fetchListing asks the provider for the playlist listing, retrying payloads
// with no entries. Some provider responses omit entries transiently; a
// listing that stays empty across every attempt is an error so the task can
// be retried later.
func (s *Service) fetchListing(ctx context.Context, channel *domain.Channel) (*provider.ChannelPlaylistsResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= playlistListingAttempts; attempt++ {
		listing, err := s.provider.ChannelPlaylists(ctx, channel)
		if err != nil {
			lastErr = err
			s.log.Warn("playlist listing fetch failed",
				"channel_id", channel.ID,
				"attempt", attempt,
				"error", err,
			)
			continue
		}
		if listing.Entries == nil {
			lastErr = fmt.Errorf("playlist listing for channel %d had no entries", channel.ID)
			s.log.Warn("playlist listing had no entries",
				"channel_id", channel.ID,
				"attempt", attempt,
			)
			continue
		}
		return listing, nil
	}
	return nil, fmt.Errorf("failed to fetch playlist listing after %d attempts: %w", playlistListingAttempts, lastErr)
}

// adoptPlaylist creates the playlist if neither its current nor its legacy
// provider id is already in the catalog. Returns whether a row was created.
func (s *Service) adoptPlaylist(ctx context.Context, channel *domain.Channel, entry provider.PlaylistEntry) (bool, error) {
	_, err := s.playlists.FindByProviderObjectID(ctx, entry.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return false, fmt.Errorf("failed to look up playlist %s: %w", entry.ID, err)
	}

	playlist := &domain.Playlist{
		ChannelID:        &channel.ID,
		ProviderObjectID: entry.ID,
		Title:            entry.Title,
		Crontab:          s.gen.ForMirrorCrontab(channel.MirrorPlaylistsCrontab, entry.ID),
	}
	if err := s.playlists.Create(ctx, playlist); err != nil {
		return false, fmt.Errorf("failed to create playlist %s: %w", entry.ID, err)
	}

	if _, err := s.queue.Enqueue(ctx, queue.TaskSyncPlaylistData, map[string]any{
		queue.ArgPlaylistID: playlist.ID,
	}, 0); err != nil {
		return false, fmt.Errorf("failed to enqueue first sync for playlist %d: %w", playlist.ID, err)
	}

	s.notifier.PlaylistAddedFromMirror(ctx, channel, playlist)
	s.log.Info("adopted playlist from mirror",
		"channel_id", channel.ID,
		"playlist_id", playlist.ID,
		"provider_object_id", entry.ID,
		"crontab", playlist.Crontab,
	)
	return true, nil
}
