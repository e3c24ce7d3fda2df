package mirror

import (
	"context"
	"errors"
	"fmt"

	"tubemirror/internal/provider"
)

// artRefreshAttempts is how many details fetches one art refresh makes before
// accepting that the provider is not serving complete artwork right now.
const artRefreshAttempts = 4

// Banner images on the provider are roughly 6.2:1. Thumbnails without a
// recognized id are classified as banners by aspect ratio alone.
const (
	minBannerAspect = 5.3
	maxBannerAspect = 6.8
)

// Thumbnail ids with a fixed meaning in provider details responses.
const (
	thumbAvatarUncropped = "avatar_uncropped"
	thumbBannerUncropped = "banner_uncropped"
)

// artSet is the artwork URLs extracted from one details response.
type artSet struct {
	Thumbnail string
	Banner    string
	TVArt     string
}

// complete reports whether every artwork slot was resolved.
func (a artSet) complete() bool {
	return a.Thumbnail != "" && a.Banner != "" && a.TVArt != ""
}

// RefreshArt re-fetches the channel's details and persists its artwork URLs
// and metadata. The provider intermittently serves details without the full
// thumbnail set, so incomplete responses are retried; the first return is the
// number of retries spent.
//
// A terminal provider error marks the channel and returns cleanly. Artwork
// that stays incomplete across every attempt is not an error either: nothing
// is persisted and the next scheduled refresh tries again.
func (s *Service) RefreshArt(ctx context.Context, channelID int64) (int, error) {
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to load channel %d: %w", channelID, err)
	}

	retries := 0
	var lastErr error
	for attempt := 1; attempt <= artRefreshAttempts; attempt++ {
		if attempt > 1 {
			retries++
		}

		details, fetchErr := s.provider.ChannelDetails(ctx, channel)
		if fetchErr != nil {
			var dlErr *provider.DownloadError
			if errors.As(fetchErr, &dlErr) {
				if status, terminal := dlErr.TerminalStatus(); terminal {
					s.log.Warn("channel is gone upstream",
						"channel_id", channelID,
						"status", status,
					)
					if updateErr := s.channels.UpdateStatus(ctx, channelID, status); updateErr != nil {
						return retries, fmt.Errorf("failed to mark channel %d %s: %w", channelID, status, updateErr)
					}
					channel.Status = status
					s.notifier.ChannelStatusChanged(ctx, channel, status)
					return retries, nil
				}
			}
			lastErr = fetchErr
			s.log.Warn("channel details fetch failed",
				"channel_id", channelID,
				"attempt", attempt,
				"error", fetchErr,
			)
			continue
		}

		art := classifyArtwork(details.Thumbnails)
		if !art.complete() {
			lastErr = nil
			s.log.Warn("channel details missing artwork",
				"channel_id", channelID,
				"attempt", attempt,
				"thumbnail", art.Thumbnail != "",
				"banner", art.Banner != "",
				"tvart", art.TVArt != "",
			)
			continue
		}

		if err := s.channels.UpdateArtwork(ctx, channelID, art.Thumbnail, art.Banner, art.TVArt); err != nil {
			return retries, fmt.Errorf("failed to store channel artwork: %w", err)
		}
		if err := s.channels.UpdateDetails(ctx, channelID, details.Name, details.Description, details.UploaderID); err != nil {
			return retries, fmt.Errorf("failed to store channel details: %w", err)
		}

		s.log.Info("refreshed channel artwork", "channel_id", channelID, "retries", retries)
		return retries, nil
	}

	if lastErr != nil {
		return retries, fmt.Errorf("failed to fetch channel details after %d attempts: %w", artRefreshAttempts, lastErr)
	}

	s.log.Warn("giving up on incomplete artwork", "channel_id", channelID, "retries", retries)
	return retries, nil
}

// classifyArtwork sorts a details response's thumbnails into artwork slots.
// The uncropped avatar becomes the channel thumbnail and the uncropped banner
// the TV art; the widest remaining image with banner proportions becomes the
// banner.
func classifyArtwork(thumbs []provider.Thumbnail) artSet {
	var art artSet
	bestWidth := 0

	for _, t := range thumbs {
		if t.URL == "" {
			continue
		}
		switch t.ID {
		case thumbAvatarUncropped:
			art.Thumbnail = t.URL
		case thumbBannerUncropped:
			art.TVArt = t.URL
		default:
			if t.Width <= 0 || t.Height <= 0 {
				continue
			}
			aspect := float64(t.Width) / float64(t.Height)
			if aspect >= minBannerAspect && aspect <= maxBannerAspect && t.Width > bestWidth {
				art.Banner = t.URL
				bestWidth = t.Width
			}
		}
	}

	return art
}
