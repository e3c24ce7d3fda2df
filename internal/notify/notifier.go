// Package notify sends user-facing notifications through a Gotify server.
// Every event is gated by its own enable flag; a notifier with no URL
// configured silently drops everything.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tubemirror/internal/config"
	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
)

const defaultTimeout = 10 * time.Second

// Notifier sends catalog events to the operator.
type Notifier interface {
	PlaylistAddedFromMirror(ctx context.Context, channel *domain.Channel, playlist *domain.Playlist)
	ChannelStatusChanged(ctx context.Context, channel *domain.Channel, status domain.ChannelStatus)
	ChannelSubscribed(ctx context.Context, channel *domain.Channel)
}

// GotifyNotifier implements Notifier against a Gotify server.
type GotifyNotifier struct {
	cfg        config.GotifyConfig
	flags      config.NotificationsConfig
	httpClient *http.Client
	log        logger.Interface
}

// NewGotifyNotifier creates a new Gotify-backed notifier.
func NewGotifyNotifier(cfg config.GotifyConfig, flags config.NotificationsConfig, log logger.Interface) *GotifyNotifier {
	return &GotifyNotifier{
		cfg:        cfg,
		flags:      flags,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log,
	}
}

// PlaylistAddedFromMirror announces a playlist discovered by mirroring.
func (n *GotifyNotifier) PlaylistAddedFromMirror(ctx context.Context, channel *domain.Channel, playlist *domain.Playlist) {
	if !n.flags.PlaylistAddedFromMirror || !channel.NotificationsEnabled {
		return
	}
	n.send(ctx,
		"Playlist added by mirror",
		fmt.Sprintf("%s: playlist %q (%s) is now mirrored", channel.Name, playlist.Title, playlist.ProviderObjectID),
	)
}

// ChannelStatusChanged announces a provider-reported status transition.
func (n *GotifyNotifier) ChannelStatusChanged(ctx context.Context, channel *domain.Channel, status domain.ChannelStatus) {
	if !n.flags.ChannelStatusChanged {
		return
	}
	n.send(ctx,
		"Channel status changed",
		fmt.Sprintf("%s (%s) is now %s", channel.Name, channel.ProviderObjectID, status),
	)
}

// ChannelSubscribed announces a completed subscription bootstrap.
func (n *GotifyNotifier) ChannelSubscribed(ctx context.Context, channel *domain.Channel) {
	if !n.flags.ChannelSubscribed || !channel.NotificationsEnabled {
		return
	}
	n.send(ctx,
		"Channel subscribed",
		fmt.Sprintf("Now tracking %s (%s)", channel.Name, channel.ProviderObjectID),
	)
}

// gotifyMessage is the Gotify message creation payload.
type gotifyMessage struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// send posts one message. Notifications are fire-and-forget: failures are
// logged, never propagated.
func (n *GotifyNotifier) send(ctx context.Context, title, message string) {
	if n.cfg.URL == "" {
		return
	}

	payload, err := json.Marshal(gotifyMessage{
		Title:    n.cfg.TitlePrefix + title,
		Message:  message,
		Priority: n.cfg.Priority,
	})
	if err != nil {
		n.log.Error("failed to marshal notification", "error", err)
		return
	}

	endpoint := n.cfg.URL + "/message?token=" + n.cfg.Token
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		n.log.Error("failed to create notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Warn("failed to send notification", "title", title, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		n.log.Warn("notification rejected", "title", title, "status", resp.StatusCode)
	}
}

// NoopNotifier discards all notifications. Used in tests.
type NoopNotifier struct{}

func (NoopNotifier) PlaylistAddedFromMirror(context.Context, *domain.Channel, *domain.Playlist) {}

func (NoopNotifier) ChannelStatusChanged(context.Context, *domain.Channel, domain.ChannelStatus) {}

func (NoopNotifier) ChannelSubscribed(context.Context, *domain.Channel) {}
