// Package common wires the shared dependency graph used by every command.
package common

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"tubemirror/internal/config"
	"tubemirror/internal/database"
	"tubemirror/internal/downloader"
	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
	"tubemirror/internal/mirror"
	"tubemirror/internal/notify"
	"tubemirror/internal/provider"
	"tubemirror/internal/queue"
	"tubemirror/internal/scheduler"
	"tubemirror/internal/subscription"
)

// Deps is the assembled dependency graph.
type Deps struct {
	Config  *config.Config
	Logger  logger.Interface
	DB      *sqlx.DB
	Streams *queue.StreamsClient

	Producer *queue.Producer

	Channels  *database.ChannelRepository
	Playlists *database.PlaylistRepository
	Videos    *database.VideoRepository
	History   *database.ScanHistoryRepository
	Results   *database.TaskResultRepository

	Provider provider.Client
	Download downloader.Worker
	Notifier notify.Notifier
	Metrics  *metrics.Metrics

	FanOut       *scheduler.FanOut
	Engine       *scheduler.Engine
	Mirror       *mirror.Service
	Subscription *subscription.Service
}

// Build loads configuration and assembles the dependency graph. Callers own
// the returned Deps and must Close it.
func Build() (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, err
	}

	streams, err := queue.NewStreamsClient(cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	d := &Deps{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Streams:  streams,
		Producer: queue.NewProducer(streams, queue.ProducerConfig{}),

		Channels:  database.NewChannelRepository(db),
		Playlists: database.NewPlaylistRepository(db),
		Videos:    database.NewVideoRepository(db),
		History:   database.NewScanHistoryRepository(db),
		Results:   database.NewTaskResultRepository(db),

		Metrics: metrics.NewMetrics(),
	}

	d.Provider = provider.NewHTTPClient(
		provider.WithBaseURL(cfg.Provider.BaseURL),
		provider.WithTimeout(cfg.Provider.RequestTimeout),
	)
	d.Download = downloader.NewHTTPWorker(
		downloader.WithBaseURL(cfg.Provider.DownloaderURL),
	)

	if cfg.Gotify.URL != "" {
		d.Notifier = notify.NewGotifyNotifier(cfg.Gotify, cfg.Notifications, log)
	} else {
		d.Notifier = notify.NoopNotifier{}
	}

	d.FanOut = scheduler.NewFanOut(d.History, d.Producer, log)
	d.Engine = scheduler.NewEngine(
		d.Channels,
		d.Playlists,
		d.History,
		d.Results,
		d.FanOut,
		d.Metrics,
		log,
		cfg.Scheduler,
	)
	d.Mirror = mirror.NewService(d.Channels, d.Playlists, d.Provider, d.Producer, d.Notifier, log)
	d.Subscription = subscription.NewService(
		d.Channels,
		d.Videos,
		d.Provider,
		d.FanOut,
		d.Producer,
		d.Notifier,
		log,
		scheduler.ScanParams{
			Limit:      cfg.Scheduler.ScanLimit,
			Countdown:  cfg.Scheduler.Countdown,
			WaitPeriod: cfg.Scheduler.WaitPeriod,
		},
	)

	return d, nil
}

// Close releases the graph's connections.
func (d *Deps) Close() {
	if d.Streams != nil {
		if err := d.Streams.Close(); err != nil {
			d.Logger.Error("failed to close redis client", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("failed to close database", "error", err)
		}
	}
}
