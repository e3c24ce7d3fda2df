// Package config provides configuration management for the application. It
// handles loading, validation, and access to configuration values from YAML
// files and environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"tubemirror/internal/logger"
)

// Scheduler defaults.
const (
	// DefaultTickInterval is the cadence of the trigger engine.
	DefaultTickInterval = time.Minute
	// DefaultCrontabCheckInterval skips the gap auditor when the last
	// successful trigger run is newer than this.
	DefaultCrontabCheckInterval = 10 * time.Minute
	// DefaultCrontabCheckIntervalMaxInDays skips the gap auditor when the
	// last successful trigger run is older than this many days. Replaying a
	// window that old would stampede the provider.
	DefaultCrontabCheckIntervalMaxInDays = 7
	// DefaultSuppressionFloor is the minimum fresh-scan suppression window.
	DefaultSuppressionFloor = time.Hour
	// DefaultScanLimit caps how many items a single scan enumerates.
	DefaultScanLimit = 50
	// DefaultWaitPeriod staggers sibling scan tasks.
	DefaultWaitPeriod = 30 * time.Second
	// DefaultWorkerPoolSize is the number of concurrent task workers.
	DefaultWorkerPoolSize = 4
)

// Config represents the application configuration.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Logger        logger.Config       `mapstructure:"logger"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Provider      ProviderConfig      `mapstructure:"provider"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Gotify        GotifyConfig        `mapstructure:"gotify"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password" json:"-"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis connection settings for the task queue.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SchedulerConfig holds trigger-engine and fan-out settings.
type SchedulerConfig struct {
	// TickInterval is how often the trigger engine fires.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// CrontabCheckInterval: the gap auditor is skipped when the last
	// successful trigger run is more recent than this.
	CrontabCheckInterval time.Duration `mapstructure:"crontab_check_interval"`
	// CrontabCheckIntervalMaxInDays: the gap auditor is skipped when the
	// last successful trigger run is older than this many days.
	CrontabCheckIntervalMaxInDays int `mapstructure:"crontab_check_interval_max_in_days"`
	// SuppressionFloor is the minimum fresh-scan suppression window.
	SuppressionFloor time.Duration `mapstructure:"suppression_floor"`
	// ScanLimit caps how many items a single scan enumerates.
	ScanLimit int `mapstructure:"scan_limit"`
	// WaitPeriod staggers sibling scan tasks in the fan-out.
	WaitPeriod time.Duration `mapstructure:"wait_period"`
	// Countdown is the initial delay before the first fan-out task.
	Countdown time.Duration `mapstructure:"countdown"`
	// WorkerPoolSize is the number of concurrent task workers.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// MirrorCrontab is the schedule for the top-level playlist-mirror sweep.
	MirrorCrontab string `mapstructure:"mirror_crontab"`
}

// ProviderConfig holds settings for the external metadata fetcher and the
// external download worker.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	DownloaderURL  string        `mapstructure:"downloader_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// NotificationsConfig holds per-event enable flags gating notifier calls.
type NotificationsConfig struct {
	PlaylistAddedFromMirror bool `mapstructure:"playlist_added_from_mirror"`
	ChannelStatusChanged    bool `mapstructure:"channel_status_changed"`
	ChannelSubscribed       bool `mapstructure:"channel_subscribed"`
}

// GotifyConfig holds the notifier transport settings.
type GotifyConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token" json:"-"`
	Priority    int    `mapstructure:"priority"`
	TitlePrefix string `mapstructure:"title_prefix"`
}

// MaxAuditAge returns the oldest gap-audit window as a duration.
func (c *SchedulerConfig) MaxAuditAge() time.Duration {
	return time.Duration(c.CrontabCheckIntervalMaxInDays) * 24 * time.Hour
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis addr is required")
	}
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("invalid tick interval: %s", c.Scheduler.TickInterval)
	}
	if c.Scheduler.CrontabCheckInterval <= 0 {
		return fmt.Errorf("invalid crontab check interval: %s", c.Scheduler.CrontabCheckInterval)
	}
	if c.Scheduler.CrontabCheckIntervalMaxInDays <= 0 {
		return fmt.Errorf("invalid crontab check interval max: %d days", c.Scheduler.CrontabCheckIntervalMaxInDays)
	}
	return nil
}

// Load unmarshals the configuration out of viper. InitializeViper must have
// been called first.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
