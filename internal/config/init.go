package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitializeViper initializes Viper configuration from environment variables
// and config files. Must be called before Load().
func InitializeViper(cfgFile string) error {
	loadEnvFile()
	setupViper(cfgFile)
	setDefaults()
	readConfigFile()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}
	return nil
}

// loadEnvFile loads .env file (ignores error if file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// setupViper configures Viper for environment variable and config file reading.
func setupViper(cfgFile string) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		return
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/tubemirror")
}

// readConfigFile reads config file (ignores error if file doesn't exist).
func readConfigFile() {
	_ = viper.ReadInConfig()
}

// bindEnvironmentVariables binds the externally documented environment
// variables to their config keys.
func bindEnvironmentVariables() error {
	bindings := map[string]string{
		"scheduler.crontab_check_interval":             "CRONTAB_CHECK_INTERVAL",
		"scheduler.crontab_check_interval_max_in_days": "CRONTAB_CHECK_INTERVAL_MAX_IN_DAYS",
		"notifications.playlist_added_from_mirror":     "NOTIFICATIONS_PLAYLIST_ADDED_FROM_MIRROR",
		"notifications.channel_status_changed":         "NOTIFICATIONS_CHANNEL_STATUS_CHANGED",
		"notifications.channel_subscribed":             "NOTIFICATIONS_CHANNEL_SUBSCRIBED",
		"gotify.url":                                   "GOTIFY_URL",
		"gotify.token":                                 "GOTIFY_TOKEN",
		"gotify.priority":                              "GOTIFY_PRIORITY",
		"gotify.title_prefix":                          "GOTIFY_TITLE_PREFIX",
		"database.host":                                "DATABASE_HOST",
		"database.port":                                "DATABASE_PORT",
		"database.user":                                "DATABASE_USER",
		"database.password":                            "DATABASE_PASSWORD",
		"database.dbname":                              "DATABASE_DBNAME",
		"database.sslmode":                             "DATABASE_SSLMODE",
		"redis.addr":                                   "REDIS_ADDR",
		"redis.password":                               "REDIS_PASSWORD",
		"redis.db":                                     "REDIS_DB",
		"provider.base_url":                            "PROVIDER_BASE_URL",
		"provider.downloader_url":                      "PROVIDER_DOWNLOADER_URL",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// App defaults - production safe
	viper.SetDefault("app", map[string]any{
		"name":        "tubemirror",
		"environment": "production",
		"debug":       false,
	})

	// Logger defaults - production safe
	viper.SetDefault("logger", map[string]any{
		"level":       "info",
		"development": false,
		"encoding":    "json",
	})

	viper.SetDefault("database", map[string]any{
		"host":    "localhost",
		"port":    "5432",
		"user":    "tubemirror",
		"dbname":  "tubemirror",
		"sslmode": "disable",
	})

	viper.SetDefault("redis", map[string]any{
		"addr":   "localhost:6379",
		"db":     0,
		"prefix": "tubemirror",
	})

	viper.SetDefault("scheduler", map[string]any{
		"tick_interval":                      DefaultTickInterval,
		"crontab_check_interval":             DefaultCrontabCheckInterval,
		"crontab_check_interval_max_in_days": DefaultCrontabCheckIntervalMaxInDays,
		"suppression_floor":                  DefaultSuppressionFloor,
		"scan_limit":                         DefaultScanLimit,
		"wait_period":                        DefaultWaitPeriod,
		"countdown":                          "0s",
		"worker_pool_size":                   DefaultWorkerPoolSize,
		"mirror_crontab":                     "30 4 * * *",
	})

	viper.SetDefault("provider", map[string]any{
		"base_url":        "http://localhost:8555",
		"downloader_url":  "http://localhost:8556",
		"request_timeout": "30s",
	})

	viper.SetDefault("notifications", map[string]any{
		"playlist_added_from_mirror": true,
		"channel_status_changed":     true,
		"channel_subscribed":         true,
	})

	viper.SetDefault("gotify", map[string]any{
		"priority":     5,
		"title_prefix": "",
	})
}
