package worker

import (
	"fmt"
	"time"
)

const (
	// DefaultPoolSize is the default number of concurrent workers.
	DefaultPoolSize = 4

	// DefaultTaskTimeout bounds one task execution. Channel scans can take
	// minutes when the download worker enumerates a large backlog.
	DefaultTaskTimeout = 10 * time.Minute

	// DefaultDrainTimeout bounds the graceful shutdown wait.
	DefaultDrainTimeout = 30 * time.Second

	maxPoolSize = 64
)

// Config holds worker pool configuration.
type Config struct {
	PoolSize     int
	TaskTimeout  time.Duration
	DrainTimeout time.Duration
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		PoolSize:     DefaultPoolSize,
		TaskTimeout:  DefaultTaskTimeout,
		DrainTimeout: DefaultDrainTimeout,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.PoolSize <= 0 || c.PoolSize > maxPoolSize {
		return fmt.Errorf("pool size must be between 1 and %d, got %d", maxPoolSize, c.PoolSize)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("task timeout must be positive, got %s", c.TaskTimeout)
	}
	if c.DrainTimeout <= 0 {
		return fmt.Errorf("drain timeout must be positive, got %s", c.DrainTimeout)
	}
	return nil
}
