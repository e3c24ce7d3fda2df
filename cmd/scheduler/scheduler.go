// Package scheduler implements the long-running scheduler daemon: the minute
// ticker, delayed-task promotion, the playlist-mirror sweep and the worker
// pool, all sharing one process.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tubemirror/cmd/common"
	"tubemirror/internal/cronexpr"
	"tubemirror/internal/database"
	"tubemirror/internal/logger"
	"tubemirror/internal/queue"
	"tubemirror/internal/worker"
)

// promoteInterval is how often due delayed tasks are moved onto the stream.
const promoteInterval = time.Second

// shutdownTimeout bounds the graceful shutdown of the worker pool.
const shutdownTimeout = 30 * time.Second

// Command returns the scheduler command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the scheduler daemon",
		Long: `Run the scheduler daemon: enqueues a trigger run every tick, promotes
delayed tasks, sweeps playlist mirrors on their crontab and processes
queued tasks with a worker pool.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	deps, err := common.Build()
	if err != nil {
		return err
	}
	defer deps.Close()

	log := deps.Logger
	cfg := deps.Config

	if err := database.MigrateUp(cfg.Database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	consumer, err := queue.NewConsumer(deps.Streams, queue.ConsumerConfig{
		ConsumerID: "scheduler-" + uuid.New().String()[:8],
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	if err := consumer.Initialize(ctx); err != nil {
		return err
	}

	handlers := worker.NewHandlers(
		deps.Engine,
		deps.Mirror,
		deps.Subscription,
		deps.Download,
		deps.Channels,
		deps.Playlists,
		deps.History,
		log,
	)

	poolCfg := worker.DefaultConfig()
	poolCfg.PoolSize = cfg.Scheduler.WorkerPoolSize
	pool, err := worker.NewPool(poolCfg, handlers.Registry(), deps.Results, deps.Metrics, log)
	if err != nil {
		return err
	}
	if err := pool.Start(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("scheduler started",
		"tick_interval", cfg.Scheduler.TickInterval,
		"pool_size", poolCfg.PoolSize,
		"mirror_crontab", cfg.Scheduler.MirrorCrontab,
	)

	go tickLoop(ctx, deps, log)
	go promoteLoop(ctx, deps, log)

	runner := worker.NewRunner(consumer, pool, log)
	runErr := runner.Run(ctx)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if stopErr := pool.Stop(stopCtx); stopErr != nil {
		log.Warn("worker pool stop failed", "error", stopErr)
	}

	log.Info("scheduler stopped")
	return runErr
}

// tickLoop enqueues one trigger run per tick and the mirror sweep on its own
// crontab. The trigger task goes through the queue rather than running
// inline, so its execution is recorded like any other task.
func tickLoop(ctx context.Context, deps *common.Deps, log logger.Interface) {
	evaluator := cronexpr.NewEvaluator()
	ticker := time.NewTicker(deps.Config.Scheduler.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := deps.Producer.Enqueue(ctx, queue.TaskTriggerCrontabScans, nil, 0); err != nil {
				log.Error("failed to enqueue trigger run", "error", err)
			}

			matches, err := evaluator.Matches(deps.Config.Scheduler.MirrorCrontab, now)
			if err != nil {
				log.Error("invalid mirror crontab",
					"crontab", deps.Config.Scheduler.MirrorCrontab,
					"error", err,
				)
				continue
			}
			if matches {
				if _, err := deps.Producer.Enqueue(ctx, queue.TaskTriggerMirrorLivePlaylists, nil, 0); err != nil {
					log.Error("failed to enqueue mirror sweep", "error", err)
				}
			}
		}
	}
}

// promoteLoop moves due delayed tasks onto the stream.
func promoteLoop(ctx context.Context, deps *common.Deps, log logger.Interface) {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := deps.Producer.PromoteDue(ctx, now); err != nil {
				log.Error("failed to promote delayed tasks", "error", err)
			}
		}
	}
}
