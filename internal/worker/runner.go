package worker

import (
	"context"
	"errors"
	"time"

	"tubemirror/internal/logger"
	"tubemirror/internal/queue"
)

// readRetryDelay backs off the consume loop after a read error so a broken
// Redis connection does not spin.
const readRetryDelay = time.Second

// Runner feeds the pool from the task queue.
type Runner struct {
	consumer *queue.Consumer
	pool     *Pool
	log      logger.Interface
}

// NewRunner creates a runner over the consumer and pool.
func NewRunner(consumer *queue.Consumer, pool *Pool, log logger.Interface) *Runner {
	return &Runner{consumer: consumer, pool: pool, log: log}
}

// Run consumes tasks until the context is cancelled. Messages are
// acknowledged after processing, so a crash mid-task leaves the message
// pending for reclaim instead of losing it.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("task runner started")

	for {
		if err := ctx.Err(); err != nil {
			r.log.Info("task runner stopping")
			return nil
		}

		tasks, err := r.consumer.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				r.log.Info("task runner stopping")
				return nil
			}
			r.log.Error("failed to read tasks", "error", err)
			select {
			case <-time.After(readRetryDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		for _, task := range tasks {
			messageID := task.MessageID
			submitErr := r.pool.Submit(ctx, task, func() {
				// Ack outside the request context: shutdown must not leave a
				// finished task pending.
				ackCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if ackErr := r.consumer.Ack(ackCtx, messageID); ackErr != nil {
					r.log.Error("failed to ack task", "message_id", messageID, "error", ackErr)
				}
			})
			if submitErr != nil {
				r.log.Warn("failed to submit task", "message_id", messageID, "error", submitErr)
			}
		}
	}
}
