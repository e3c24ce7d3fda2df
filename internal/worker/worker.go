// Package worker processes queued tasks with a bounded pool. Every execution
// is recorded as a task-result row; the trigger engine's gap auditor reads
// those rows back to find the last successful trigger run.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"tubemirror/internal/domain"
	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
	"tubemirror/internal/queue"
)

// TaskResultWriter persists task execution outcomes.
type TaskResultWriter interface {
	Create(ctx context.Context, result *domain.TaskResult) error
}

// WorkerState represents the current state of a worker.
type WorkerState int32

const (
	// WorkerStateIdle means the worker is waiting for work.
	WorkerStateIdle WorkerState = iota

	// WorkerStateBusy means the worker is processing a task.
	WorkerStateBusy
)

// String returns the string representation of a worker state.
func (s WorkerState) String() string {
	switch s {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Worker is one executor in the pool.
type Worker struct {
	id          int
	state       atomic.Int32
	registry    map[string]HandlerFunc
	results     TaskResultWriter
	metrics     *metrics.Metrics
	taskTimeout time.Duration
	log         logger.Interface

	tasksProcessed atomic.Int64
	tasksSucceeded atomic.Int64
	tasksFailed    atomic.Int64
	lastTaskAt     atomic.Int64
}

// NewWorker creates a worker bound to the shared handler registry.
func NewWorker(
	id int,
	registry map[string]HandlerFunc,
	results TaskResultWriter,
	m *metrics.Metrics,
	taskTimeout time.Duration,
	log logger.Interface,
) *Worker {
	w := &Worker{
		id:          id,
		registry:    registry,
		results:     results,
		metrics:     m,
		taskTimeout: taskTimeout,
		log:         log,
	}
	w.state.Store(int32(WorkerStateIdle))
	return w
}

// ID returns the worker id.
func (w *Worker) ID() int {
	return w.id
}

// State returns the current worker state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// IsIdle reports whether the worker is idle.
func (w *Worker) IsIdle() bool {
	return w.State() == WorkerStateIdle
}

// IsBusy reports whether the worker is busy.
func (w *Worker) IsBusy() bool {
	return w.State() == WorkerStateBusy
}

// Process runs one consumed task and records its outcome.
func (w *Worker) Process(ctx context.Context, task *queue.ConsumedTask) error {
	if task == nil || task.Message == nil {
		return fmt.Errorf("worker %d: task cannot be nil", w.id)
	}

	if !w.state.CompareAndSwap(int32(WorkerStateIdle), int32(WorkerStateBusy)) {
		return fmt.Errorf("worker %d: not idle, current state: %s", w.id, w.State())
	}
	defer w.state.Store(int32(WorkerStateIdle))

	msg := task.Message
	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	w.log.Debug("worker processing task",
		"worker_id", w.id,
		"task", msg.Task,
		"task_id", msg.ID,
	)

	started := time.Now()
	err := w.execute(taskCtx, msg)
	duration := time.Since(started)

	w.tasksProcessed.Add(1)
	w.lastTaskAt.Store(time.Now().UnixNano())
	w.record(ctx, msg, err)
	w.metrics.RecordTask(err == nil)

	if err != nil {
		w.tasksFailed.Add(1)
		w.log.Error("task failed",
			"worker_id", w.id,
			"task", msg.Task,
			"task_id", msg.ID,
			"duration", duration,
			"error", err,
		)
		return fmt.Errorf("worker %d: task %s failed: %w", w.id, msg.ID, err)
	}

	w.tasksSucceeded.Add(1)
	w.log.Info("task completed",
		"worker_id", w.id,
		"task", msg.Task,
		"task_id", msg.ID,
		"duration", duration,
	)
	return nil
}

// execute dispatches the message to its handler.
func (w *Worker) execute(ctx context.Context, msg *queue.TaskMessage) error {
	handler, ok := w.registry[msg.Task]
	if !ok {
		return fmt.Errorf("no handler registered for task %s", msg.Task)
	}
	return handler(ctx, msg)
}

// record writes the task-result row. Recording failures are logged but do not
// fail the task; the result table is bookkeeping, not the source of truth for
// the work done.
func (w *Worker) record(ctx context.Context, msg *queue.TaskMessage, taskErr error) {
	now := time.Now().UTC()
	result := &domain.TaskResult{
		ID:       msg.ID,
		TaskName: msg.Task,
		Status:   domain.TaskOK,
		DateDone: &now,
	}
	if taskErr != nil {
		errMsg := taskErr.Error()
		result.Status = domain.TaskFailed
		result.ErrorMessage = &errMsg
	}

	if err := w.results.Create(ctx, result); err != nil {
		w.log.Error("failed to record task result",
			"task", msg.Task,
			"task_id", msg.ID,
			"error", err,
		)
	}
}

// Stats returns the worker's counters.
func (w *Worker) Stats() WorkerStats {
	var lastTask time.Time
	if ts := w.lastTaskAt.Load(); ts > 0 {
		lastTask = time.Unix(0, ts)
	}

	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TasksProcessed: w.tasksProcessed.Load(),
		TasksSucceeded: w.tasksSucceeded.Load(),
		TasksFailed:    w.tasksFailed.Load(),
		LastTaskAt:     lastTask,
	}
}

// WorkerStats holds counters for one worker.
type WorkerStats struct {
	ID             int
	State          WorkerState
	TasksProcessed int64
	TasksSucceeded int64
	TasksFailed    int64
	LastTaskAt     time.Time
}
