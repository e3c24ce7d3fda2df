package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tubemirror/internal/logger"
	"tubemirror/internal/metrics"
	"tubemirror/internal/queue"
)

// PoolState represents the current state of the pool.
type PoolState int32

const (
	// PoolStateStopped means the pool is not running.
	PoolStateStopped PoolState = iota

	// PoolStateRunning means the pool is actively processing tasks.
	PoolStateRunning

	// PoolStateDraining means the pool is shutting down gracefully.
	PoolStateDraining
)

// String returns the string representation of a pool state.
func (s PoolState) String() string {
	switch s {
	case PoolStateStopped:
		return "stopped"
	case PoolStateRunning:
		return "running"
	case PoolStateDraining:
		return "draining"
	default:
		return "unknown"
	}
}

// Pool runs tasks on a bounded set of workers.
type Pool struct {
	config  Config
	workers []*Worker
	log     logger.Interface
	state   atomic.Int32
	sem     chan struct{}
	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.RWMutex
}

// NewPool creates a worker pool over the handler registry.
func NewPool(
	cfg Config,
	registry map[string]HandlerFunc,
	results TaskResultWriter,
	m *metrics.Metrics,
	log logger.Interface,
) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(registry) == 0 {
		return nil, errors.New("handler registry cannot be empty")
	}

	p := &Pool{
		config:  cfg,
		log:     log,
		workers: make([]*Worker, cfg.PoolSize),
		sem:     make(chan struct{}, cfg.PoolSize),
		stopCh:  make(chan struct{}),
	}
	for i := range cfg.PoolSize {
		p.workers[i] = NewWorker(i, registry, results, m, cfg.TaskTimeout, log)
	}

	p.state.Store(int32(PoolStateStopped))
	return p, nil
}

// Start starts the worker pool.
func (p *Pool) Start() error {
	if !p.state.CompareAndSwap(int32(PoolStateStopped), int32(PoolStateRunning)) {
		return errors.New("pool is already running")
	}

	p.log.Info("worker pool started", "pool_size", p.config.PoolSize)
	return nil
}

// Stop drains the pool, waiting for in-flight tasks up to the drain timeout.
func (p *Pool) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolStateRunning), int32(PoolStateDraining)) {
		return errors.New("pool is not running")
	}

	p.log.Info("worker pool draining")
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.log.Warn("worker pool stop cancelled")
	case <-time.After(p.config.DrainTimeout):
		p.log.Warn("worker pool drain timeout exceeded")
	}

	p.state.Store(int32(PoolStateStopped))
	return nil
}

// Submit hands a task to an idle worker, blocking while the pool is full.
// The done callback runs after processing, successful or not; the runner uses
// it to acknowledge the message.
func (p *Pool) Submit(ctx context.Context, task *queue.ConsumedTask, done func()) error {
	if p.State() != PoolStateRunning {
		return errors.New("pool is not running")
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return errors.New("pool is stopping")
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
			if done != nil {
				done()
			}
		}()

		worker := p.acquireWorker()
		if worker == nil {
			p.log.Error("no idle worker available", "task_id", task.Message.ID)
			return
		}
		// The worker logs and records failures; nothing more to do here.
		_ = worker.Process(ctx, task)
	}()

	return nil
}

// acquireWorker finds an idle worker.
func (p *Pool) acquireWorker() *Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, w := range p.workers {
		if w.IsIdle() {
			return w
		}
	}
	return nil
}

// State returns the current pool state.
func (p *Pool) State() PoolState {
	return PoolState(p.state.Load())
}

// IsRunning reports whether the pool is running.
func (p *Pool) IsRunning() bool {
	return p.State() == PoolStateRunning
}

// Size returns the pool size.
func (p *Pool) Size() int {
	return p.config.PoolSize
}

// BusyCount returns the number of busy workers.
func (p *Pool) BusyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, w := range p.workers {
		if w.IsBusy() {
			count++
		}
	}
	return count
}

// Stats returns per-worker counters.
func (p *Pool) Stats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}
