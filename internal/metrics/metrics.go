// Package metrics provides in-process counters for scheduling activity.
package metrics

import (
	"sync"
	"time"
)

// Metrics holds the scheduling and task-processing counters.
type Metrics struct {
	// DispatchedChannels is the number of channel scans dispatched.
	DispatchedChannels int64
	// DispatchedPlaylists is the number of playlist syncs dispatched.
	DispatchedPlaylists int64
	// RecoveredDispatches is the number of dispatches issued by the gap auditor.
	RecoveredDispatches int64
	// TasksSucceeded is the number of tasks that completed successfully.
	TasksSucceeded int64
	// TasksFailed is the number of tasks that returned an error.
	TasksFailed int64
	// LastTriggerTick is the instant of the most recent trigger run.
	LastTriggerTick time.Time
	// StartTime is when the metrics collection began.
	StartTime time.Time

	mu sync.Mutex
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordDispatch adds one trigger run's dispatch counts.
func (m *Metrics) RecordDispatch(channels, playlists int, tick time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DispatchedChannels += int64(channels)
	m.DispatchedPlaylists += int64(playlists)
	m.LastTriggerTick = tick
}

// RecordRecovered counts dispatches replayed by the gap auditor.
func (m *Metrics) RecordRecovered(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecoveredDispatches += int64(count)
}

// RecordTask counts one task completion.
func (m *Metrics) RecordTask(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		m.TasksSucceeded++
	} else {
		m.TasksFailed++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Metrics{
		DispatchedChannels:  m.DispatchedChannels,
		DispatchedPlaylists: m.DispatchedPlaylists,
		RecoveredDispatches: m.RecoveredDispatches,
		TasksSucceeded:      m.TasksSucceeded,
		TasksFailed:         m.TasksFailed,
		LastTriggerTick:     m.LastTriggerTick,
		StartTime:           m.StartTime,
	}
}
