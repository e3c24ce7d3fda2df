package domain

import (
	"time"
)

// SubjectKind identifies the kind of subject a scan targets.
type SubjectKind string

const (
	SubjectChannel  SubjectKind = "channel"
	SubjectPlaylist SubjectKind = "playlist"
)

// ScanOutcome is the terminal state of a scan-history entry.
type ScanOutcome string

const (
	ScanPending ScanOutcome = "pending"
	ScanOK      ScanOutcome = "ok"
	ScanFailed  ScanOutcome = "failed"
)

// ScanHistoryEntry is one record in the append-only scan log. Entries are
// created before dispatch and updated once by the task on completion; they
// are immutable thereafter.
type ScanHistoryEntry struct {
	ID          string      `db:"id" json:"id"`
	SubjectKind SubjectKind `db:"subject_kind" json:"subject_kind"`
	SubjectID   int64       `db:"subject_id" json:"subject_id"`
	Outcome     ScanOutcome `db:"outcome" json:"outcome"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	FinishedAt  *time.Time  `db:"finished_at" json:"finished_at,omitempty"`
}

// TaskStatus is the execution status of a queued task.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskStarted TaskStatus = "started"
	TaskOK      TaskStatus = "ok"
	TaskFailed  TaskStatus = "failed"
)

// TaskResult records the outcome of one task execution. The scheduling core
// queries it for the latest successful trigger run.
type TaskResult struct {
	ID           string     `db:"id" json:"id"`
	TaskName     string     `db:"task_name" json:"task_name"`
	Status       TaskStatus `db:"status" json:"status"`
	DateDone     *time.Time `db:"date_done" json:"date_done,omitempty"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Dispatched is the set of subjects dispatched by one trigger run.
type Dispatched struct {
	Channels  []int64 `json:"channels"`
	Playlists []int64 `json:"playlists"`
}

// HasChannel reports whether the channel id is already in the dispatch set.
func (d *Dispatched) HasChannel(id int64) bool {
	for _, c := range d.Channels {
		if c == id {
			return true
		}
	}
	return false
}

// HasPlaylist reports whether the playlist id is already in the dispatch set.
func (d *Dispatched) HasPlaylist(id int64) bool {
	for _, p := range d.Playlists {
		if p == id {
			return true
		}
	}
	return false
}

// Merge appends the other dispatch set, skipping ids already present.
func (d *Dispatched) Merge(other Dispatched) {
	for _, c := range other.Channels {
		if !d.HasChannel(c) {
			d.Channels = append(d.Channels, c)
		}
	}
	for _, p := range other.Playlists {
		if !d.HasPlaylist(p) {
			d.Playlists = append(d.Playlists, p)
		}
	}
}
