package scheduler

import "time"

// Status is the lifecycle state of a job.
//
// Transitions: queued → processing → done, or processing → queued when the
// monitor requeues a stuck job. "done" is terminal.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
)

// Job is one unit of submitted work and its tracked lifecycle state.
//
// The record is owned by the Store; everything outside the store works with
// value snapshots. Snapshots share the Payload and Result maps with the
// store's record, so both are treated as immutable after they are set.
//
// JSON field names are part of the wire contract the dashboard and status
// API consume; do not rename them.
type Job struct {
	ID        string         `json:"id"`
	Status    Status         `json:"status"`
	Payload   map[string]any `json:"payload"`
	WorkerID  *int           `json:"worker_id"`
	StartTime *time.Time     `json:"start_time"`
	EndTime   *time.Time     `json:"end_time"`
	Attempts  int            `json:"attempts"`
	Result    map[string]any `json:"result"`
}

// Stats is the aggregate view served by /stats.
// Total == Queued + Processing + Done (computed in one critical section).
type Stats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Workers    int `json:"workers"`
}

// JobEvent is emitted on the event bus for job lifecycle events
// (job.submitted, job.claimed, job.completed, job.requeued, job.abandoned).
type JobEvent struct {
	ID       string        `json:"id"`
	Status   Status        `json:"status"`
	Worker   int           `json:"worker,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}
