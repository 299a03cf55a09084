package archive

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("archive disabled")

// Config configures the archive backend.
//
// Driver values:
//   - "file": append-only JSON Lines file
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", archiving is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry records one job lifecycle event.
// Keep it compact and schema-stable.
type Entry struct {
	At       time.Time `json:"at"`
	JobID    string    `json:"job_id"`
	Event    string    `json:"event"`
	Status   string    `json:"status"`
	Worker   int       `json:"worker"`
	Attempts int       `json:"attempts"`
	TookMS   int64     `json:"took_ms"`
	Error    string    `json:"err,omitempty"`
}
