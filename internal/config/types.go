package config

// Config is the whole dfsched configuration file.
//
// The file may be JSON or YAML (by extension); YAML is coerced through the
// same strict JSON decoder, so unknown fields are rejected in both formats.
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging    LoggingConfig    `json:"logging"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	HTTP       HTTPConfig       `json:"http"`
	Classifier ClassifierConfig `json:"classifier"`

	// Recurring holds cron-driven automatic submissions.
	Recurring *RecurringConfig `json:"recurring,omitempty"`

	// Archive enables the append-only completed-job audit trail.
	Archive *ArchiveConfig `json:"archive,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level"`

	// Console is a pointer so we can distinguish "omitted" (default true)
	// from an explicit false.
	Console *bool         `json:"console,omitempty"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// SchedulerConfig controls the worker pool and the stuck-task monitor.
//
// Defaults (when fields are omitted/zero):
//   - workers: 3
//   - retry_timeout: "10s"
//   - monitor_interval: "1s"
//   - pop_wait: "250ms"
type SchedulerConfig struct {
	Workers int `json:"workers,omitempty"`

	// RetryTimeout is how long a job may stay in "processing" before the
	// monitor requeues it.
	RetryTimeout Duration `json:"retry_timeout,omitempty"`

	MonitorInterval Duration `json:"monitor_interval,omitempty"`
	PopWait         Duration `json:"pop_wait,omitempty"`
}

// HTTPConfig controls the API/dashboard server.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:8000"

	// SubmitRatePerSec rate-limits POST /submit (0 disables the limiter).
	SubmitRatePerSec int `json:"submit_rate_per_sec,omitempty"`

	// Debug mounts net/http/pprof under /debug. Keep the bind address on
	// loopback when enabling this.
	Debug bool `json:"debug,omitempty"`
}

type ClassifierConfig struct {
	ModelPath string `json:"model_path,omitempty"`
}

// RecurringConfig submits configured payloads on a schedule.
type RecurringConfig struct {
	Enabled  bool             `json:"enabled"`
	Timezone string           `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
	Entries  []RecurringEntry `json:"entries,omitempty"`
}

// RecurringEntry is one cron-driven submission.
//
// Spec accepts crontab expressions (5- or 6-field), descriptors like
// "@hourly", and "@every 55m".
type RecurringEntry struct {
	Name    string         `json:"name"`
	Spec    string         `json:"spec"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ArchiveConfig controls the optional audit trail.
//
// Driver values:
//   - "file": dependency-free JSON Lines appender
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", the archive is disabled.
type ArchiveConfig struct {
	Driver      string   `json:"driver"`
	Path        string   `json:"path"`
	BusyTimeout Duration `json:"busy_timeout,omitempty"` // sqlite only
}
