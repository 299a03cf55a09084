package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration is a Go duration string as it appears in the config file
// ("500ms", "10s", "1m"). The empty string means "use the default".
type Duration string

// Parse resolves the field; the empty string resolves to 0. path names
// the field in error messages (e.g. "scheduler.retry_timeout").
func (d Duration) Parse(path string) (time.Duration, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, string(d), err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return v, nil
}

// OrDefault resolves the field, substituting def when it is omitted or 0.
func (d Duration) OrDefault(path string, def time.Duration) (time.Duration, error) {
	v, err := d.Parse(path)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return def, nil
	}
	return v, nil
}
