package archive

import (
	"context"
	"errors"
	"strings"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

// Store is the minimal archive API used by the recorder.
type Store interface {
	AppendJob(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured archive backend.
// It returns (nil, nil) if archiving is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown archive driver: " + driver)
	}
}
