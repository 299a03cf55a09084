//go:build !sqlite
// +build !sqlite

package archive

import (
	"errors"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite archive not built: build with -tags sqlite")
}
