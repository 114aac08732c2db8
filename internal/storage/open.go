package storage

import (
	"context"
	"errors"
	"strings"

	logx "patternlog/pkg/logx"
)

// Store persists rollover positions so restarts neither skip nor repeat a
// rotation.
type Store interface {
	LoadRollover(ctx context.Context, target string) (rec RolloverRecord, ok bool, err error)
	SaveRollover(ctx context.Context, rec RolloverRecord) error
	AppendHistory(ctx context.Context, e HistoryEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
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
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
