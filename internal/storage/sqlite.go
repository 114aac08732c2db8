//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "patternlog/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadRollover(ctx context.Context, target string) (RolloverRecord, bool, error) {
	if s == nil || s.db == nil {
		return RolloverRecord{}, false, ErrDisabled
	}
	rec := RolloverRecord{Target: target}
	var last, next, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT pattern, last_ns, next_ns, updated_ns FROM rollover WHERE target = ?`, target,
	).Scan(&rec.Pattern, &last, &next, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return RolloverRecord{}, false, nil
	}
	if err != nil {
		return RolloverRecord{}, false, err
	}
	rec.Last, rec.Next, rec.UpdatedAt = fromNanos(last), fromNanos(next), fromNanos(updated)
	return rec, true, nil
}

func (s *sqliteStore) SaveRollover(ctx context.Context, rec RolloverRecord) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if strings.TrimSpace(rec.Target) == "" {
		return errors.New("rollover record without target")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rollover(target, pattern, last_ns, next_ns, updated_ns) VALUES(?,?,?,?,?)
		 ON CONFLICT(target) DO UPDATE SET pattern=excluded.pattern, last_ns=excluded.last_ns,
		   next_ns=excluded.next_ns, updated_ns=excluded.updated_ns`,
		rec.Target, rec.Pattern, toNanos(rec.Last), toNanos(rec.Next), toNanos(rec.UpdatedAt),
	)
	return err
}

func (s *sqliteStore) AppendHistory(ctx context.Context, e HistoryEntry) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history(at, target, boundary, next, file_name, err) VALUES(?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Target, e.Boundary.Format(time.RFC3339Nano),
		e.Next.Format(time.RFC3339Nano), e.FileName, nullStr(e.Error),
	)
	return err
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
