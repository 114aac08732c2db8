package storage

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	logx "patternlog/pkg/logx"
)

// compactEvery bounds journal growth between snapshots.
const compactEvery = 256

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.history.jsonl           (append-only JSON Lines)
//   - <prefix>.rollover.snapshot.json  (periodic snapshot)
//   - <prefix>.rollover.journal.jsonl  (append-only journal)
//
// The journal is periodically compacted into the snapshot.
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	historyFile *os.File

	snapshotPath string
	journalFile  *os.File
	rollovers    map[string]RolloverRecord

	writes int
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	historyPath := prefix + ".history.jsonl"
	snapPath := prefix + ".rollover.snapshot.json"
	journalPath := prefix + ".rollover.journal.jsonl"

	hf, err := os.OpenFile(historyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	// Load state from snapshot + journal.
	rollovers := map[string]RolloverRecord{}
	if err := loadSnapshot(snapPath, rollovers); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("rollover snapshot unreadable", logx.String("path", snapPath), logx.Err(err))
	}
	if err := replayJournal(journalPath, rollovers); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("rollover journal unreadable", logx.String("path", journalPath), logx.Err(err))
	}

	jf, err := os.OpenFile(journalPath, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o600)
	if err != nil {
		_ = hf.Close()
		return nil, err
	}

	return &fileStore{
		log:          log,
		historyFile:  hf,
		snapshotPath: snapPath,
		journalFile:  jf,
		rollovers:    rollovers,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.journalFile != nil {
		if s.writes > 0 {
			errs = append(errs, s.compactLocked())
		}
		errs = append(errs, s.journalFile.Close())
		s.journalFile = nil
	}
	if s.historyFile != nil {
		errs = append(errs, s.historyFile.Close())
		s.historyFile = nil
	}
	return errors.Join(errs...)
}

func (s *fileStore) LoadRollover(ctx context.Context, target string) (RolloverRecord, bool, error) {
	_ = ctx
	target = strings.TrimSpace(target)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.rollovers[target]
	return rec, ok, nil
}

func (s *fileStore) SaveRollover(ctx context.Context, rec RolloverRecord) error {
	_ = ctx
	rec.Target = strings.TrimSpace(rec.Target)
	if rec.Target == "" {
		return errors.New("rollover record without target")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journalFile == nil {
		return errors.New("rollover journal closed")
	}
	s.rollovers[rec.Target] = rec

	if err := json.NewEncoder(s.journalFile).Encode(rec); err != nil {
		return err
	}
	s.writes++
	if s.writes%compactEvery == 0 {
		// Best-effort compact.
		if err := s.compactLocked(); err != nil {
			s.log.Debug("rollover compact failed", logx.Err(err))
		}
	}
	return nil
}

func (s *fileStore) AppendHistory(ctx context.Context, e HistoryEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.historyFile == nil {
		return errors.New("history file closed")
	}
	return json.NewEncoder(s.historyFile).Encode(e)
}

func (s *fileStore) compactLocked() error {
	tmp := s.snapshotPath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(s.rollovers); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return err
	}
	// Truncate journal.
	if err := s.journalFile.Truncate(0); err != nil {
		return err
	}
	_, err = s.journalFile.Seek(0, 2)
	return err
}

func loadSnapshot(path string, out map[string]RolloverRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var m map[string]RolloverRecord
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return err
	}
	for k, v := range m {
		out[k] = v
	}
	return nil
}

func replayJournal(path string, out map[string]RolloverRecord) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		var r RolloverRecord
		if err := json.Unmarshal(s.Bytes(), &r); err != nil {
			continue
		}
		if r.Target == "" {
			continue
		}
		out[r.Target] = r
	}
	return s.Err()
}
