package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl + snapshot)
//   - "sqlite": SQLite database file (build tag sqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RolloverRecord is the persisted schedule position of one rotating target.
type RolloverRecord struct {
	Target    string    `json:"target"`
	Pattern   string    `json:"pattern"`
	Last      time.Time `json:"last"`
	Next      time.Time `json:"next"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry records one performed rotation.
// Keep it compact and schema-stable.
type HistoryEntry struct {
	At       time.Time `json:"at"`
	Target   string    `json:"target"`
	Boundary time.Time `json:"boundary"`
	Next     time.Time `json:"next"`
	FileName string    `json:"file_name"`
	Error    string    `json:"error,omitempty"`
}
