package storage

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	logx "patternlog/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if st != nil || err != nil {
			t.Fatalf("Open(%q) = %v, %v", driver, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without path accepted")
	}
}

func TestFileStoreRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "patternlog.db")
	next := time.Date(2014, 11, 1, 0, 0, 0, 0, time.UTC)

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok, err := st.LoadRollover(ctx, "app"); ok || err != nil {
		t.Fatalf("LoadRollover on empty store = %v, %v", ok, err)
	}
	for i := 0; i < 3; i++ {
		rec := RolloverRecord{Target: "app", Pattern: "app-%d{yyyy-MM}.log", Next: next.AddDate(0, i, 0)}
		if err := st.SaveRollover(ctx, rec); err != nil {
			t.Fatalf("SaveRollover: %v", err)
		}
	}
	if err := st.SaveRollover(ctx, RolloverRecord{Target: " "}); err == nil {
		t.Fatal("record without target accepted")
	}
	if err := st.AppendHistory(ctx, HistoryEntry{Target: "app", Boundary: next, FileName: "app-2014-10.log"}); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	rec, ok, err := st.LoadRollover(ctx, "app")
	if err != nil || !ok {
		t.Fatalf("LoadRollover = %v, %v", ok, err)
	}
	if want := next.AddDate(0, 2, 0); !rec.Next.Equal(want) || rec.UpdatedAt.IsZero() {
		t.Fatalf("record = %+v, want next %v", rec, want)
	}

	f, err := os.Open(filepath.Join(filepath.Dir(path), "patternlog.history.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("history is empty")
	}
	var e HistoryEntry
	if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.FileName != "app-2014-10.log" || e.At.IsZero() {
		t.Fatalf("history entry = %+v", e)
	}
}

func TestFileStoreReplaysJournalWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "s.rollover.journal.jsonl")
	lines := `{"target":"a","pattern":"x","next":"2020-01-01T00:00:00Z"}
not json
{"target":"","pattern":"ignored"}
{"target":"a","pattern":"x","next":"2020-02-01T00:00:00Z"}
`
	if err := os.WriteFile(journal, []byte(lines), 0o600); err != nil {
		t.Fatal(err)
	}
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "s.json")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	rec, ok, _ := st.LoadRollover(context.Background(), "a")
	if !ok || rec.Next.Month() != time.February {
		t.Fatalf("record = %+v, %v", rec, ok)
	}
}
