package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"patternlog/internal/eventbus"
	"patternlog/internal/pattern"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func configJSON(stateDir, mainPattern string) string {
	return fmt.Sprintf(`{
  "logging": {"level": "error", "console": false},
  "storage": {"driver": "file", "path": %q},
  "properties": {"app": "shop"},
  "layouts": {
    "main": {"pattern": %q},
    "file": {"pattern": "%%d{HH:mm} %%m", "header": "# ${app}"}
  },
  "rollovers": {
    "app": {"file_pattern": "logs/app-%%d{yyyy-MM-dd-HH}.log", "timezone": "UTC", "layout": "file"}
  }
}`, stateDir, mainPattern)
}

func newApp(t *testing.T, opts ...Option) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "patternlog.json")
	writeConfig(t, path, configJSON(filepath.Join(dir, "state"), "%p %m"))
	a, err := New(path, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, path
}

func TestAppRender(t *testing.T) {
	a, _ := newApp(t)
	defer a.Stop(context.Background(), StopAppStop)

	rec := &pattern.Record{Level: zerolog.WarnLevel, Message: "disk low"}
	got, err := a.Render("main", rec)
	if err != nil || got != "WARN disk low" {
		t.Fatalf("Render = %q, %v", got, err)
	}
	if _, err := a.Render("nope", rec); !errors.Is(err, ErrUnknownLayout) {
		t.Fatalf("unknown layout err = %v", err)
	}

	l, ok := a.Runtime().Layout("file")
	if !ok || string(l.Header()) != "# shop" {
		t.Fatalf("file layout = %v, %v", l, ok)
	}
}

func TestAppRenderTargetRotates(t *testing.T) {
	a, _ := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Stop(context.Background(), StopAppStop)

	events, unsub := a.Bus().Subscribe(4, eventbus.TopicRolloverDue)
	defer unsub()

	st, ok := a.Trigger().State("app")
	if !ok {
		t.Fatal("rollover target not registered")
	}
	boundary := st.Next()

	rec := &pattern.Record{Time: boundary.Add(-time.Minute), Message: "before"}
	out, rotated, err := a.RenderTarget("app", rec)
	if err != nil || rotated {
		t.Fatalf("RenderTarget before boundary = %q, %v, %v", out, rotated, err)
	}
	if !strings.HasSuffix(out, " before") {
		t.Fatalf("out = %q", out)
	}

	rec = &pattern.Record{Time: boundary.Add(time.Second), Message: "after"}
	if _, rotated, err := a.RenderTarget("app", rec); err != nil || !rotated {
		t.Fatalf("RenderTarget after boundary: rotated %v, %v", rotated, err)
	}
	select {
	case e := <-events:
		p := e.Data.(eventbus.RolloverDue)
		if p.Target != "app" || !p.Boundary.Equal(boundary) {
			t.Fatalf("event = %+v", p)
		}
		want := "logs/app-" + boundary.Add(-time.Millisecond).UTC().Format("2006-01-02-15") + ".log"
		if p.FileName != want {
			t.Fatalf("file = %q, want %q", p.FileName, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no rollover event")
	}

	if _, _, err := a.RenderTarget("missing", rec); err == nil {
		t.Fatal("unknown target accepted")
	}
}

func TestAppReload(t *testing.T) {
	var begins atomic.Int32
	ends := make(chan error, 1)
	a, path := newApp(t, WithReloadHook(ReloadHook{
		Begin: func() { begins.Add(1) },
		End:   func(err error) { ends <- err },
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer a.Stop(context.Background(), StopAppStop)

	reloaded, unsub := a.Bus().Subscribe(4, eventbus.TopicConfigReloaded)
	defer unsub()

	old := a.Runtime()
	stateDir := a.Runtime().Config().Storage.Path
	writeConfig(t, path, configJSON(stateDir, "[%p] %m"))

	select {
	case e := <-reloaded:
		p := e.Data.(eventbus.ConfigReloaded)
		if p.Summary != "layouts" {
			t.Fatalf("summary = %q", p.Summary)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
	if a.Runtime() == old {
		t.Fatal("runtime not swapped")
	}
	got, err := a.Render("main", &pattern.Record{Level: zerolog.InfoLevel, Message: "x"})
	if err != nil || got != "[INFO] x" {
		t.Fatalf("Render after reload = %q, %v", got, err)
	}
	// The old snapshot still renders with its own layouts.
	if l, _ := old.Layout("main"); l.Format(&pattern.Record{Level: zerolog.InfoLevel, Message: "x"}) != "INFO x" {
		t.Fatal("old runtime changed")
	}
	select {
	case err := <-ends:
		if err != nil || begins.Load() != 1 {
			t.Fatalf("reload hooks: begins %d, err %v", begins.Load(), err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload end hook not called")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	writeConfig(t, path, `{"layouts":{"main":{"pattern":"%d{yyyy"}}}`)
	if _, err := New(path); !errors.Is(err, pattern.ErrUnterminatedOptionBrace) {
		t.Fatalf("New = %v", err)
	}

	writeConfig(t, path, `{"layouts":{},"storage":{"driver":"sqlite"}}`)
	if _, err := New(path); err == nil || !strings.Contains(err.Error(), "storage.path") {
		t.Fatalf("New = %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	a, _ := newApp(t)
	if err := a.Stop(context.Background(), StopAppStop); err != nil {
		t.Fatal(err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed for an app that never started")
	}
}
