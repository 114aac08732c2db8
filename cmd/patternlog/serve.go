package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patternlog/internal/app"
	"patternlog/internal/pattern"
	"patternlog/pkg/systemd"
)

func runServe(c *serveCmd, in io.Reader, out io.Writer) error {
	var sd systemd.Notifier

	a, err := app.New(c.Config, app.WithReloadHook(app.ReloadHook{
		Begin: func() { _, _ = sd.Reloading() },
		End: func(err error) {
			if err != nil {
				_, _ = sd.Status("reload failed: %v", err)
			}
			_, _ = sd.Ready()
		},
	}))
	if err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}
	_, _ = sd.Ready()
	_, _ = sd.Status("rendering with config %s", c.Config)

	var watchdog <-chan time.Time
	if iv := systemd.WatchdogInterval(); iv > 0 {
		t := time.NewTicker(iv)
		defer t.Stop()
		watchdog = t.C
	}

	w := bufio.NewWriter(out)
	render, closeOut, err := renderer(a, c, w)
	if err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	records := make(chan *pattern.Record, 64)
	scanErr := make(chan error, 1)
	go func() {
		defer close(records)
		scanErr <- scanRecords(in, func(rec *pattern.Record) error {
			select {
			case records <- rec:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	reason := app.StopUnknown
	var runErr error
loop:
	for {
		select {
		case sig := <-sigs:
			reason = app.StopSIGINT
			if sig == syscall.SIGTERM {
				reason = app.StopSIGTERM
			}
			break loop
		case <-a.Done():
			reason = app.StopFatalError
			runErr = a.Err()
			break loop
		case <-watchdog:
			_, _ = sd.Watchdog()
		case rec, ok := <-records:
			if !ok {
				reason = app.StopEOF
				if err := <-scanErr; err != nil {
					runErr = err
				}
				break loop
			}
			if err := render(rec); err != nil {
				runErr = err
				reason = app.StopFatalError
				break loop
			}
			if len(records) == 0 {
				if err := w.Flush(); err != nil {
					runErr = err
					reason = app.StopFatalError
					break loop
				}
			}
		}
	}

	_, _ = sd.Stopping()
	closeOut()
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = err
	}
	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, reason); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// renderer picks the output path for stdin records: a rollover target, which
// brackets every period with the layout footer and header, or a plain layout.
func renderer(a *app.App, c *serveCmd, w io.Writer) (render func(*pattern.Record) error, closeOut func(), err error) {
	if c.Target != "" {
		l, ok := a.Runtime().TargetLayout(c.Target)
		if !ok {
			return nil, nil, fmt.Errorf("rollover target %q: %w", c.Target, app.ErrUnknownLayout)
		}
		_, _ = w.Write(l.Header())
		render = func(rec *pattern.Record) error {
			s, rotated, err := a.RenderTarget(c.Target, rec)
			if err != nil {
				return err
			}
			if rotated {
				if l, ok := a.Runtime().TargetLayout(c.Target); ok {
					_, _ = w.Write(l.Footer())
					_, _ = w.Write(l.Header())
				}
			}
			_, err = io.WriteString(w, s)
			return err
		}
		closeOut = func() {
			if l, ok := a.Runtime().TargetLayout(c.Target); ok {
				_, _ = w.Write(l.Footer())
			}
		}
		return render, closeOut, nil
	}

	name := c.Layout
	if name == "" {
		name = "main"
	}
	if _, ok := a.Runtime().Layout(name); !ok {
		return nil, nil, fmt.Errorf("%w %q", app.ErrUnknownLayout, name)
	}
	render = func(rec *pattern.Record) error {
		s, err := a.Render(name, rec)
		if errors.Is(err, app.ErrUnknownLayout) {
			// Removed by a reload; skip until it comes back.
			a.Logger().Warn("layout missing; record dropped")
			return nil
		}
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, s)
		return err
	}
	return render, func() {}, nil
}
