package rollover

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"patternlog/internal/eventbus"
	"patternlog/internal/storage"
	logx "patternlog/pkg/logx"
)

// Target is one rotating output: its naming pattern and cadence.
type Target struct {
	Name     string
	Pattern  *Pattern
	Schedule Schedule
}

// NewTarget parses naming and derives a schedule from its date layout.
func NewTarget(name, naming string, interval int, weekStart time.Weekday, loc *time.Location, modulate bool) (Target, error) {
	p, err := ParsePattern(naming)
	if err != nil {
		return Target{}, err
	}
	g, err := Analyze(naming)
	if err != nil {
		return Target{}, err
	}
	return Target{
		Name:    name,
		Pattern: p,
		Schedule: Schedule{
			Granularity: g,
			Interval:    interval,
			WeekStart:   weekStart,
			Location:    loc,
			Modulate:    modulate,
		},
	}, nil
}

// Trigger fires rotations on schedule. Each target gets a State; a cron
// entry wakes at the state's next boundary, advances it, persists the new
// position and publishes eventbus.TopicRolloverDue.
type Trigger struct {
	log   logx.Logger
	bus   eventbus.Bus
	store storage.Store
	loc   *time.Location
	now   func() time.Time

	mu      sync.Mutex
	c       *cron.Cron
	started bool
	targets map[string]*entry
}

type entry struct {
	target Target
	state  *State
	id     cron.EntryID
}

// TriggerOption configures NewTrigger.
type TriggerOption func(*Trigger)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TriggerOption {
	return func(t *Trigger) { t.now = now }
}

// NewTrigger builds an idle trigger. bus and store may be nil.
func NewTrigger(log logx.Logger, bus eventbus.Bus, store storage.Store, loc *time.Location, opts ...TriggerOption) *Trigger {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	t := &Trigger{
		log:     log.With(logx.String("comp", "rollover")),
		bus:     bus,
		store:   store,
		loc:     loc,
		now:     time.Now,
		targets: map[string]*entry{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.c = cron.New(cron.WithLocation(loc))
	return t
}

// stateSchedule lets cron wake exactly at the state's pending boundary.
type stateSchedule struct{ st *State }

func (s stateSchedule) Next(t time.Time) time.Time {
	if next := s.st.Next(); next.After(t) {
		return next
	}
	return s.st.Schedule().Next(t)
}

// Add registers a target. A persisted position for the same pattern is
// restored; if its boundary already passed, the rotation fires at once.
func (t *Trigger) Add(ctx context.Context, target Target) (*State, error) {
	if target.Name == "" || target.Pattern == nil {
		return nil, errors.New("rollover: target needs a name and a pattern")
	}
	if !target.Schedule.Granularity.Valid() {
		return nil, fmt.Errorf("rollover: target %q has no granularity", target.Name)
	}
	now := t.now()
	st := NewState(target.Schedule, now)

	if t.store != nil {
		rec, ok, err := t.store.LoadRollover(ctx, target.Name)
		switch {
		case err != nil:
			t.log.Warn("rollover state load failed", logx.String("target", target.Name), logx.Err(err))
		case ok && rec.Pattern == target.Pattern.String():
			st.Restore(Snapshot{Last: rec.Last, Next: rec.Next})
		}
	}

	e := &entry{target: target, state: st}
	t.mu.Lock()
	if _, dup := t.targets[target.Name]; dup {
		t.mu.Unlock()
		return nil, fmt.Errorf("rollover: target %q already registered", target.Name)
	}
	e.id = t.c.Schedule(stateSchedule{st: st}, cron.FuncJob(func() { t.fire(e, t.now()) }))
	t.targets[target.Name] = e
	t.mu.Unlock()

	t.log.Info("rollover target added",
		logx.String("target", target.Name),
		logx.String("pattern", target.Pattern.String()),
		logx.String("granularity", target.Schedule.Granularity.String()),
		logx.Time("next", st.Next()),
	)
	if st.Due(now) {
		t.fire(e, now)
	} else {
		snap := st.Snapshot()
		_ = t.persist(ctx, e, snap.Last, snap.Next)
	}
	return st, nil
}

// Remove unregisters a target; it reports whether the target existed.
func (t *Trigger) Remove(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.targets[name]
	if !ok {
		return false
	}
	t.c.Remove(e.id)
	delete(t.targets, name)
	return true
}

// State returns the live state of a target.
func (t *Trigger) State(name string) (*State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.targets[name]
	if !ok {
		return nil, false
	}
	return e.state, true
}

// Targets lists registered target names, sorted.
func (t *Trigger) Targets() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.targets))
	for name := range t.targets {
		out = append(out, name)
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}

// Check is the append-path hook: it rotates name if now reached its
// boundary and reports whether this call rotated.
func (t *Trigger) Check(name string, now time.Time) bool {
	t.mu.Lock()
	e, ok := t.targets[name]
	t.mu.Unlock()
	if !ok || !e.state.Due(now) {
		return false
	}
	return t.fire(e, now)
}

func (t *Trigger) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	t.c.Start()
}

// Stop halts the cron loop and waits for running rotations or ctx.
func (t *Trigger) Stop(ctx context.Context) {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	done := t.c.Stop().Done()
	t.mu.Unlock()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *Trigger) fire(e *entry, now time.Time) bool {
	ctx := context.Background()
	advanced, err := e.state.Advance(now, func(boundary, next time.Time) error {
		// The closed period is the one just before the boundary.
		file := e.target.Pattern.FormatFileName(boundary.Add(-time.Millisecond), 0, e.target.Schedule.Location, e.target.Schedule.WeekStart)
		perr := t.persist(ctx, e, boundary, next)
		t.record(ctx, e.target.Name, boundary, next, file, perr)
		if t.bus != nil {
			t.bus.Publish(eventbus.Event{
				Type: eventbus.TopicRolloverDue,
				Data: eventbus.RolloverDue{Target: e.target.Name, Boundary: boundary, Next: next, FileName: file, Err: perr},
			})
		}
		return perr
	})
	if advanced {
		t.log.Info("rollover",
			logx.String("target", e.target.Name),
			logx.Time("next", e.state.Next()),
			logx.Err(err),
		)
	}
	return advanced
}

// persist saves the target position. It runs inside Advance, so it takes
// the instants as arguments instead of reading the locked state.
func (t *Trigger) persist(ctx context.Context, e *entry, last, next time.Time) error {
	if t.store == nil {
		return nil
	}
	rec := storage.RolloverRecord{Target: e.target.Name, Pattern: e.target.Pattern.String(), Last: last, Next: next}
	if err := t.store.SaveRollover(ctx, rec); err != nil {
		t.log.Warn("rollover state save failed", logx.String("target", e.target.Name), logx.Err(err))
		return err
	}
	return nil
}

func (t *Trigger) record(ctx context.Context, target string, boundary, next time.Time, file string, cause error) {
	if t.store == nil {
		return
	}
	h := storage.HistoryEntry{Target: target, Boundary: boundary, Next: next, FileName: file}
	if cause != nil {
		h.Error = cause.Error()
	}
	if err := t.store.AppendHistory(ctx, h); err != nil {
		t.log.Debug("rollover history append failed", logx.Err(err))
	}
}
