package rollover

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// State tracks the last and next rollover instants of one rotating target.
//
// Due is a lock-free compare meant for the append hot path. Advance is the
// only mutator; it is serialized and double-checked, so concurrent callers
// that all observed the same boundary produce exactly one rotation.
type State struct {
	sched Schedule

	next atomic.Int64 // unix nanoseconds, clamped by nanos

	mu   sync.Mutex
	last time.Time
}

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Last time.Time `json:"last"`
	Next time.Time `json:"next"`
}

// NewState starts tracking sched with the first boundary after now.
func NewState(sched Schedule, now time.Time) *State {
	st := &State{sched: sched}
	st.next.Store(nanos(sched.Next(now)))
	return st
}

func (st *State) Schedule() Schedule { return st.sched }

// Next returns the pending rollover instant.
func (st *State) Next() time.Time { return st.at(st.next.Load()) }

// Last returns the most recent rollover instant, zero before the first one.
func (st *State) Last() time.Time {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.last
}

// Due reports whether now has reached the pending boundary.
func (st *State) Due(now time.Time) bool { return nanos(now) >= st.next.Load() }

// RotateFunc performs the external rotation for the period that ended at
// boundary. next is the boundary that follows.
type RotateFunc func(boundary, next time.Time) error

// Advance rolls the state over if now has reached the pending boundary. It
// sets last to that boundary, recomputes next from now and calls rotate,
// all under the state lock. It reports whether this call advanced; the
// state advances even when rotate fails.
func (st *State) Advance(now time.Time, rotate RotateFunc) (bool, error) {
	if !st.Due(now) {
		return false, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.Due(now) {
		return false, nil
	}

	boundary := st.Next()
	next := st.sched.Next(now)
	if cur := st.next.Load(); nanos(next) < cur {
		next = st.at(cur)
	}
	st.last = boundary
	st.next.Store(nanos(next))

	if rotate == nil {
		return true, nil
	}
	return true, rotate(boundary, next)
}

func (st *State) Snapshot() Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return Snapshot{Last: st.last, Next: st.Next()}
}

// Restore loads persisted instants. It is meant for start-up, before the
// state is shared; a zero Next keeps the computed boundary. A restored Next
// already in the past makes the state due immediately.
func (st *State) Restore(s Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.last = s.Last
	if !s.Next.IsZero() {
		st.next.Store(nanos(s.Next))
	}
}

func (st *State) at(nanos int64) time.Time {
	t := time.Unix(0, nanos)
	if st.sched.Location != nil {
		return t.In(st.sched.Location)
	}
	return t
}

var (
	maxNanosTime = time.Unix(0, math.MaxInt64)
	minNanosTime = time.Unix(0, math.MinInt64)
)

// nanos is t.UnixNano clamped to the int64 range (years 1677 to 2262). A
// boundary beyond 2262 is stored as the largest instant and is not due
// before then.
func nanos(t time.Time) int64 {
	switch {
	case t.After(maxNanosTime):
		return math.MaxInt64
	case t.Before(minNanosTime):
		return math.MinInt64
	}
	return t.UnixNano()
}
