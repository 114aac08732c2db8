package rollover

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func hourly() Schedule {
	return Schedule{Granularity: Hour, Interval: 1, Location: time.UTC}
}

func TestStateDueAndAdvance(t *testing.T) {
	st := NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	if want := at(2014, 3, 4, 11, 0, 0, 0); !st.Next().Equal(want) {
		t.Fatalf("Next = %v, want %v", st.Next(), want)
	}
	if !st.Last().IsZero() {
		t.Fatalf("Last = %v", st.Last())
	}
	if st.Due(at(2014, 3, 4, 10, 59, 59, 999)) {
		t.Fatal("due before the boundary")
	}
	if !st.Due(at(2014, 3, 4, 11, 0, 0, 0)) {
		t.Fatal("not due on the boundary")
	}

	calls := 0
	ok, err := st.Advance(at(2014, 3, 4, 10, 59, 0, 0), func(time.Time, time.Time) error {
		calls++
		return nil
	})
	if ok || err != nil || calls != 0 {
		t.Fatalf("early Advance = %v, %v, calls %d", ok, err, calls)
	}

	var gotBoundary, gotNext time.Time
	ok, err = st.Advance(at(2014, 3, 4, 11, 0, 0, 500), func(boundary, next time.Time) error {
		gotBoundary, gotNext = boundary, next
		return nil
	})
	if !ok || err != nil {
		t.Fatalf("Advance = %v, %v", ok, err)
	}
	if !gotBoundary.Equal(at(2014, 3, 4, 11, 0, 0, 0)) || !gotNext.Equal(at(2014, 3, 4, 12, 0, 0, 0)) {
		t.Fatalf("rotate(%v, %v)", gotBoundary, gotNext)
	}
	if !st.Last().Equal(gotBoundary) || !st.Next().Equal(gotNext) {
		t.Fatalf("state = %+v", st.Snapshot())
	}
}

func TestAdvanceRecomputesFromNow(t *testing.T) {
	st := NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	// Several boundaries were missed; the next one follows now.
	if ok, _ := st.Advance(at(2014, 3, 4, 14, 20, 0, 0), nil); !ok {
		t.Fatal("Advance did not run")
	}
	if !st.Last().Equal(at(2014, 3, 4, 11, 0, 0, 0)) || !st.Next().Equal(at(2014, 3, 4, 15, 0, 0, 0)) {
		t.Fatalf("state = %+v", st.Snapshot())
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	st := NewState(Schedule{Granularity: Minute, Location: time.UTC}, at(2014, 3, 4, 10, 0, 0, 0))
	prev := st.Next()
	now := at(2014, 3, 4, 10, 0, 0, 0)
	for i := 0; i < 200; i++ {
		now = now.Add(time.Duration(i%7) * 17 * time.Second)
		if ok, _ := st.Advance(now, nil); ok && !st.Next().After(now) {
			t.Fatalf("step %d: next %v not after %v", i, st.Next(), now)
		}
		if st.Next().Before(prev) {
			t.Fatalf("step %d: next moved back from %v to %v", i, prev, st.Next())
		}
		prev = st.Next()
	}
}

func TestAdvanceRunsOncePerBoundary(t *testing.T) {
	st := NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	now := at(2014, 3, 4, 11, 0, 1, 0)

	var rotations, advanced atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, _ := st.Advance(now, func(time.Time, time.Time) error {
				rotations.Add(1)
				return nil
			})
			if ok {
				advanced.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if rotations.Load() != 1 || advanced.Load() != 1 {
		t.Fatalf("rotations = %d, advanced = %d", rotations.Load(), advanced.Load())
	}
}

func TestAdvanceKeepsStateWhenRotateFails(t *testing.T) {
	st := NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	boom := errors.New("rename failed")
	ok, err := st.Advance(at(2014, 3, 4, 11, 0, 0, 0), func(time.Time, time.Time) error { return boom })
	if !ok || !errors.Is(err, boom) {
		t.Fatalf("Advance = %v, %v", ok, err)
	}
	if !st.Next().Equal(at(2014, 3, 4, 12, 0, 0, 0)) {
		t.Fatalf("Next = %v", st.Next())
	}
}

func TestSnapshotRestore(t *testing.T) {
	st := NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	snap := Snapshot{Last: at(2014, 3, 4, 8, 0, 0, 0), Next: at(2014, 3, 4, 9, 0, 0, 0)}
	st.Restore(snap)
	if got := st.Snapshot(); !got.Last.Equal(snap.Last) || !got.Next.Equal(snap.Next) {
		t.Fatalf("Snapshot = %+v", got)
	}
	if !st.Due(at(2014, 3, 4, 10, 31, 59, 0)) {
		t.Fatal("restored past boundary is not due")
	}

	st = NewState(hourly(), at(2014, 3, 4, 10, 31, 59, 0))
	st.Restore(Snapshot{Last: snap.Last})
	if !st.Next().Equal(at(2014, 3, 4, 11, 0, 0, 0)) {
		t.Fatalf("zero Next overwrote the boundary: %v", st.Next())
	}
}

func TestStateFarFutureBoundary(t *testing.T) {
	start := time.Date(2014, 3, 4, 0, 0, 0, 0, time.UTC)
	st := NewState(Schedule{Granularity: Year, Interval: 300, Location: time.UTC}, start)
	late := time.Date(2261, 12, 31, 0, 0, 0, 0, time.UTC)
	if st.Due(late) {
		t.Fatal("boundary in 2314 reported due in 2261")
	}
	if st.Next().Before(late) {
		t.Fatalf("Next = %v", st.Next())
	}

	st = NewState(hourly(), start)
	st.Restore(Snapshot{Next: time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC)})
	if st.Due(late) {
		t.Fatal("restored far-future boundary reported due")
	}
	if ok, _ := st.Advance(late, nil); ok {
		t.Fatal("advanced before a far-future boundary")
	}
}
