package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

func TestNewStoreInitialState(t *testing.T) {
	s := NewStore()
	defer s.Close()

	st := s.Snapshot()
	if st.Current != nil {
		t.Errorf("expected no current reading, got %+v", st.Current)
	}
	if st.History == nil || len(st.History) != 0 {
		t.Errorf("expected empty history, got %#v", st.History)
	}
	if st.Status != types.StatusNormal {
		t.Errorf("status = %v, want normal", st.Status)
	}
	if !st.Loading {
		t.Error("expected loading")
	}
}

func TestApplyUpdates(t *testing.T) {
	s := NewStore()
	defer s.Close()

	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if !s.Apply(CurrentUpdate{Reading: types.CurrentReading{Temperature: 19}, Status: types.StatusError}) {
		t.Fatal("apply on an open store reported false")
	}

	st := s.Snapshot()
	if st.Current == nil || st.Current.Temperature != 19 || st.Status != types.StatusError {
		t.Fatalf("unexpected state after current update: %+v", st)
	}
	if !st.Loading {
		t.Error("a current update must not end loading")
	}
	if !st.UpdatedAt.Equal(fixed) {
		t.Errorf("updated at = %v, want %v", st.UpdatedAt, fixed)
	}

	samples := []types.HistoricSample{{Temperature: 25, Timestamp: "10:00:00"}}
	s.Apply(HistoryUpdate{Samples: samples})
	samples[0].Temperature = 99

	st = s.Snapshot()
	if st.Loading {
		t.Error("expected loading to end with the first history update")
	}
	if len(st.History) != 1 || st.History[0].Temperature != 25 {
		t.Errorf("history aliases caller memory: %+v", st.History)
	}
	if st.Current == nil || st.Status != types.StatusError {
		t.Error("history update touched the current reading")
	}
}

func TestHistoryFailedKeepsWindow(t *testing.T) {
	s := NewStore()
	defer s.Close()

	s.Apply(HistoryUpdate{Samples: []types.HistoricSample{{Temperature: 25}}})
	s.Apply(HistoryFailed{})

	st := s.Snapshot()
	if st.Loading || len(st.History) != 1 {
		t.Errorf("unexpected state after failure: %+v", st)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	defer s.Close()

	s.Apply(CurrentUpdate{Reading: types.CurrentReading{Temperature: 25}})
	s.Apply(HistoryUpdate{Samples: []types.HistoricSample{{Temperature: 25}}})

	st := s.Snapshot()
	st.Current.Temperature = 40
	st.History[0].Temperature = 40

	again := s.Snapshot()
	if again.Current.Temperature != 25 || again.History[0].Temperature != 25 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestCloseDiscardsState(t *testing.T) {
	s := NewStore()

	s.Apply(CurrentUpdate{Reading: types.CurrentReading{Temperature: 25}})
	s.Close()
	s.Close()

	if s.Apply(HistoryUpdate{}) {
		t.Error("apply after close reported true")
	}
	st := s.Snapshot()
	if st.Current != nil || !st.Loading {
		t.Errorf("expected initial state after close, got %+v", st)
	}
}

func TestWatch(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Watch(ctx)

	first := <-ch
	if !first.Loading {
		t.Fatal("expected the initial state first")
	}

	s.Apply(HistoryUpdate{Samples: []types.HistoricSample{}})
	select {
	case st := <-ch:
		if st.Loading {
			t.Error("expected loading to be false")
		}
	case <-time.After(time.Second):
		t.Fatal("no state delivered")
	}

	cancel()
	select {
	case _, ok := <-ch:
		for ok {
			_, ok = <-ch
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestWatchLatestWins(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch := s.Watch(context.Background())
	<-ch

	for i := 1; i <= 5; i++ {
		s.Apply(CurrentUpdate{Reading: types.CurrentReading{Temperature: float64(i)}})
	}

	st := <-ch
	if st.Current == nil || st.Current.Temperature != 5 {
		t.Errorf("expected only the newest state, got %+v", st.Current)
	}
}

func TestWatchClosedByStoreClose(t *testing.T) {
	s := NewStore()
	ch := s.Watch(context.Background())
	<-ch

	s.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after store close")
	}

	late := s.Watch(context.Background())
	if _, ok := <-late; ok {
		t.Error("watch on a closed store should return a closed channel")
	}
}

func TestConcurrentReaders(t *testing.T) {
	s := NewStore()
	defer s.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				st := s.Snapshot()
				if st.Current != nil && st.Current.Humidity != st.Current.Temperature*2 {
					t.Errorf("observed half-applied reading %+v", st.Current)
					return
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		v := float64(i)
		s.Apply(CurrentUpdate{Reading: types.CurrentReading{Temperature: v, Humidity: v * 2}})
	}
	close(stop)
	wg.Wait()
}
