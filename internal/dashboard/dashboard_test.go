package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/source"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

const (
	currentPath = "colmenas/actual"
	historyPath = "colmenas/historico"
)

func newDashboard(t *testing.T) (*Dashboard, *source.Memory) {
	t.Helper()
	mem := source.NewMemory()
	d := New(mem, Options{Location: time.UTC}, zerolog.Nop())
	t.Cleanup(func() {
		d.Stop()
		mem.Close()
	})
	return d, mem
}

func TestStartEmptySourceEndsLoading(t *testing.T) {
	d, _ := newDashboard(t)

	if !d.Snapshot().Loading {
		t.Fatal("expected loading before start")
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	st := d.Snapshot()
	if st.Loading {
		t.Error("expected loading to end on the first (empty) historic event")
	}
	if st.Current != nil {
		t.Errorf("expected no current reading, got %+v", st.Current)
	}
	if st.Status != types.StatusNormal {
		t.Errorf("status = %v, want normal", st.Status)
	}
}

func TestStartTwice(t *testing.T) {
	d, _ := newDashboard(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestEndToEnd(t *testing.T) {
	d, mem := newDashboard(t)

	mem.Set(currentPath, map[string]any{"temperature": 19.0, "humidity": 82.0, "timestamp": "2024-05-01T10:00:00Z"})
	for i := 1; i <= 60; i++ {
		mem.Push(historyPath, fmt.Sprintf("r%03d", i), map[string]any{
			"timestamp":   float64(i * 1000),
			"temperature": 25.0,
			"humidity":    50.0,
		})
	}
	mem.Push(historyPath, "zz-bad", map[string]any{"timestamp": 99_000.0, "temperature": "x", "humidity": 40.0})

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	st := d.Snapshot()
	if st.Current == nil || st.Current.Temperature != 19 {
		t.Fatalf("unexpected current reading %+v", st.Current)
	}
	if st.Status != types.StatusError {
		t.Errorf("status = %v, want error", st.Status)
	}
	if st.Loading {
		t.Error("expected loading to be false")
	}
	if len(st.History) > 50 {
		t.Fatalf("history holds %d entries", len(st.History))
	}
	for i := 1; i < len(st.History); i++ {
		if !st.History[i-1].At.Before(st.History[i].At) {
			t.Fatalf("history not ascending at %d", i)
		}
	}
	if last := st.History[len(st.History)-1]; !last.At.Equal(time.UnixMilli(60_000)) {
		t.Errorf("expected the newest valid entry last, got %v", last.At)
	}

	mem.Set(currentPath, map[string]any{"temperature": 27.0, "humidity": 55.0})
	if got := d.Snapshot().Status; got != types.StatusNormal {
		t.Errorf("status after new reading = %v, want normal", got)
	}

	mem.Remove(currentPath)
	if got := d.Snapshot().Current; got == nil || got.Temperature != 27 {
		t.Errorf("absent snapshot dropped the previous reading: %+v", got)
	}
}

func TestTransportErrors(t *testing.T) {
	d, mem := newDashboard(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mem.Set(currentPath, map[string]any{"temperature": 25.0, "humidity": 50.0})
	mem.Push(historyPath, "a", map[string]any{"timestamp": 1000.0, "temperature": 25.0, "humidity": 50.0})

	mem.Fail(currentPath, errors.New("permission denied"))
	mem.Fail(historyPath, errors.New("permission denied"))

	st := d.Snapshot()
	if st.Current == nil || len(st.History) != 1 || st.Loading {
		t.Errorf("transport errors changed the state: %+v", st)
	}
}

func TestStopPreventsMutation(t *testing.T) {
	d, mem := newDashboard(t)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mem.Set(currentPath, map[string]any{"temperature": 25.0, "humidity": 50.0})

	watch := d.Store().Watch(context.Background())

	d.Stop()
	d.Stop()

	mem.Set(currentPath, map[string]any{"temperature": 40.0, "humidity": 50.0})

	st := d.Snapshot()
	if st.Current != nil {
		t.Errorf("expected state to be discarded on stop, got %+v", st.Current)
	}

	for range watch {
	}
}

func TestStartReportsSubscriptionFailures(t *testing.T) {
	mem := source.NewMemory()
	mem.Close()

	d := New(mem, Options{}, zerolog.Nop())
	defer d.Stop()

	err := d.Start(context.Background())
	if !errors.Is(err, source.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if d.Snapshot().Loading {
		t.Error("a failed history subscription must not leave the dashboard loading")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.CurrentPath != currentPath || o.HistoryPath != historyPath || o.HistoryLimit != 50 || o.Location == nil {
		t.Errorf("unexpected defaults %+v", o)
	}
}
