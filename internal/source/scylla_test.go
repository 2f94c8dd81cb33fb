package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/db"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
	"gopkg.in/inf.v0"
)

type fakeReader struct {
	mu     sync.Mutex
	rows   []db.Row
	err    error
	n      []int
	latest int
}

func (f *fakeReader) LatestReading(_ context.Context, _ string) (*db.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	r := f.rows[0]
	return &r, nil
}

func (f *fakeReader) LastReadings(_ context.Context, _ string, n int) ([]db.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n = append(f.n, n)
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.rows) {
		return append([]db.Row(nil), f.rows[:n]...), nil
	}
	return append([]db.Row(nil), f.rows...), nil
}

func (f *fakeReader) set(rows []db.Row, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	f.err = err
}

func row(ms int64, temp int64) db.Row {
	return db.Row{
		Timestamp:   time.UnixMilli(ms),
		Temperature: inf.NewDec(temp, 1),
		Humidity:    inf.NewDec(500, 1),
	}
}

type chanRecorder struct {
	snaps chan types.Snapshot
	errs  chan error
}

func newChanRecorder() *chanRecorder {
	return &chanRecorder{
		snaps: make(chan types.Snapshot, 16),
		errs:  make(chan error, 16),
	}
}

func (r *chanRecorder) handler() Handler {
	return Handler{
		OnSnapshot: func(s types.Snapshot) {
			select {
			case r.snaps <- s:
			default:
			}
		},
		OnError: func(err error) {
			select {
			case r.errs <- err:
			default:
			}
		},
	}
}

func (r *chanRecorder) next(t *testing.T) types.Snapshot {
	t.Helper()
	select {
	case s := <-r.snaps:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return types.Snapshot{}
	}
}

func TestScyllaSubscribeDeliversOnChange(t *testing.T) {
	reader := &fakeReader{rows: []db.Row{row(2000, 255)}}
	s := NewScyllaWithReader(reader, 10*time.Millisecond, zerolog.Nop())

	rec := newChanRecorder()
	sub, err := s.Subscribe(context.Background(), "colmenas/actual", rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	first := rec.next(t)
	if !first.Exists || first.Value["temperature"] != 25.5 || first.Value["humidity"] != 50.0 {
		t.Fatalf("unexpected first snapshot %+v", first)
	}

	// Unchanged rows must not be redelivered.
	select {
	case s := <-rec.snaps:
		t.Fatalf("unchanged payload delivered again: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}

	reader.set([]db.Row{row(3000, 300)}, nil)
	if got := rec.next(t); got.Value["temperature"] != 30.0 {
		t.Errorf("expected the new row, got %+v", got)
	}

	reader.set(nil, nil)
	if got := rec.next(t); got.Exists {
		t.Errorf("expected an absent snapshot for an empty partition, got %+v", got)
	}
}

func TestScyllaReportsErrors(t *testing.T) {
	cause := errors.New("no hosts available")
	reader := &fakeReader{err: cause}
	s := NewScyllaWithReader(reader, 10*time.Millisecond, zerolog.Nop())

	rec := newChanRecorder()
	sub, _ := s.Subscribe(context.Background(), "p", rec.handler())
	defer sub.Unsubscribe()

	select {
	case err := <-rec.errs:
		var terr *TransportError
		if !errors.As(err, &terr) || terr.Op != "poll" || !errors.Is(err, cause) {
			t.Errorf("unexpected error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no error delivered")
	}
}

func TestScyllaQuery(t *testing.T) {
	reader := &fakeReader{rows: []db.Row{row(3000, 250), row(2000, 240), row(1000, 230)}}
	s := NewScyllaWithReader(reader, time.Hour, zerolog.Nop())

	if _, err := s.SubscribeQuery(context.Background(), Query{Path: "h", OrderBy: "humidity"}, Handler{}); !errors.Is(err, ErrUnsupportedOrder) {
		t.Fatalf("expected ErrUnsupportedOrder, got %v", err)
	}

	rec := newChanRecorder()
	sub, err := s.SubscribeQuery(context.Background(), Query{Path: "h", OrderBy: "timestamp", LimitToLast: 2}, rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	got := rec.next(t)
	if !got.Exists || len(got.Value) != 2 {
		t.Fatalf("expected 2 children, got %+v", got)
	}
	if _, ok := got.Value[entryKey(3000, 0)]; !ok {
		t.Errorf("expected newest row keyed by its timestamp, got %v", got.Value)
	}
}

func TestScyllaUnsubscribeStopsPolling(t *testing.T) {
	reader := &fakeReader{rows: []db.Row{row(1000, 250)}}
	s := NewScyllaWithReader(reader, 5*time.Millisecond, zerolog.Nop())

	rec := newChanRecorder()
	sub, _ := s.Subscribe(context.Background(), "p", rec.handler())
	rec.next(t)
	sub.Unsubscribe()
	sub.Unsubscribe()

	reader.set([]db.Row{row(2000, 260)}, nil)
	select {
	case s := <-rec.snaps:
		t.Fatalf("delivered after unsubscribe: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScyllaSubscribeReadsLatestRow(t *testing.T) {
	reader := &fakeReader{}
	s := NewScyllaWithReader(reader, 10*time.Millisecond, zerolog.Nop())

	rec := newChanRecorder()
	sub, err := s.Subscribe(context.Background(), "colmenas/actual", rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if snap := rec.next(t); snap.Exists {
		t.Fatalf("an empty partition should be absent, got %+v", snap)
	}

	reader.set([]db.Row{row(3000, 310), row(2000, 300)}, nil)
	snap := rec.next(t)
	if !snap.Exists || snap.Value["temperature"] != 31.0 {
		t.Errorf("expected the newest row, got %+v", snap)
	}
	sub.Unsubscribe()

	reader.mu.Lock()
	defer reader.mu.Unlock()
	if reader.latest == 0 {
		t.Error("current subscription did not read through LatestReading")
	}
	if len(reader.n) != 0 {
		t.Errorf("current subscription queried LastReadings with %v", reader.n)
	}
}
