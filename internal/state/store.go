// Package state holds the dashboard aggregate consumed by presentation.
//
// A Store is owned by the composition root. Ingestors change it only by
// applying Update messages; every Apply swaps in a complete new state so
// readers never observe a half-applied update.
package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/metrics"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

// Update is one event produced by an ingestor.
type Update interface {
	apply(st *types.DashboardState)
}

// CurrentUpdate replaces the current reading and its derived status.
type CurrentUpdate struct {
	Reading types.CurrentReading
	Status  types.Status
}

func (u CurrentUpdate) apply(st *types.DashboardState) {
	r := u.Reading
	st.Current = &r
	st.Status = u.Status
}

// HistoryUpdate replaces the history window and ends loading.
type HistoryUpdate struct {
	Samples []types.HistoricSample
}

func (u HistoryUpdate) apply(st *types.DashboardState) {
	st.History = make([]types.HistoricSample, len(u.Samples))
	copy(st.History, u.Samples)
	st.Loading = false
}

// HistoryFailed ends loading after a history transport error, keeping the
// previous window.
type HistoryFailed struct{}

func (HistoryFailed) apply(st *types.DashboardState) {
	st.Loading = false
}

type Store struct {
	mu       sync.Mutex
	state    atomic.Pointer[types.DashboardState]
	watchers map[int]chan types.DashboardState
	nextID   int
	closed   bool
	done     chan struct{}
	now      func() time.Time
}

func NewStore() *Store {
	s := &Store{
		watchers: make(map[int]chan types.DashboardState),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	s.reset()
	return s
}

func initialState() types.DashboardState {
	return types.DashboardState{
		History: []types.HistoricSample{},
		Status:  types.StatusNormal,
		Loading: true,
	}
}

func (s *Store) reset() {
	st := initialState()
	s.state.Store(&st)
}

// Apply replaces the state with the result of u. It reports false once the
// store has been closed, in which case nothing changes.
func (s *Store) Apply(u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	next := s.state.Load().Clone()
	u.apply(&next)
	next.UpdatedAt = s.now()
	s.state.Store(&next)

	metrics.StateReplacementsTotal.Inc()
	metrics.HistoryLength.Set(float64(len(next.History)))
	metrics.CurrentStatus.Set(float64(next.Status))

	for _, ch := range s.watchers {
		publish(ch, next.Clone())
	}
	return true
}

// publish hands st to a watcher, dropping a stale unread state if needed.
func publish(ch chan types.DashboardState, st types.DashboardState) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

// Snapshot returns a copy of the latest state.
func (s *Store) Snapshot() types.DashboardState {
	return s.state.Load().Clone()
}

// Watch streams the latest state after each replacement, starting with the
// current one. Slow readers only ever see the newest state. The channel is
// closed when ctx ends or the store is closed.
func (s *Store) Watch(ctx context.Context) <-chan types.DashboardState {
	ch := make(chan types.DashboardState, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.state.Load().Clone()
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
	}()

	return ch
}

// Close discards the state and stops all watchers. Later updates are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	s.reset()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
}
