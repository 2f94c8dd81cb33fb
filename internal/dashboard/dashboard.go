// Package dashboard wires a telemetry source to the ingestors and the state
// store, and owns the lifetime of both subscriptions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/source"
	"github.com/ntentasd/colmena-telemetry/internal/state"
	"github.com/ntentasd/colmena-telemetry/internal/telemetry"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

var ErrAlreadyStarted = errors.New("dashboard already started")

type Options struct {
	CurrentPath  string
	HistoryPath  string
	HistoryLimit int
	Location     *time.Location
}

func (o Options) withDefaults() Options {
	if o.CurrentPath == "" {
		o.CurrentPath = "colmenas/actual"
	}
	if o.HistoryPath == "" {
		o.HistoryPath = "colmenas/historico"
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = telemetry.HistoryLimit
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

type Dashboard struct {
	src     source.Source
	store   *state.Store
	current *telemetry.CurrentIngestor
	history *telemetry.HistoryIngestor
	opts    Options
	logger  zerolog.Logger

	mu      sync.Mutex
	subs    []source.Subscription
	cancel  context.CancelFunc
	started bool
	stopped bool
}

func New(src source.Source, opts Options, logger zerolog.Logger) *Dashboard {
	opts = opts.withDefaults()
	store := state.NewStore()
	return &Dashboard{
		src:     src,
		store:   store,
		current: telemetry.NewCurrentIngestor(store, logger),
		history: telemetry.NewHistoryIngestor(store, opts.Location, opts.HistoryLimit, logger),
		opts:    opts,
		logger:  logger.With().Str("component", "dashboard").Logger(),
	}
}

// Store exposes the read side of the dashboard state.
func (d *Dashboard) Store() *state.Store {
	return d.store
}

func (d *Dashboard) Snapshot() types.DashboardState {
	return d.store.Snapshot()
}

// Start opens both subscriptions. A subscription that cannot be opened is
// handled like a transport error on its channel: logged, and for history,
// loading ends. The returned error reports what failed; the dashboard keeps
// running on whatever did open.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	var errs []error

	cur, err := d.src.Subscribe(ctx, d.opts.CurrentPath, source.Handler{
		OnSnapshot: func(s types.Snapshot) { d.current.HandleSnapshot(ctx, s) },
		OnError:    func(err error) { d.current.HandleError(ctx, err) },
	})
	if err != nil {
		d.current.HandleError(ctx, err)
		errs = append(errs, fmt.Errorf("current subscription: %w", err))
	} else {
		d.subs = append(d.subs, cur)
	}

	hist, err := d.src.SubscribeQuery(ctx, source.Query{
		Path:        d.opts.HistoryPath,
		OrderBy:     "timestamp",
		LimitToLast: d.opts.HistoryLimit,
	}, source.Handler{
		OnSnapshot: func(s types.Snapshot) { d.history.HandleSnapshot(ctx, s) },
		OnError:    func(err error) { d.history.HandleError(ctx, err) },
	})
	if err != nil {
		d.history.HandleError(ctx, err)
		errs = append(errs, fmt.Errorf("history subscription: %w", err))
	} else {
		d.subs = append(d.subs, hist)
	}

	d.logger.Info().
		Str("current_path", d.opts.CurrentPath).
		Str("history_path", d.opts.HistoryPath).
		Int("history_limit", d.opts.HistoryLimit).
		Int("subscriptions", len(d.subs)).
		Msg("dashboard started")

	return errors.Join(errs...)
}

// Stop releases both subscriptions and discards the state. It is safe to call
// more than once.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true

	for _, s := range d.subs {
		s.Unsubscribe()
	}
	d.subs = nil
	if d.cancel != nil {
		d.cancel()
	}
	d.store.Close()

	d.logger.Info().Msg("dashboard stopped")
}
