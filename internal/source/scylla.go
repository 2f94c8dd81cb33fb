package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/colmena-telemetry/internal/db"
	"github.com/ntentasd/colmena-telemetry/internal/worker"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

var _ Source = (*Scylla)(nil)

type ReadingReader interface {
	LatestReading(ctx context.Context, path string) (*db.Row, error)
	LastReadings(ctx context.Context, path string, n int) ([]db.Row, error)
}

// Scylla has no push channel, so it polls and emits a snapshot only when the
// polled payload differs from the previous one.
type Scylla struct {
	reader   ReadingReader
	interval time.Duration
	logger   zerolog.Logger
	closer   func()
}

func NewScylla(store *db.DB, interval time.Duration, logger zerolog.Logger) *Scylla {
	s := NewScyllaWithReader(store, interval, logger)
	s.closer = store.Close
	return s
}

func NewScyllaWithReader(reader ReadingReader, interval time.Duration, logger zerolog.Logger) *Scylla {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scylla{
		reader:   reader,
		interval: interval,
		logger:   logger.With().Str("component", "scylla-source").Logger(),
	}
}

type pollSub struct {
	id     string
	poller *worker.Poller
	once   sync.Once
}

func (s *pollSub) ID() string {
	return s.id
}

func (s *pollSub) Unsubscribe() {
	s.once.Do(s.poller.Stop)
}

func (s *Scylla) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	return s.poll(ctx, path, h, func(ctx context.Context) (types.Snapshot, error) {
		r, err := s.reader.LatestReading(ctx, path)
		if err != nil {
			return types.Snapshot{}, err
		}
		if r == nil {
			return types.Snapshot{}, nil
		}
		return snapshotOf(r.Raw()), nil
	})
}

func (s *Scylla) SubscribeQuery(ctx context.Context, q Query, h Handler) (Subscription, error) {
	if q.OrderBy != "timestamp" {
		return nil, fmt.Errorf("%w: %q (rows are clustered by timestamp)", ErrUnsupportedOrder, q.OrderBy)
	}
	return s.poll(ctx, q.Path, h, func(ctx context.Context) (types.Snapshot, error) {
		rows, err := s.reader.LastReadings(ctx, q.Path, q.LimitToLast)
		if err != nil {
			return types.Snapshot{}, err
		}
		children := make(map[string]any, len(rows))
		for i, r := range rows {
			children[entryKey(r.Timestamp.UnixMilli(), i)] = r.Raw()
		}
		return collectionSnapshot(children), nil
	})
}

func (s *Scylla) poll(
	ctx context.Context,
	path string,
	h Handler,
	read func(ctx context.Context) (types.Snapshot, error),
) (Subscription, error) {
	var last []byte

	task := func(ctx context.Context) error {
		snap, err := read(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			h.fail(path, "poll", err)
			return err
		}

		b, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if last != nil && bytes.Equal(b, last) {
			return nil
		}
		last = b
		h.snapshot(snap)
		return nil
	}

	id := uuid.NewString()
	p := worker.NewPoller("scylla:"+path, s.interval, task, s.logger)
	p.Start(ctx)

	s.logger.Info().Str("path", path).Str("subscription", id).Dur("interval", s.interval).Msg("polling")
	return &pollSub{id: id, poller: p}, nil
}

func (s *Scylla) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}
