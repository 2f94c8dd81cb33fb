package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ Source = (*Valkey)(nil)

// KeyspaceEvents is the notify-keyspace-events setting the Valkey source
// relies on: keyspace channel, string, sorted set and generic commands.
const KeyspaceEvents = "K$zg"

// Valkey reads the current reading from a string key holding a JSON object
// and the history from a sorted set scored by timestamp millis whose members
// are JSON objects. Changes are picked up through keyspace notifications.
type Valkey struct {
	client      redis.UniversalClient
	readTimeout time.Duration
	logger      zerolog.Logger
}

func NewValkey(addrs []string, logger zerolog.Logger) *Valkey {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		DialTimeout: 2 * time.Second,
	})
	return NewValkeyWithClient(client, logger)
}

func NewValkeyWithClient(client redis.UniversalClient, logger zerolog.Logger) *Valkey {
	return &Valkey{
		client:      client,
		readTimeout: 500 * time.Millisecond,
		logger:      logger.With().Str("component", "valkey-source").Logger(),
	}
}

// EnableKeyspaceEvents turns on the notifications the subscriptions listen to.
func (v *Valkey) EnableKeyspaceEvents(ctx context.Context) error {
	if err := v.client.ConfigSet(ctx, "notify-keyspace-events", KeyspaceEvents).Err(); err != nil {
		return fmt.Errorf("failed to enable keyspace events: %w", err)
	}
	return nil
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	return v.watch(ctx, path, h, func(ctx context.Context) (types.Snapshot, error) {
		return v.readCurrent(ctx, path)
	})
}

func (v *Valkey) SubscribeQuery(ctx context.Context, q Query, h Handler) (Subscription, error) {
	if q.OrderBy != "timestamp" {
		return nil, fmt.Errorf("%w: %q (history is scored by timestamp)", ErrUnsupportedOrder, q.OrderBy)
	}
	return v.watch(ctx, q.Path, h, func(ctx context.Context) (types.Snapshot, error) {
		return v.readHistory(ctx, q.Path, q.LimitToLast)
	})
}

func keyspaceChannel(key string) string {
	return "__keyspace@*__:" + key
}

func (v *Valkey) watch(
	ctx context.Context,
	key string,
	h Handler,
	read func(ctx context.Context) (types.Snapshot, error),
) (Subscription, error) {
	ps := v.client.PSubscribe(ctx, keyspaceChannel(key))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, &TransportError{Path: key, Op: "subscribe", Err: err}
	}

	l := startLoop(ctx, func(ctx context.Context) {
		deliver := func() {
			snap, err := read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.fail(key, "read", err)
				return
			}
			if ctx.Err() == nil {
				h.snapshot(snap)
			}
		}

		deliver()

		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				v.logger.Debug().Str("key", key).Str("event", msg.Payload).Msg("keyspace event")
				deliver()
			}
		}
	}, func() {
		if err := ps.Close(); err != nil {
			v.logger.Warn().Err(err).Str("key", key).Msg("failed to close pubsub")
		}
	})

	v.logger.Info().Str("key", key).Str("subscription", l.ID()).Msg("subscribed")
	return l, nil
}

func (v *Valkey) readCurrent(ctx context.Context, key string) (types.Snapshot, error) {
	ctx, span := otel.Tracer("colmena-source").Start(ctx, "valkey.ReadCurrent")
	defer span.End()

	span.SetAttributes(attribute.String("valkey.key", key))

	ctx, cancel := context.WithTimeout(ctx, v.readTimeout)
	defer cancel()

	b, err := v.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetStatus(codes.Ok, "")
		return types.Snapshot{}, nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.Snapshot{}, err
	}

	var value map[string]any
	if err := json.Unmarshal(b, &value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.Snapshot{}, fmt.Errorf("failed to decode current reading: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return snapshotOf(value), nil
}

func (v *Valkey) readHistory(ctx context.Context, key string, n int) (types.Snapshot, error) {
	ctx, span := otel.Tracer("colmena-source").Start(ctx, "valkey.ReadHistory")
	defer span.End()

	span.SetAttributes(
		attribute.String("valkey.key", key),
		attribute.Int("valkey.limit", n),
	)

	ctx, cancel := context.WithTimeout(ctx, v.readTimeout)
	defer cancel()

	stop := int64(-1)
	if n > 0 {
		stop = int64(n - 1)
	}
	entries, err := v.client.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return types.Snapshot{}, err
	}

	children := historyChildren(entries)
	span.SetAttributes(attribute.Int("valkey.entries", len(children)))
	span.SetStatus(codes.Ok, "")
	return collectionSnapshot(children), nil
}

// historyChildren decodes sorted set members into collection children. A
// member that is not a JSON object is kept as a raw string so validation can
// reject it. Missing timestamps are filled from the score.
func historyChildren(entries []redis.Z) map[string]any {
	children := make(map[string]any, len(entries))
	for i, e := range entries {
		key := entryKey(int64(e.Score), i)

		s, ok := e.Member.(string)
		if !ok {
			children[key] = e.Member
			continue
		}

		var entry map[string]any
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			children[key] = s
			continue
		}
		if id, ok := entry["id"].(string); ok && id != "" {
			key = id
		}
		if _, ok := entry["timestamp"]; !ok {
			entry["timestamp"] = e.Score
		}
		children[key] = entry
	}
	return children
}

func (v *Valkey) Close() error {
	return v.client.Close()
}
