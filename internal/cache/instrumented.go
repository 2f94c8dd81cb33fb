package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "colmena-cache"

// backend is the raw byte store behind a driver. get reports ErrCacheMiss
// for absent keys.
type backend interface {
	set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	get(ctx context.Context, key string) ([]byte, error)
}

// instrumented turns a backend into the StoreState and FetchState half of
// Cache, adding JSON encoding, spans, metrics and per-call deadlines.
type instrumented struct {
	driver       string
	backend      backend
	metrics      *CacheMetrics
	writeTimeout time.Duration
	readTimeout  time.Duration
}

func newInstrumented(driver string, b backend) instrumented {
	return instrumented{
		driver:       driver,
		backend:      b,
		metrics:      NewCacheMetrics(driver),
		writeTimeout: 200 * time.Millisecond,
		readTimeout:  100 * time.Millisecond,
	}
}

func (c instrumented) span(ctx context.Context, op, key string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache."+op)
	span.SetAttributes(
		attribute.String("cache.driver", c.driver),
		attribute.String("cache.key", key),
	)
	return ctx, span
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (c instrumented) StoreState(ctx context.Context, key string, data any, ttl time.Duration) error {
	ctx, span := c.span(ctx, "StoreState", key)
	defer span.End()
	span.SetAttributes(attribute.Int64("cache.ttl", int64(ttl.Seconds())))

	b, err := json.Marshal(data)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	start := time.Now()
	if err := c.backend.set(ctx, key, b, ttl); err != nil {
		c.metrics.RecordWriteError()
		fail(span, err)
		return fmt.Errorf("failed to store state: %w", err)
	}
	c.metrics.RecordWrite(start)
	span.SetAttributes(attribute.Int("cache.bytes", len(b)))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c instrumented) FetchState(ctx context.Context, key string) ([]byte, error) {
	ctx, span := c.span(ctx, "FetchState", key)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	start := time.Now()
	val, err := c.backend.get(ctx, key)
	switch {
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordMiss()
		span.SetAttributes(attribute.String("cache.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, ErrCacheMiss
	case err != nil:
		c.metrics.RecordReadError()
		fail(span, err)
		return nil, fmt.Errorf("cache fetch: %w", err)
	}

	c.metrics.RecordHit(start)
	span.SetAttributes(attribute.String("cache.result", "hit"))
	span.SetStatus(codes.Ok, "")
	return val, nil
}
