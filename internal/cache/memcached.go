package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

var _ Cache = (*Memcached)(nil)

type Memcached struct {
	instrumented
	client *memcache.Client
}

func NewMemcached(addrs ...string) *Memcached {
	client := memcache.New(addrs...)
	client.Timeout = 100 * time.Millisecond

	m := &Memcached{client: client}
	m.instrumented = newInstrumented("memcached", m)
	return m
}

// bounded runs a client call under ctx; gomemcache has no context support.
func bounded[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (m *Memcached) set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_, err := bounded(ctx, func() (struct{}, error) {
		return struct{}{}, m.client.Set(&memcache.Item{Key: key, Value: val, Expiration: int32(ttl.Seconds())})
	})
	return err
}

func (m *Memcached) get(ctx context.Context, key string) ([]byte, error) {
	item, err := bounded(ctx, func() (*memcache.Item, error) {
		return m.client.Get(key)
	})
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *Memcached) Ping(ctx context.Context) error {
	_, err := bounded(ctx, func() (struct{}, error) {
		return struct{}{}, m.client.Ping()
	})
	return err
}

func (m *Memcached) Close() {
	m.client.Close()
}
