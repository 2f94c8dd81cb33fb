package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Cache = (*Valkey)(nil)

type Valkey struct {
	instrumented
	client redis.UniversalClient
}

// NewValkey connects to a single node, or to a cluster when more than one
// address is given.
func NewValkey(addrs []string) *Valkey {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		DialTimeout: 2 * time.Second,
	})
	return NewValkeyWithClient(client)
}

func NewValkeyWithClient(client redis.UniversalClient) *Valkey {
	v := &Valkey{client: client}
	v.instrumented = newInstrumented("valkey", v)
	return v
}

func (v *Valkey) set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return v.client.Set(ctx, key, val, ttl).Err()
}

func (v *Valkey) get(ctx context.Context, key string) ([]byte, error) {
	val, err := v.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Close() {
	v.client.Close()
}
