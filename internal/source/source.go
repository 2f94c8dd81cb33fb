// Package source adapts push-based key-value stores to snapshot subscriptions.
//
// Every Source exposes two kinds of subscription: a plain path, delivering the
// value stored at that path, and a query over a collection, ordered by a child
// field and limited to the last N entries. Each delivery is a complete,
// immutable snapshot. After Unsubscribe returns no handler is invoked again.
package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

var (
	ErrUnsupportedOrder = errors.New("unsupported order field")
	ErrClosed           = errors.New("source closed")
)

// TransportError reports a failed read or subscription on the remote store.
type TransportError struct {
	Path string
	Op   string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Query selects the last LimitToLast children of Path ordered by OrderBy.
type Query struct {
	Path        string
	OrderBy     string
	LimitToLast int
}

type Handler struct {
	OnSnapshot func(types.Snapshot)
	OnError    func(error)
}

func (h Handler) snapshot(s types.Snapshot) {
	if h.OnSnapshot != nil {
		h.OnSnapshot(s)
	}
}

func (h Handler) fail(path, op string, err error) {
	if h.OnError != nil {
		h.OnError(&TransportError{Path: path, Op: op, Err: err})
	}
}

type Subscription interface {
	ID() string
	Unsubscribe()
}

type Source interface {
	Subscribe(ctx context.Context, path string, h Handler) (Subscription, error)
	SubscribeQuery(ctx context.Context, q Query, h Handler) (Subscription, error)
	Close() error
}

// loop is a subscription backed by a delivery goroutine.
type loop struct {
	id     string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	onStop func()
}

func startLoop(ctx context.Context, run func(ctx context.Context), onStop func()) *loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{
		id:     uuid.NewString(),
		cancel: cancel,
		onStop: onStop,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		run(ctx)
	}()
	return l
}

func (l *loop) ID() string {
	return l.id
}

// Unsubscribe stops the delivery goroutine and waits for it to return.
func (l *loop) Unsubscribe() {
	l.once.Do(func() {
		l.cancel()
		l.wg.Wait()
		if l.onStop != nil {
			l.onStop()
		}
	})
}
