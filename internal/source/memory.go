package source

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var _ Source = (*Memory)(nil)

// Memory is an in-process Source. Writes notify subscribers synchronously on
// the writer's goroutine, in write order.
type Memory struct {
	mu     sync.Mutex
	values map[string]map[string]any
	subs   map[string]*memorySub
	closed bool
}

type memorySub struct {
	id    string
	path  string
	query *Query
	h     Handler
	m     *Memory
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]map[string]any),
		subs:   make(map[string]*memorySub),
	}
}

func (m *Memory) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	return m.subscribe(path, nil, h)
}

func (m *Memory) SubscribeQuery(ctx context.Context, q Query, h Handler) (Subscription, error) {
	return m.subscribe(q.Path, &q, h)
}

func (m *Memory) subscribe(path string, q *Query, h Handler) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	sub := &memorySub{
		id:    uuid.NewString(),
		path:  path,
		query: q,
		h:     h,
		m:     m,
	}
	m.subs[sub.id] = sub
	sub.deliver(m.values[path])
	return sub, nil
}

func (s *memorySub) ID() string {
	return s.id
}

func (s *memorySub) Unsubscribe() {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.subs, s.id)
}

func (s *memorySub) deliver(v map[string]any) {
	if s.query == nil {
		s.h.snapshot(snapshotOf(v))
		return
	}
	s.h.snapshot(collectionSnapshot(applyQuery(v, *s.query)))
}

// Set replaces the value at path.
func (m *Memory) Set(path string, value map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == nil {
		delete(m.values, path)
	} else {
		m.values[path] = deepCopy(value).(map[string]any)
	}
	m.notify(path)
}

// Push adds or replaces one child of the collection at path.
func (m *Memory) Push(path, key string, entry map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.values[path]
	if !ok {
		coll = make(map[string]any)
		m.values[path] = coll
	}
	coll[key] = deepCopy(entry)
	m.notify(path)
}

// Remove deletes the value at path.
func (m *Memory) Remove(path string) {
	m.Set(path, nil)
}

// Fail reports err to every subscriber of path.
func (m *Memory) Fail(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		err = errors.New("unknown failure")
	}
	for _, s := range m.subs {
		if s.path == path {
			s.h.fail(path, "subscribe", err)
		}
	}
}

func (m *Memory) notify(path string) {
	if m.closed {
		return
	}
	for _, s := range m.subs {
		if s.path == path {
			s.deliver(m.values[path])
		}
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[string]*memorySub)
	return nil
}
