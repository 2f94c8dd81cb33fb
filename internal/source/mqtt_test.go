package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m fakeMessage) Topic() string   { return m.topic }
func (m fakeMessage) Payload() []byte { return m.payload }

// fakeClient keeps the handlers it was given even after Unsubscribe so tests
// can replay messages that were already in flight.
type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	unsubscribed []string
	subErr       error
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: map[string]mqtt.MessageHandler{}}
}

func (c *fakeClient) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return fakeToken{err: c.subErr}
	}
	c.handlers[topic] = cb
	return fakeToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = append(c.unsubscribed, topics...)
	return fakeToken{}
}

func (c *fakeClient) IsConnected() bool { return true }
func (c *fakeClient) Disconnect(uint)   {}

func (c *fakeClient) deliver(t *testing.T, filter, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	cb, ok := c.handlers[filter]
	c.mu.Unlock()
	if !ok {
		t.Fatalf("nothing subscribed to %s", filter)
	}
	cb(c, fakeMessage{topic: topic, payload: []byte(payload)})
}

func newTestMQTT(client mqtt.Client, settle time.Duration) *MQTT {
	return NewMQTTWithClient(client, MQTTOptions{QoS: 1, Settle: settle}, zerolog.Nop())
}

func entryPayload(ms int) string {
	return fmt.Sprintf(`{"temperature":20,"humidity":50,"timestamp":%d}`, ms)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestMQTTSubscribeCurrent(t *testing.T) {
	client := newFakeClient()
	m := newTestMQTT(client, 0)

	rec := newChanRecorder()
	sub, err := m.Subscribe(context.Background(), "colmenas/actual", rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	client.deliver(t, "colmenas/actual", "colmenas/actual", `{"temperature":25.5,"humidity":60}`)
	snap := rec.next(t)
	if !snap.Exists || snap.Value["temperature"] != 25.5 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	client.deliver(t, "colmenas/actual", "colmenas/actual", "")
	if snap := rec.next(t); snap.Exists {
		t.Errorf("an empty retained payload should be absent, got %+v", snap)
	}

	client.deliver(t, "colmenas/actual", "colmenas/actual", "not json")
	select {
	case err := <-rec.errs:
		var te *TransportError
		if !errors.As(err, &te) || te.Op != "decode" {
			t.Errorf("expected a decode TransportError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a decode error")
	}
}

func TestMQTTSubscribeError(t *testing.T) {
	client := newFakeClient()
	client.subErr = errors.New("not authorized")
	m := newTestMQTT(client, 0)

	_, err := m.Subscribe(context.Background(), "colmenas/actual", Handler{})
	var te *TransportError
	if !errors.As(err, &te) || te.Op != "subscribe" {
		t.Errorf("expected a subscribe TransportError, got %v", err)
	}

	if _, err := m.SubscribeQuery(context.Background(), Query{Path: "colmenas/historico", OrderBy: "timestamp"}, Handler{}); !errors.As(err, &te) {
		t.Errorf("expected a subscribe TransportError for the query, got %v", err)
	}
}

func TestMQTTQueryWindow(t *testing.T) {
	client := newFakeClient()
	m := newTestMQTT(client, 200*time.Millisecond)

	rec := newChanRecorder()
	q := Query{Path: "colmenas/historico", OrderBy: "timestamp", LimitToLast: 3}
	sub, err := m.SubscribeQuery(context.Background(), q, rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	// Retained children arrive in any order.
	for _, i := range []int{4, 1, 5, 2, 3} {
		client.deliver(t, "colmenas/historico/+", fmt.Sprintf("colmenas/historico/k%d", i), entryPayload(i*1000))
	}

	if len(rec.snaps) != 0 {
		t.Fatal("a snapshot was emitted before the window settled")
	}

	snap := rec.next(t)
	if got := sortedKeys(snap.Value); fmt.Sprint(got) != "[k3 k4 k5]" {
		t.Errorf("settled window = %v, want [k3 k4 k5]", got)
	}

	// Once settled, every message emits the updated window.
	client.deliver(t, "colmenas/historico/+", "colmenas/historico/k6", entryPayload(6000))
	snap = rec.next(t)
	if got := sortedKeys(snap.Value); fmt.Sprint(got) != "[k4 k5 k6]" {
		t.Errorf("window = %v, want [k4 k5 k6]", got)
	}

	client.deliver(t, "colmenas/historico/+", "colmenas/historico/k5", "")
	snap = rec.next(t)
	if got := sortedKeys(snap.Value); fmt.Sprint(got) != "[k4 k6]" {
		t.Errorf("window after delete = %v, want [k4 k6]", got)
	}
}

func TestMQTTQueryEmpty(t *testing.T) {
	client := newFakeClient()
	m := newTestMQTT(client, 20*time.Millisecond)

	rec := newChanRecorder()
	q := Query{Path: "colmenas/historico/", OrderBy: "timestamp", LimitToLast: 50}
	sub, err := m.SubscribeQuery(context.Background(), q, rec.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if snap := rec.next(t); snap.Exists {
		t.Fatalf("an empty collection should be absent, got %+v", snap)
	}

	client.deliver(t, "colmenas/historico/+", "colmenas/historico/a", entryPayload(1000))
	if snap := rec.next(t); !snap.Exists || len(snap.Value) != 1 {
		t.Fatalf("expected one child, got %+v", snap)
	}

	client.deliver(t, "colmenas/historico/+", "colmenas/historico/a", "")
	if snap := rec.next(t); snap.Exists {
		t.Errorf("removing the last child should leave the collection absent, got %+v", snap)
	}
}

func TestMQTTNoDeliveryAfterUnsubscribe(t *testing.T) {
	client := newFakeClient()
	m := newTestMQTT(client, 20*time.Millisecond)

	current := newChanRecorder()
	csub, err := m.Subscribe(context.Background(), "colmenas/actual", current.handler())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	history := newChanRecorder()
	q := Query{Path: "colmenas/historico", OrderBy: "timestamp", LimitToLast: 50}
	hsub, err := m.SubscribeQuery(context.Background(), q, history.handler())
	if err != nil {
		t.Fatalf("subscribe query: %v", err)
	}

	csub.Unsubscribe()
	hsub.Unsubscribe()
	csub.Unsubscribe()

	client.deliver(t, "colmenas/actual", "colmenas/actual", `{"temperature":25}`)
	client.deliver(t, "colmenas/historico/+", "colmenas/historico/a", entryPayload(1000))

	// Past the settle delay: the timer must have been stopped too.
	time.Sleep(100 * time.Millisecond)

	if len(current.snaps) != 0 || len(history.snaps) != 0 {
		t.Errorf("delivered after unsubscribe: current %d, history %d", len(current.snaps), len(history.snaps))
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if fmt.Sprint(client.unsubscribed) != "[colmenas/actual colmenas/historico/+]" {
		t.Errorf("unsubscribed topics = %v", client.unsubscribed)
	}
}
