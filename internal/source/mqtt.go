package source

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

var _ Source = (*MQTT)(nil)

// MQTT maps paths to topics. The retained message on a path topic is its
// value and an empty payload means absent. Collection children are retained
// messages on "<path>/<key>"; the adapter keeps the ordered, limited window
// the query asks for.
type MQTT struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	settle  time.Duration
	logger  zerolog.Logger
}

type MQTTOptions struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	// Settle is how long a collection subscription collects retained
	// messages before emitting its first snapshot.
	Settle time.Duration
}

func NewMQTT(opts MQTTOptions, logger zerolog.Logger) (*MQTT, error) {
	logger = logger.With().Str("component", "mqtt-source").Logger()

	clientID := opts.ClientID
	if clientID == "" {
		clientID = "colmena-" + uuid.NewString()[:8]
	}

	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost")
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logger.Info().Str("broker", opts.Broker).Msg("connected")
		})
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, &TransportError{Path: opts.Broker, Op: "connect", Err: context.DeadlineExceeded}
	}
	if err := token.Error(); err != nil {
		return nil, &TransportError{Path: opts.Broker, Op: "connect", Err: err}
	}

	return NewMQTTWithClient(client, opts, logger), nil
}

func NewMQTTWithClient(client mqtt.Client, opts MQTTOptions, logger zerolog.Logger) *MQTT {
	settle := opts.Settle
	if settle <= 0 {
		settle = 250 * time.Millisecond
	}
	return &MQTT{
		client:  client,
		qos:     opts.QoS,
		timeout: 5 * time.Second,
		settle:  settle,
		logger:  logger,
	}
}

// mqttSub guards delivery so nothing is handed out after Unsubscribe.
type mqttSub struct {
	id     string
	topic  string
	m      *MQTT
	mu     sync.Mutex
	active bool
	timer  *time.Timer
}

func (s *mqttSub) ID() string {
	return s.id
}

func (s *mqttSub) Unsubscribe() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	token := s.m.client.Unsubscribe(s.topic)
	if !token.WaitTimeout(s.m.timeout) || token.Error() != nil {
		s.m.logger.Warn().Err(token.Error()).Str("topic", s.topic).Msg("unsubscribe failed")
	}
}

func (m *MQTT) subscribe(topic string, sub *mqttSub, cb mqtt.MessageHandler) error {
	token := m.client.Subscribe(topic, m.qos, cb)
	if !token.WaitTimeout(m.timeout) {
		return &TransportError{Path: topic, Op: "subscribe", Err: context.DeadlineExceeded}
	}
	if err := token.Error(); err != nil {
		return &TransportError{Path: topic, Op: "subscribe", Err: err}
	}
	m.logger.Info().Str("topic", topic).Str("subscription", sub.id).Msg("subscribed")
	return nil
}

func (m *MQTT) Subscribe(ctx context.Context, path string, h Handler) (Subscription, error) {
	sub := &mqttSub{id: uuid.NewString(), topic: path, m: m, active: true}

	err := m.subscribe(path, sub, func(_ mqtt.Client, msg mqtt.Message) {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.active {
			return
		}

		if len(msg.Payload()) == 0 {
			h.snapshot(types.Snapshot{})
			return
		}
		var value map[string]any
		if err := json.Unmarshal(msg.Payload(), &value); err != nil {
			h.fail(path, "decode", err)
			return
		}
		h.snapshot(snapshotOf(value))
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *MQTT) SubscribeQuery(ctx context.Context, q Query, h Handler) (Subscription, error) {
	prefix := strings.TrimSuffix(q.Path, "/") + "/"
	topic := prefix + "+"
	sub := &mqttSub{id: uuid.NewString(), topic: topic, m: m, active: true}

	children := make(map[string]any)
	settled := false

	emit := func() {
		window := applyQuery(children, q)
		// Children outside the window are dropped.
		for k := range children {
			if _, ok := window[k]; !ok {
				delete(children, k)
			}
		}
		h.snapshot(collectionSnapshot(window))
	}

	err := m.subscribe(topic, sub, func(_ mqtt.Client, msg mqtt.Message) {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.active {
			return
		}

		key := strings.TrimPrefix(msg.Topic(), prefix)
		if len(msg.Payload()) == 0 {
			delete(children, key)
		} else {
			var entry map[string]any
			if err := json.Unmarshal(msg.Payload(), &entry); err != nil {
				children[key] = string(msg.Payload())
			} else {
				children[key] = entry
			}
		}

		if settled {
			emit()
		}
	})
	if err != nil {
		return nil, err
	}

	sub.mu.Lock()
	sub.timer = time.AfterFunc(m.settle, func() {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if !sub.active {
			return
		}
		settled = true
		emit()
	})
	sub.mu.Unlock()

	return sub, nil
}

func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}
