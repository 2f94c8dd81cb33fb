package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid config")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if c.Source.CurrentPath == "" || c.Source.HistoryPath == "" {
		return invalid("source paths must not be empty")
	}
	if c.Source.HistoryLimit <= 0 {
		return invalid("source.history_limit must be positive, got %d", c.Source.HistoryLimit)
	}

	switch c.Source.Kind {
	case SourceMemory:
	case SourceValkey:
		if len(c.Valkey.Addrs) == 0 && c.Valkey.Service == "" {
			return invalid("valkey source needs valkey.addrs or valkey.service")
		}
	case SourceMQTT:
		if c.MQTT.Broker == "" {
			return invalid("mqtt source needs mqtt.broker")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return invalid("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
		}
	case SourceScylla:
		if len(c.Scylla.Hosts) == 0 || c.Scylla.Keyspace == "" {
			return invalid("scylla source needs scylla.hosts and scylla.keyspace")
		}
		if c.Scylla.PollInterval <= 0 {
			return invalid("scylla.poll_interval must be positive")
		}
	default:
		return invalid("unknown source.kind %q", c.Source.Kind)
	}

	switch c.Cache.Driver {
	case CacheNone:
	case CacheValkey, CacheMemcached:
		if len(c.Cache.Addrs) == 0 {
			return invalid("cache driver %s needs cache.addrs", c.Cache.Driver)
		}
		if c.Cache.Key == "" {
			return invalid("cache.key must not be empty")
		}
	default:
		return invalid("unknown cache.driver %q", c.Cache.Driver)
	}

	if c.Relay.Retain <= 0 {
		return invalid("relay.retain must be positive, got %d", c.Relay.Retain)
	}

	if _, err := c.Location(); err != nil {
		return invalid("display.location: %v", err)
	}
	return nil
}
