// Package config loads the service configuration from an optional YAML file
// and COLMENA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "COLMENA"

// Source kinds.
const (
	SourceMemory = "memory"
	SourceValkey = "valkey"
	SourceMQTT   = "mqtt"
	SourceScylla = "scylla"
)

// Cache drivers.
const (
	CacheNone      = "none"
	CacheValkey    = "valkey"
	CacheMemcached = "memcached"
)

type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Valkey  ValkeyConfig  `mapstructure:"valkey"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	Scylla  ScyllaConfig  `mapstructure:"scylla"`
	Cache   CacheConfig   `mapstructure:"cache"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Relay   RelayConfig   `mapstructure:"relay"`
	Display DisplayConfig `mapstructure:"display"`
}

type SourceConfig struct {
	Kind         string `mapstructure:"kind"`
	CurrentPath  string `mapstructure:"current_path"`
	HistoryPath  string `mapstructure:"history_path"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

type ValkeyConfig struct {
	Addrs []string `mapstructure:"addrs"`
	// Service is resolved through DNS when Addrs is empty.
	Service string `mapstructure:"service"`
}

type MQTTConfig struct {
	Broker   string        `mapstructure:"broker"`
	ClientID string        `mapstructure:"client_id"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	QoS      int           `mapstructure:"qos"`
	Settle   time.Duration `mapstructure:"settle"`
}

type ScyllaConfig struct {
	Hosts        []string      `mapstructure:"hosts"`
	Keyspace     string        `mapstructure:"keyspace"`
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	Addrs  []string      `mapstructure:"addrs"`
	Key    string        `mapstructure:"key"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Group   string   `mapstructure:"group"`
}

type RelayConfig struct {
	// Retain is how many historic entries the relay keeps per hive.
	Retain int `mapstructure:"retain"`
}

type DisplayConfig struct {
	// Location is the IANA zone historic timestamps are rendered in.
	Location string `mapstructure:"location"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.kind", SourceMemory)
	v.SetDefault("source.current_path", "colmenas/actual")
	v.SetDefault("source.history_path", "colmenas/historico")
	v.SetDefault("source.history_limit", 50)

	v.SetDefault("valkey.addrs", []string{})
	v.SetDefault("valkey.service", "")

	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.settle", "250ms")

	v.SetDefault("scylla.hosts", []string{"localhost:9042"})
	v.SetDefault("scylla.keyspace", "colmenas")
	v.SetDefault("scylla.timeout", "5s")
	v.SetDefault("scylla.poll_interval", "5s")

	v.SetDefault("cache.driver", CacheNone)
	v.SetDefault("cache.addrs", []string{})
	v.SetDefault("cache.key", "colmena:dashboard")
	v.SetDefault("cache.ttl", "10m")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{"*"})
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("tracing.endpoint", "")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "colmena-readings")
	v.SetDefault("kafka.group", "colmena-relay")

	v.SetDefault("relay.retain", 500)

	v.SetDefault("display.location", "Local")
}

// Load reads the configuration. An empty path searches for config.yaml in the
// working directory, ./config and /etc/colmena; a missing file is not an error.
// Environment variables override the file, e.g. COLMENA_SOURCE_KIND.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/colmena/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Valkey.Addrs = splitList(cfg.Valkey.Addrs)
	cfg.Scylla.Hosts = splitList(cfg.Scylla.Hosts)
	cfg.Cache.Addrs = splitList(cfg.Cache.Addrs)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.HTTP.AllowedOrigins = splitList(cfg.HTTP.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList flattens comma separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Location resolves Display.Location.
func (c *Config) Location() (*time.Location, error) {
	switch c.Display.Location {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Display.Location)
	}
}
