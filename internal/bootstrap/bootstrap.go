// Package bootstrap opens the backends selected by the configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/cache"
	"github.com/ntentasd/colmena-telemetry/internal/config"
	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/internal/db"
	"github.com/ntentasd/colmena-telemetry/internal/source"
	"github.com/rs/zerolog"
)

// ValkeyPort is used when addresses are resolved from a service name.
const ValkeyPort = 6379

// OpenSource connects the telemetry source named by cfg.Source.Kind.
func OpenSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourceMemory:
		logger.Warn().Msg("using the in-memory source, nothing will be written to it")
		return source.NewMemory(), nil

	case config.SourceValkey:
		addrs, err := cache.ResolveAddrs(ctx, cfg.Valkey.Addrs, cfg.Valkey.Service, ValkeyPort)
		if err != nil {
			return nil, fmt.Errorf("valkey source: %w", err)
		}
		v := source.NewValkey(addrs, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := v.Ping(pingCtx); err != nil {
			v.Close()
			return nil, fmt.Errorf("valkey source: %w", err)
		}
		if err := v.EnableKeyspaceEvents(pingCtx); err != nil {
			// Managed deployments often forbid CONFIG SET; the server may
			// already be configured.
			logger.Warn().Err(err).Str("events", source.KeyspaceEvents).Msg("could not enable keyspace events")
		}
		return v, nil

	case config.SourceMQTT:
		return source.NewMQTT(source.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      byte(cfg.MQTT.QoS),
			Settle:   cfg.MQTT.Settle,
		}, logger)

	case config.SourceScylla:
		store, err := db.Connect(cfg.Scylla.Hosts, cfg.Scylla.Keyspace, cfg.Scylla.Timeout)
		if err != nil {
			return nil, fmt.Errorf("scylla source: %w", err)
		}
		return source.NewScylla(store, cfg.Scylla.PollInterval, logger), nil

	default:
		return nil, fmt.Errorf("%w: unknown source.kind %q", config.ErrInvalidConfig, cfg.Source.Kind)
	}
}

// OpenCache connects the state cache. It returns nil when caching is off.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	var c cache.Cache
	switch cfg.Cache.Driver {
	case config.CacheNone, "":
		return nil, nil
	case config.CacheValkey:
		c = cache.NewValkey(cfg.Cache.Addrs)
	case config.CacheMemcached:
		c = cache.NewMemcached(cfg.Cache.Addrs...)
	default:
		return nil, fmt.Errorf("%w: unknown cache.driver %q", config.ErrInvalidConfig, cfg.Cache.Driver)
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("cache %s: %w", cfg.Cache.Driver, err)
	}
	return c, nil
}

// DashboardOptions maps the source settings onto dashboard options.
func DashboardOptions(cfg *config.Config) (dashboard.Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return dashboard.Options{}, err
	}
	return dashboard.Options{
		CurrentPath:  cfg.Source.CurrentPath,
		HistoryPath:  cfg.Source.HistoryPath,
		HistoryLimit: cfg.Source.HistoryLimit,
		Location:     loc,
	}, nil
}
