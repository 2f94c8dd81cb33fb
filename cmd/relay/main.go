// Command relay consumes hive readings from Kafka and writes them into the
// Valkey keys the dashboard subscribes to.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/bootstrap"
	"github.com/ntentasd/colmena-telemetry/internal/cache"
	"github.com/ntentasd/colmena-telemetry/internal/config"
	"github.com/ntentasd/colmena-telemetry/internal/kafka"
	"github.com/ntentasd/colmena-telemetry/internal/logging"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addrs, err := cache.ResolveAddrs(ctx, cfg.Valkey.Addrs, cfg.Valkey.Service, bootstrap.ValkeyPort)
	if err != nil {
		logger.Fatal().Err(err).Msg("no valkey nodes")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       addrs,
		DialTimeout: 2 * time.Second,
	})

	writer := kafka.NewValkeyWriter(client, cfg.Source.CurrentPath, cfg.Source.HistoryPath, cfg.Relay.Retain)
	defer writer.Close()

	relay := kafka.NewRelay(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, writer, logger)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.Topic).
		Strs("valkey", addrs).
		Msg("relay starting")

	if err := relay.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("relay stopped")
	}
	logger.Info().Msg("relay stopped")
}
