package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/bootstrap"
	"github.com/ntentasd/colmena-telemetry/internal/cache"
	"github.com/ntentasd/colmena-telemetry/internal/config"
	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/internal/logging"
	routes "github.com/ntentasd/colmena-telemetry/internal/routes"
	"github.com/ntentasd/colmena-telemetry/internal/tracing"
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

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracer")
	}

	src, err := bootstrap.OpenSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("kind", cfg.Source.Kind).Msg("failed to open source")
	}

	opts, err := bootstrap.DashboardOptions(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid display location")
	}

	dash := dashboard.New(src, opts, logger)
	if err := dash.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("dashboard started without every subscription")
	}

	c, err := bootstrap.OpenCache(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Cache.Driver).Msg("failed to open cache")
	}
	if c != nil {
		mirror := cache.NewMirror(c, cfg.Cache.Key, cfg.Cache.TTL, logger)
		go mirror.Run(ctx, dash.Store().Watch(ctx))
	}

	app := routes.New(dash.Store(), c, logger)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           routes.NewMux(app, cfg.HTTP.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("source", cfg.Source.Kind).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Stopping the dashboard closes the store, which ends open streams.
	dash.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown")
	}
	if err := src.Close(); err != nil {
		logger.Warn().Err(err).Msg("source close")
	}
	if c != nil {
		c.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown")
	}
}
