// Command monitor renders the hive dashboard in the terminal. It either runs
// its own ingestion against the configured source or follows the state an
// API instance mirrors into the cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ntentasd/colmena-telemetry/internal/bootstrap"
	"github.com/ntentasd/colmena-telemetry/internal/cache"
	"github.com/ntentasd/colmena-telemetry/internal/config"
	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/internal/logging"
	"github.com/ntentasd/colmena-telemetry/internal/monitor"
	"github.com/ntentasd/colmena-telemetry/internal/worker"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file")
		fromCache  = flag.Bool("from-cache", false, "follow the state mirrored in the cache")
		interval   = flag.Duration("interval", time.Second, "cache poll interval with -from-cache")
		logPath    = flag.String("log", "", "write logs to this file")
	)
	flag.Parse()

	if err := run(*configPath, *fromCache, *interval, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, fromCache bool, interval time.Duration, logPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI.
	var w io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		w = f
	}
	logger := logging.New(w, cfg.Log.Level, false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		states <-chan types.DashboardState
		label  string
	)

	if fromCache {
		c, err := bootstrap.OpenCache(ctx, cfg)
		if err != nil {
			return err
		}
		if c == nil {
			return errors.New("-from-cache needs cache.driver to be set")
		}
		defer c.Close()

		ch := make(chan types.DashboardState, 1)
		p := worker.NewPoller("monitor-cache", interval, func(ctx context.Context) error {
			st, err := cache.Load(ctx, c, cfg.Cache.Key)
			if err != nil {
				if errors.Is(err, cache.ErrCacheMiss) {
					return nil
				}
				return err
			}
			select {
			case ch <- st:
			case <-ctx.Done():
			}
			return nil
		}, logger)
		p.Start(ctx)
		defer p.Stop()

		states = ch
		label = fmt.Sprintf("%s cache %s", cfg.Cache.Driver, cfg.Cache.Key)
	} else {
		src, err := bootstrap.OpenSource(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer src.Close()

		opts, err := bootstrap.DashboardOptions(cfg)
		if err != nil {
			return err
		}
		dash := dashboard.New(src, opts, logger)
		if err := dash.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("dashboard started without every subscription")
		}
		defer dash.Stop()

		states = dash.Store().Watch(ctx)
		label = cfg.Source.Kind + " " + opts.CurrentPath
	}

	prog := tea.NewProgram(monitor.New(states, label), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	logger.Info().Msg("monitor closed")
	return nil
}
