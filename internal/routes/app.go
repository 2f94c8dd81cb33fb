package routes

import (
	"context"

	"github.com/ntentasd/colmena-telemetry/internal/cache"
	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

// StateReader is the read side of the dashboard state.
type StateReader interface {
	Snapshot() types.DashboardState
	Watch(ctx context.Context) <-chan types.DashboardState
}

type App struct {
	State StateReader
	// Cache is optional; when set, readiness includes it.
	Cache  cache.Cache
	logger zerolog.Logger
}

func New(state StateReader, cache cache.Cache, logger zerolog.Logger) *App {
	return &App{
		state,
		cache,
		logger.With().Str("component", "http").Logger(),
	}
}
