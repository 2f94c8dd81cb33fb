package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ntentasd/colmena-telemetry/pkg/types"
	"github.com/rs/zerolog"
)

// Mirror copies every dashboard state it is handed into a cache key so other
// processes can read it without opening their own subscriptions.
type Mirror struct {
	cache  Cache
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewMirror(c Cache, key string, ttl time.Duration, logger zerolog.Logger) *Mirror {
	return &Mirror{
		cache:  c,
		key:    key,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache-mirror").Str("key", key).Logger(),
	}
}

// Run stores each state received on states until the channel closes or ctx
// ends. Write failures are logged and the next state is tried.
func (m *Mirror) Run(ctx context.Context, states <-chan types.DashboardState) {
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				m.logger.Debug().Msg("state stream closed")
				return
			}
			if err := m.cache.StoreState(ctx, m.key, st, m.ttl); err != nil {
				m.logger.Warn().Err(err).Msg("failed to mirror dashboard state")
				continue
			}
			m.logger.Debug().
				Int("history", len(st.History)).
				Str("status", st.Status.String()).
				Msg("state mirrored")
		}
	}
}

// Load reads the mirrored state at key.
func Load(ctx context.Context, c Cache, key string) (types.DashboardState, error) {
	b, err := c.FetchState(ctx, key)
	if err != nil {
		return types.DashboardState{}, err
	}

	var st types.DashboardState
	if err := json.Unmarshal(b, &st); err != nil {
		return types.DashboardState{}, fmt.Errorf("failed to decode mirrored state: %w", err)
	}
	if st.History == nil {
		st.History = []types.HistoricSample{}
	}
	return st, nil
}
