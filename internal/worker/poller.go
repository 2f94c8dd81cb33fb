package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poller runs a task immediately and then on every tick until stopped.
type Poller struct {
	Name     string
	Interval time.Duration
	task     func(ctx context.Context) error
	logger   zerolog.Logger

	cancelCtx context.CancelFunc
	wg        sync.WaitGroup
}

// NewPoller creates a new background worker for periodic tasks.
func NewPoller(name string, interval time.Duration, task func(ctx context.Context) error, logger zerolog.Logger) *Poller {
	return &Poller{
		Name:     name,
		Interval: interval,
		task:     task,
		logger:   logger.With().Str("worker", name).Logger(),
	}
}

func (p *Poller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancelCtx = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		p.logger.Debug().Dur("interval", p.Interval).Msg("started")
		p.run(ctx)

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug().Msg("stopped")
				return
			case <-ticker.C:
				p.run(ctx)
			}
		}
	}()
}

func (p *Poller) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.task(ctx); err != nil && ctx.Err() == nil {
		p.logger.Debug().Err(err).Msg("task failed")
	}
}

// Stop stops the worker and waits for a running task to finish.
func (p *Poller) Stop() {
	if p.cancelCtx != nil {
		p.cancelCtx()
	}
	p.wg.Wait()
}
