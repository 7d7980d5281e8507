// Package telemetry moves active agents on a timer, standing in for real GPS feeds.
package telemetry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/store"
)

// ErrGeneratorAlreadyRunning is returned by Start when the loop is active.
var ErrGeneratorAlreadyRunning = errors.New("telemetry generator already running")

// Config contains configuration for the generator.
type Config struct {
	// Interval is the time between ticks.
	// Default: 5s
	Interval time.Duration

	// MaxStep is the largest per-axis move in degrees.
	// Default: 0.001
	MaxStep float64

	// HistoryLimit bounds each agent's route history.
	// Default: 50
	HistoryLimit int
}

// DefaultConfig returns the simulation defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Second,
		MaxStep:      0.001,
		HistoryLimit: models.DefaultRouteHistoryLimit,
	}
}

// Observer is notified after each tick.
type Observer interface {
	ObserveTick(moved int)
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the source of uniform values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(g *Generator) {
		g.rand = fn
	}
}

// WithObserver reports tick results.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		g.observer = o
	}
}

// Generator applies a bounded random walk to every agent that is not
// offline and already has a position.
type Generator struct {
	config   Config
	store    *store.Store
	rand     func() float64
	observer Observer
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Generator over st.
func New(config Config, st *store.Store, opts ...Option) *Generator {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxStep <= 0 {
		config.MaxStep = defaults.MaxStep
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaults.HistoryLimit
	}

	g := &Generator{
		config: config,
		store:  st,
		rand:   rand.Float64,
		logger: logging.Component("telemetry"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Tick moves every eligible agent once, in a single store operation. It
// returns the number of agents moved.
func (g *Generator) Tick(ctx context.Context) int {
	moved := 0
	_ = g.store.Update(ctx, func(tx *store.Tx) error {
		now := tx.Now()
		moved = tx.EachAgent(func(a *models.Agent) bool {
			if a.Status == models.AgentStatusOffline || a.LastLocation == nil {
				return false
			}
			a.AppendLocation(models.Location{
				Lat:       a.LastLocation.Lat + g.offset(),
				Lng:       a.LastLocation.Lng + g.offset(),
				Timestamp: now,
			}, g.config.HistoryLimit)
			return true
		})
		return nil
	})

	if g.observer != nil {
		g.observer.ObserveTick(moved)
	}
	g.logger.Debug().Int("moved", moved).Msg("telemetry tick")
	return moved
}

func (g *Generator) offset() float64 {
	return (g.rand() - 0.5) * 2 * g.config.MaxStep
}

// Start begins the tick loop. It never starts a second loop.
func (g *Generator) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return ErrGeneratorAlreadyRunning
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.running = true

	g.logger.Info().
		Dur("interval", g.config.Interval).
		Float64("max_step", g.config.MaxStep).
		Int("history_limit", g.config.HistoryLimit).
		Msg("telemetry generator starting")

	g.wg.Add(1)
	go g.runLoop(g.ctx)

	return nil
}

// Stop halts the tick loop and waits for it to exit. No tick fires after
// Stop returns. Calling Stop on a stopped generator does nothing.
func (g *Generator) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.cancel()
	g.running = false
	g.mu.Unlock()

	g.wg.Wait()
	g.logger.Info().Msg("telemetry generator stopped")
}

// IsRunning returns true if the loop is active.
func (g *Generator) IsRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

func (g *Generator) runLoop(ctx context.Context) {
	defer g.wg.Done()

	ticker := time.NewTicker(g.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			g.Tick(ctx)
		}
	}
}
