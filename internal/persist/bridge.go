// Package persist mirrors the store to a durable key-value boundary and
// restores it at start.
package persist

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/store"
)

// Defaults for the persisted layout.
const (
	DefaultNamespace = "default"
	DefaultAgentsKey = "gf_agents"
	DefaultTasksKey  = "gf_tasks"
)

// Config names the keys the bridge reads and writes.
type Config struct {
	AgentsKey string
	TasksKey  string

	// SeedFile replaces the built-in seed when set.
	SeedFile string
}

// DefaultConfig returns the default keys.
func DefaultConfig() Config {
	return Config{
		AgentsKey: DefaultAgentsKey,
		TasksKey:  DefaultTasksKey,
	}
}

// FailureObserver is told about every degrading failure.
type FailureObserver interface {
	ObservePersistenceFailure(op string)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithClock overrides time.Now for seed timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		b.now = now
	}
}

// WithFailureObserver reports failures.
func WithFailureObserver(o FailureObserver) Option {
	return func(b *Bridge) {
		b.observer = o
	}
}

// Bridge serialises the store to KV after every committed operation. Once a
// read or write fails it degrades to in-memory mode: it warns once and
// skips all further writes.
type Bridge struct {
	kv       KV
	config   Config
	now      func() time.Time
	observer FailureObserver
	logger   zerolog.Logger

	mu       sync.Mutex
	degraded bool
}

// NewBridge creates a Bridge over kv.
func NewBridge(kv KV, config Config, opts ...Option) *Bridge {
	if config.AgentsKey == "" {
		config.AgentsKey = DefaultAgentsKey
	}
	if config.TasksKey == "" {
		config.TasksKey = DefaultTasksKey
	}
	b := &Bridge{
		kv:     kv,
		config: config,
		now:    time.Now,
		logger: logging.Component("persist"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Degraded reports whether the bridge has fallen back to in-memory mode.
func (b *Bridge) Degraded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.degraded
}

// Load reads both collections. Each key that is absent or unparsable falls
// back to the seed independently. KV read failures degrade the bridge and
// are not returned; the only error is an unusable configured seed file.
func (b *Bridge) Load(ctx context.Context) ([]*models.Agent, []*models.Task, error) {
	seedAgents, seedTasks, err := b.seed()
	if err != nil {
		return nil, nil, err
	}

	agents := seedAgents
	if raw, ok := b.read(ctx, b.config.AgentsKey); ok {
		var decoded []*models.Agent
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			b.logger.Warn().Err(err).Str("key", b.config.AgentsKey).Msg("stored agents unparsable, using seed")
		} else {
			agents = normalizeAgents(decoded)
		}
	}

	tasks := seedTasks
	if raw, ok := b.read(ctx, b.config.TasksKey); ok {
		var decoded []*models.Task
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			b.logger.Warn().Err(err).Str("key", b.config.TasksKey).Msg("stored tasks unparsable, using seed")
		} else {
			tasks = decoded
		}
	}

	b.logger.Debug().Int("agents", len(agents)).Int("tasks", len(tasks)).Msg("state loaded")
	return agents, tasks, nil
}

// Restore loads state into st.
func (b *Bridge) Restore(ctx context.Context, st *store.Store) error {
	agents, tasks, err := b.Load(ctx)
	if err != nil {
		return err
	}
	st.Replace(ctx, agents, tasks)
	return nil
}

// Flush writes both collections in one batch. A write failure degrades the
// bridge and is returned once as a *models.PersistenceError; later calls
// are skipped and return nil.
func (b *Bridge) Flush(ctx context.Context, agents []*models.Agent, tasks []*models.Task) error {
	if b.Degraded() {
		return nil
	}

	if agents == nil {
		agents = []*models.Agent{}
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	agentsJSON, err := json.Marshal(agents)
	if err != nil {
		return &models.PersistenceError{Op: "encode", Key: b.config.AgentsKey, Err: err}
	}
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return &models.PersistenceError{Op: "encode", Key: b.config.TasksKey, Err: err}
	}

	values := map[string]string{
		b.config.AgentsKey: string(agentsJSON),
		b.config.TasksKey:  string(tasksJSON),
	}
	if batch, ok := b.kv.(BatchKV); ok {
		if err := batch.SetBatch(ctx, values); err != nil {
			return b.degrade("write", b.config.AgentsKey+","+b.config.TasksKey, err)
		}
		return nil
	}
	for _, key := range []string{b.config.AgentsKey, b.config.TasksKey} {
		if err := b.kv.Set(ctx, key, values[key]); err != nil {
			return b.degrade("write", key, err)
		}
	}
	return nil
}

// Attach flushes a fresh snapshot of st after every store.committed event.
func (b *Bridge) Attach(p events.Publisher, st *store.Store) error {
	return p.Subscribe("persist", events.Filter{
		EventTypes: []models.EventType{models.EventTypeStoreCommitted},
	}, func(ctx context.Context, _ *models.Event) {
		agents, tasks := st.Snapshot()
		if err := b.Flush(ctx, agents, tasks); err != nil {
			b.logger.Debug().Err(err).Msg("flush failed")
		}
	})
}

func (b *Bridge) read(ctx context.Context, key string) (string, bool) {
	if b.Degraded() {
		return "", false
	}
	raw, ok, err := b.kv.Get(ctx, key)
	if err != nil {
		_ = b.degrade("read", key, err)
		return "", false
	}
	return raw, ok
}

func (b *Bridge) degrade(op, key string, err error) error {
	perr := &models.PersistenceError{Op: op, Key: key, Err: err}

	b.mu.Lock()
	first := !b.degraded
	b.degraded = true
	b.mu.Unlock()

	if b.observer != nil {
		b.observer.ObservePersistenceFailure(op)
	}
	if first {
		b.logger.Warn().Err(err).Str("op", op).Str("key", key).Msg("persistence unavailable, continuing in memory")
	}
	return perr
}

func (b *Bridge) seed() ([]*models.Agent, []*models.Task, error) {
	now := b.now()
	if b.config.SeedFile == "" {
		return models.SeedAgents(now), models.SeedTasks(), nil
	}
	snap, err := LoadSeedFile(b.config.SeedFile, now)
	if err != nil {
		return nil, nil, err
	}
	return snap.Agents, snap.Tasks, nil
}

func normalizeAgents(agents []*models.Agent) []*models.Agent {
	for _, a := range agents {
		if a != nil && a.RouteHistory == nil {
			a.RouteHistory = []models.Location{}
		}
	}
	return agents
}
