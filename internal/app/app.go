// Package app assembles the GeoForce components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/activity"
	"github.com/tOgg1/geoforce/internal/config"
	"github.com/tOgg1/geoforce/internal/db"
	"github.com/tOgg1/geoforce/internal/events"
	"github.com/tOgg1/geoforce/internal/fleet"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/metrics"
	"github.com/tOgg1/geoforce/internal/models"
	"github.com/tOgg1/geoforce/internal/persist"
	"github.com/tOgg1/geoforce/internal/session"
	"github.com/tOgg1/geoforce/internal/store"
	"github.com/tOgg1/geoforce/internal/tasks"
	"github.com/tOgg1/geoforce/internal/telemetry"
)

// App holds one wired instance of every component.
type App struct {
	Config    *config.Config
	DB        *db.DB
	Publisher *events.InMemoryPublisher
	Store     *store.Store
	Bridge    *persist.Bridge
	Metrics   *metrics.Metrics
	Generator *telemetry.Generator
	Tasks     *tasks.Controller
	Fleet     *fleet.Service
	Sessions  *session.Manager
	Activity  *db.EventRepository

	logger zerolog.Logger
}

// Open opens the configured database and builds the app on top of it.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	dbCfg := db.DefaultConfig(cfg.DatabasePath())
	dbCfg.BusyTimeoutMs = cfg.Database.BusyTimeoutMs
	dbCfg.MaxConnections = cfg.Database.MaxConnections

	database, err := db.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return build(ctx, cfg, database)
}

// OpenInMemory builds the app over a private in-memory database.
func OpenInMemory(ctx context.Context, cfg *config.Config) (*App, error) {
	database, err := db.OpenInMemory()
	if err != nil {
		return nil, err
	}
	return build(ctx, cfg, database)
}

func build(ctx context.Context, cfg *config.Config, database *db.DB) (*App, error) {
	a := &App{
		Config:    cfg,
		DB:        database,
		Publisher: events.NewInMemoryPublisher(),
		Metrics:   metrics.New(),
		logger:    logging.Component("app"),
	}
	a.Store = store.New(store.WithPublisher(a.Publisher))

	kv := persist.NewSQLiteKV(db.NewKVRepository(database), cfg.Persistence.Namespace)
	a.Bridge = persist.NewBridge(kv, persist.Config{
		AgentsKey: cfg.Persistence.AgentsKey,
		TasksKey:  cfg.Persistence.TasksKey,
		SeedFile:  cfg.Persistence.SeedFile,
	}, persist.WithFailureObserver(a.Metrics))

	if err := a.Bridge.Restore(ctx, a.Store); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("restore state: %w", err)
	}
	if err := a.Bridge.Attach(a.Publisher, a.Store); err != nil {
		_ = database.Close()
		return nil, err
	}
	if err := a.Metrics.Attach(a.Publisher); err != nil {
		_ = database.Close()
		return nil, err
	}
	a.Activity = db.NewEventRepository(database)
	if cfg.Activity.Enabled {
		recorder := activity.NewRecorder(a.Activity, cfg.Activity.MaxEvents)
		if err := recorder.Attach(a.Publisher); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	a.Generator = telemetry.New(telemetry.Config{
		Interval:     cfg.Telemetry.Interval,
		MaxStep:      cfg.Telemetry.MaxStepDegrees,
		HistoryLimit: cfg.Telemetry.HistoryLimit,
	}, a.Store, telemetry.WithObserver(a.Metrics))

	a.Tasks = tasks.NewController(a.Store, tasks.Config{
		ReferencePoint: cfg.ReferencePoint(),
		Spread:         cfg.Tasks.SpreadDegrees,
	}, tasks.WithObserver(a.Metrics), tasks.WithProofRecorder(tasks.DirRecorder{
		Dir: filepath.Join(cfg.Global.DataDir, "proofs"),
	}))

	a.Fleet = fleet.NewService(a.Store, models.AgentReferencePoint, cfg.Telemetry.HistoryLimit)
	a.Sessions = session.NewManager(kv, session.Config{
		RoleKey: cfg.Session.RoleKey,
		UserKey: cfg.Session.UserKey,
	})

	a.logger.Debug().
		Str("db", database.Path()).
		Str("namespace", cfg.Persistence.Namespace).
		Int("agents", len(a.Store.ListAgents())).
		Int("tasks", len(a.Store.ListTasks())).
		Msg("app ready")
	return a, nil
}

// StartTelemetry starts the generator when enabled in config.
func (a *App) StartTelemetry(ctx context.Context) error {
	if !a.Config.Telemetry.Enabled {
		return nil
	}
	err := a.Generator.Start(ctx)
	if errors.Is(err, telemetry.ErrGeneratorAlreadyRunning) {
		return nil
	}
	return err
}

// Close stops the generator and releases the database.
func (a *App) Close() error {
	a.Generator.Stop()
	a.Publisher.Close()
	return a.DB.Close()
}
