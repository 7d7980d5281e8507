// Package config handles GeoForce configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
)

// Config is the root configuration structure for GeoForce.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Telemetry simulation settings
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	// Task creation settings
	Tasks TasksConfig `yaml:"tasks" mapstructure:"tasks"`

	// Persistence key layout
	Persistence PersistenceConfig `yaml:"persistence" mapstructure:"persistence"`

	// Session keys
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Activity log retention
	Activity ActivityConfig `yaml:"activity" mapstructure:"activity"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`

	// Metrics endpoint
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// GlobalConfig contains global GeoForce settings.
type GlobalConfig struct {
	// DataDir is where GeoForce stores its data (default: ~/.local/share/geoforce).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/geoforce).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TelemetryConfig controls the simulated position generator.
type TelemetryConfig struct {
	// Enabled starts the generator with long-running commands.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Interval is the time between ticks.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// MaxStepDegrees bounds each per-axis move.
	MaxStepDegrees float64 `yaml:"max_step_degrees" mapstructure:"max_step_degrees"`

	// HistoryLimit caps each agent's route history.
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// TasksConfig controls task placement.
type TasksConfig struct {
	ReferenceLat  float64 `yaml:"reference_lat" mapstructure:"reference_lat"`
	ReferenceLng  float64 `yaml:"reference_lng" mapstructure:"reference_lng"`
	SpreadDegrees float64 `yaml:"spread_degrees" mapstructure:"spread_degrees"`
}

// PersistenceConfig names where the collections are stored.
type PersistenceConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	AgentsKey string `yaml:"agents_key" mapstructure:"agents_key"`
	TasksKey  string `yaml:"tasks_key" mapstructure:"tasks_key"`

	// SeedFile is a JSON or YAML file replacing the built-in seed.
	SeedFile string `yaml:"seed_file" mapstructure:"seed_file"`
}

// SessionConfig names the session keys.
type SessionConfig struct {
	RoleKey string `yaml:"role_key" mapstructure:"role_key"`
	UserKey string `yaml:"user_key" mapstructure:"user_key"`
}

// ActivityConfig controls the persisted activity log.
type ActivityConfig struct {
	// Enabled records agent and task lifecycle events.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// MaxEvents is how many events are retained; older ones are pruned.
	MaxEvents int `yaml:"max_events" mapstructure:"max_events"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// RefreshInterval is how often to refresh the display.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "geoforce"),
			ConfigDir: filepath.Join(homeDir, ".config", "geoforce"),
		},
		Database: DatabaseConfig{
			Path:           "", // Will be set to DataDir/geoforce.db
			MaxConnections: 10,
			BusyTimeoutMs:  5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Enabled:        true,
			Interval:       5 * time.Second,
			MaxStepDegrees: 0.001,
			HistoryLimit:   models.DefaultRouteHistoryLimit,
		},
		Tasks: TasksConfig{
			ReferenceLat:  models.TaskReferencePoint.Lat,
			ReferenceLng:  models.TaskReferencePoint.Lng,
			SpreadDegrees: 0.05,
		},
		Persistence: PersistenceConfig{
			Namespace: "default",
			AgentsKey: "gf_agents",
			TasksKey:  "gf_tasks",
		},
		Session: SessionConfig{
			RoleKey: "userRole",
			UserKey: "userData",
		},
		Activity: ActivityConfig{
			Enabled:   true,
			MaxEvents: 1000,
		},
		TUI: TUIConfig{
			RefreshInterval: 500 * time.Millisecond,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database.max_connections must be at least 1")
	}

	if c.Telemetry.Interval < 100*time.Millisecond {
		return fmt.Errorf("telemetry.interval must be at least 100ms")
	}
	if c.Telemetry.MaxStepDegrees <= 0 {
		return fmt.Errorf("telemetry.max_step_degrees must be positive")
	}
	if c.Telemetry.HistoryLimit < 1 {
		return fmt.Errorf("telemetry.history_limit must be at least 1")
	}

	if c.Tasks.SpreadDegrees < 0 {
		return fmt.Errorf("tasks.spread_degrees must not be negative")
	}
	if c.Tasks.ReferenceLat < -90 || c.Tasks.ReferenceLat > 90 {
		return fmt.Errorf("tasks.reference_lat must be within [-90, 90]")
	}
	if c.Tasks.ReferenceLng < -180 || c.Tasks.ReferenceLng > 180 {
		return fmt.Errorf("tasks.reference_lng must be within [-180, 180]")
	}

	if c.Persistence.Namespace == "" {
		return fmt.Errorf("persistence.namespace is required")
	}
	if c.Persistence.AgentsKey == "" || c.Persistence.TasksKey == "" {
		return fmt.Errorf("persistence.agents_key and persistence.tasks_key are required")
	}
	if c.Persistence.AgentsKey == c.Persistence.TasksKey {
		return fmt.Errorf("persistence.agents_key and persistence.tasks_key must differ")
	}

	if c.Session.RoleKey == "" || c.Session.UserKey == "" {
		return fmt.Errorf("session.role_key and session.user_key are required")
	}
	if c.Session.RoleKey == c.Session.UserKey {
		return fmt.Errorf("session.role_key and session.user_key must differ")
	}

	if c.Activity.MaxEvents < 1 {
		return fmt.Errorf("activity.max_events must be at least 1")
	}

	if c.TUI.RefreshInterval < 50*time.Millisecond {
		return fmt.Errorf("tui.refresh_interval must be at least 50ms")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "geoforce.db")
}

// ReferencePoint returns the task reference point.
func (c *Config) ReferencePoint() models.Coordinates {
	return models.Coordinates{Lat: c.Tasks.ReferenceLat, Lng: c.Tasks.ReferenceLng}
}
