package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// GEOFORCE_TELEMETRY_INTERVAL=2s.
const EnvPrefix = "GEOFORCE"

// Loader resolves a Config from, lowest precedence first: defaults, the
// config file, GEOFORCE_* environment variables, and Set overrides.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a loader that searches the default config locations.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// SetConfigFile pins the config file. A pinned file that cannot be read
// fails Load; a missing file in the search path does not.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Set overrides key above every other source. The CLI routes flags here.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// ConfigFileUsed returns the file Load read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load resolves, expands and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.configure(cfg)

	if err := l.readConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from path.
func LoadFromFile(path string) (*Config, error) {
	l := NewLoader()
	l.SetConfigFile(path)
	return l.Load()
}

// LoadDefault loads configuration from the default search paths.
func LoadDefault() (*Config, error) {
	return NewLoader().Load()
}

func (l *Loader) configure(cfg *Config) {
	v := l.v
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range searchPaths() {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal only sees env values for nested keys that are bound, so
	// every key gets a default and an explicit binding.
	for _, s := range settings(cfg) {
		v.SetDefault(s.key, s.value)
		_ = v.BindEnv(s.key, envName(s.key))
	}
	v.AutomaticEnv()
}

func (l *Loader) readConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}
	err := l.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "geoforce"))
	}
	if home, _ := os.UserHomeDir(); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "geoforce"))
	}
	return append(dirs, ".")
}

// envName maps telemetry.max_step_degrees to GEOFORCE_TELEMETRY_MAX_STEP_DEGREES.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

type setting struct {
	key   string
	value any
}

// settings lists every configurable key with its default.
func settings(cfg *Config) []setting {
	return []setting{
		{"global.data_dir", cfg.Global.DataDir},
		{"global.config_dir", cfg.Global.ConfigDir},

		{"database.path", cfg.Database.Path},
		{"database.max_connections", cfg.Database.MaxConnections},
		{"database.busy_timeout_ms", cfg.Database.BusyTimeoutMs},

		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"logging.file", cfg.Logging.File},
		{"logging.enable_caller", cfg.Logging.EnableCaller},

		{"telemetry.enabled", cfg.Telemetry.Enabled},
		{"telemetry.interval", cfg.Telemetry.Interval},
		{"telemetry.max_step_degrees", cfg.Telemetry.MaxStepDegrees},
		{"telemetry.history_limit", cfg.Telemetry.HistoryLimit},

		{"tasks.reference_lat", cfg.Tasks.ReferenceLat},
		{"tasks.reference_lng", cfg.Tasks.ReferenceLng},
		{"tasks.spread_degrees", cfg.Tasks.SpreadDegrees},

		{"persistence.namespace", cfg.Persistence.Namespace},
		{"persistence.agents_key", cfg.Persistence.AgentsKey},
		{"persistence.tasks_key", cfg.Persistence.TasksKey},
		{"persistence.seed_file", cfg.Persistence.SeedFile},

		{"session.role_key", cfg.Session.RoleKey},
		{"session.user_key", cfg.Session.UserKey},

		{"activity.enabled", cfg.Activity.Enabled},
		{"activity.max_events", cfg.Activity.MaxEvents},

		{"tui.refresh_interval", cfg.TUI.RefreshInterval},

		{"metrics.addr", cfg.Metrics.Addr},
	}
}

func expandPaths(cfg *Config) {
	for _, p := range []*string{
		&cfg.Global.DataDir,
		&cfg.Global.ConfigDir,
		&cfg.Database.Path,
		&cfg.Logging.File,
		&cfg.Persistence.SeedFile,
	} {
		*p = expandTilde(*p)
	}
}

func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
