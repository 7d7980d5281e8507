// Package cli implements the geoforce command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/config"
	"github.com/tOgg1/geoforce/internal/logging"
)

// Version information, set by main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	dataDir    string
	jsonOutput bool
	noColor    bool

	appConfig *config.Config
	logFile   *os.File
)

var rootCmd = &cobra.Command{
	Use:           "geoforce",
	Short:         "Field agent tracking and task dispatch",
	Long:          "GeoForce tracks field agents on a live map and dispatches location-bound tasks to them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
			logFile = nil
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/geoforce/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "override logging format (json, console)")
	flags.StringVar(&dataDir, "data-dir", "", "override the data directory")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&noColor, "no-color", false, "disable coloured output")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
	return rootCmd.Execute()
}

func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	// CLI flags sit on top of file and env.
	if logLevel != "" {
		loader.Set("logging.level", logLevel)
	}
	if logFormat != "" {
		loader.Set("logging.format", logFormat)
	}
	if dataDir != "" {
		loader.Set("global.data_dir", dataDir)
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	appConfig = cfg

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	if cfg.Logging.File != "" {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return err
		}
		logFile = f
		logCfg.Output = f
		logCfg.Format = "json"
	}
	logging.Init(logCfg)

	if used := loader.ConfigFileUsed(); used != "" {
		logger := logging.Component("cli")
		logger.Debug().Str("config_file", used).Msg("loaded config file")
	}
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

func openApp(ctx context.Context) (*app.App, error) {
	if appConfig == nil {
		if err := initConfig(); err != nil {
			return nil, err
		}
	}
	return app.Open(ctx, appConfig)
}

// withApp opens the app, runs fn and closes the app.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
