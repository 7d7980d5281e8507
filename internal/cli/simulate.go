package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tOgg1/geoforce/internal/app"
	"github.com/tOgg1/geoforce/internal/logging"
)

var (
	simulateTicks int
	runMetrics    string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runCmd)

	simulateCmd.Flags().IntVar(&simulateTicks, "ticks", 1, "number of ticks to apply")
	runCmd.Flags().StringVar(&runMetrics, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Apply telemetry ticks immediately",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateTicks < 1 {
			return fmt.Errorf("--ticks must be at least 1")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			moved := 0
			for i := 0; i < simulateTicks; i++ {
				moved += a.Generator.Tick(ctx)
			}
			if IsJSONOutput() {
				return WriteJSON(cmd.OutOrStdout(), map[string]int{"ticks": simulateTicks, "moves": moved})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d tick(s), %d agent move(s)\n", simulateTicks, moved)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the telemetry simulation until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		logger := logging.Component("run")

		addr := a.Config.Metrics.Addr
		if runMetrics != "" {
			addr = runMetrics
		}
		if addr != "" {
			srv := &http.Server{Addr: addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			logger.Info().Str("addr", addr).Msg("serving metrics")
		}

		a.Config.Telemetry.Enabled = true
		if err := a.StartTelemetry(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Simulating %d agent(s) every %s, Ctrl+C to stop\n", len(a.Store.ListAgents()), a.Config.Telemetry.Interval)

		<-ctx.Done()
		a.Generator.Stop()
		fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
		return nil
	},
}

func metricsMux(a *app.App) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	return mux
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
