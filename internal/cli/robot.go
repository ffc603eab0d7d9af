package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pastibot/companion/internal/bootstrap"
	"github.com/pastibot/companion/internal/domain/robot"
	"github.com/spf13/cobra"
)

// NewWatchRobotCmd creates the "watch-robot" subcommand.
func NewWatchRobotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch-robot",
		Short: "Follow dispenser status and task events",
		Long: "Follow dispenser status and task events until interrupted. " +
			"Serves Prometheus metrics when OBSERVABILITY_METRICS_ENABLED is set.",
		Args: cobra.NoArgs,
		RunE: runWatchRobot,
	}
	cmd.Flags().Bool("once", false, "Print the current status and exit")
	cmd.Flags().Duration("for", 0, "Stop after this long (0 runs until interrupted)")
	return cmd
}

func runWatchRobot(cmd *cobra.Command, _ []string) error {
	once, _ := cmd.Flags().GetBool("once")
	limit, _ := cmd.Flags().GetDuration("for")
	return withApp(cmd, func(app *bootstrap.App) error {
		if app.Session.Snapshot().IsAnonymous() {
			return exitError(ExitUnauthorized, "watch robot: not signed in")
		}
		if app.Robot == nil {
			return exitError(ExitInvalidInput, "watch robot: realtime URL is not configured (REALTIME_URL)")
		}
		out := cmd.OutOrStdout()

		if once {
			if err := app.Robot.Refresh(cmd.Context()); err != nil {
				return fromAppError("robot status", err)
			}
			printRobot(out, app.Robot.State())
			return nil
		}

		ctx := cmd.Context()
		if limit > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, limit)
			defer cancel()
		}

		if metricsCfg := app.Config.Observability.Metrics; metricsCfg.IsEnabled() {
			srv := bootstrap.StartMetricsServer(bootstrap.MetricsServerConfig{
				Addr:     metricsCfg.Addr,
				Gatherer: app.Registry,
				Logger:   app.Logger,
			})
			defer func() {
				if err := bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
					Context: context.WithoutCancel(ctx),
					Server:  srv,
					Logger:  app.Logger,
				}); err != nil {
					app.Logger.Warn("metrics server shutdown", "error", err)
				}
			}()
		}

		unsubscribe := app.Robot.Subscribe(func(s robot.State) { printRobot(out, s) })
		defer unsubscribe()

		err := app.Robot.Run(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return fromAppError("watch robot", err)
	})
}

func printRobot(w io.Writer, s robot.State) {
	line := fmt.Sprintf("%s robot=%s dispensing=%t", time.Now().Format(time.TimeOnly), s.Status, s.Dispensing)
	if s.LastTask != nil {
		line += fmt.Sprintf(" task=%d:%s", s.LastTask.TaskID, s.LastTask.Status)
	}
	fmt.Fprintln(w, line)
}
