package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/posture-monitor/internal/service/checker"
)

var (
	// pollInterval between health checks.
	pollInterval time.Duration
	// checkTimeout bounds each health call.
	checkTimeout time.Duration
	// watch keeps polling instead of checking once.
	watch bool

	// checkCmd queries the health endpoint of a running monitor.
	checkCmd = &cobra.Command{
		Use:   "check [health-address]",
		Short: "Check whether a running monitor is processing frames.",
		Long: `Queries the gRPC health endpoint of a running posture-monitor.

Without --watch the command checks once and exits with a non-zero status unless
the monitor reports SERVING. With --watch it polls and logs status changes.
The address can be provided as argument or loaded from the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use address argument if provided, otherwise rely on config.
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			return checker.Run(ctx, &checker.Options{
				ConfigPath:   configPath,
				Address:      address,
				PollInterval: pollInterval,
				Timeout:      checkTimeout,
				Once:         !watch,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	checkCmd.Flags().DurationVarP(&pollInterval, "interval", "i", checker.DefaultPollInterval, "polling interval with --watch")
	checkCmd.Flags().DurationVarP(&checkTimeout, "timeout", "t", 0, "timeout of a single check")
	checkCmd.Flags().BoolVar(&watch, "watch", false, "keep polling until interrupted")
}
