package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/posture-monitor/internal/logger"
	"github.com/oshokin/posture-monitor/internal/service/monitor"
)

var (
	// configPath to the configuration YAML file. Empty means the default file, if present.
	configPath string
	// sourcePath overrides the keypoint source with a JSON Lines file.
	sourcePath string
	// webhookURL overrides the notification sink.
	webhookURL string
	// eventLogPath overrides the CSV event log location.
	eventLogPath string
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for monitoring a keypoint stream.
	rootCmd = &cobra.Command{
		Use:   "posture-monitor",
		Short: "Detect posture issues in a stream of pose keypoints.",
		Long: `Reads per-frame pose keypoints and raises an issue when the hips drift away
from the shoulders or an elbow stays overextended for several consecutive frames.

Every issue is written to a CSV event log and, when a webhook is configured,
posted to it at most once per debounce window per issue. Each issue fires once
per session unless re-arming is enabled in the configuration.

Frames are read as JSON Lines from a file or stdin, or from an MQTT topic.
Settings are loaded from the configuration file; flags override it.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			defer logger.Sync()

			options := &monitor.Options{
				ConfigPath:   configPath,
				SourcePath:   sourcePath,
				WebhookURL:   webhookURL,
				EventLogPath: eventLogPath,
				LogLevel:     logLevel,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the posture-monitor CLI and exits with non-zero status on error.
func Execute() {
	rootCmd.AddCommand(checkCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.Flags().StringVarP(&sourcePath, "source", "s", "", `JSON Lines file with frames, "-" for stdin`)
	rootCmd.Flags().StringVarP(&webhookURL, "webhook-url", "w", "", "URL receiving issue notifications")
	rootCmd.Flags().StringVarP(&eventLogPath, "log-file", "l", "", "path to the CSV event log")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
