package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/evaluator"
	"github.com/oshokin/posture-monitor/internal/logger"
	"github.com/oshokin/posture-monitor/internal/notifier"
	"github.com/oshokin/posture-monitor/internal/repository/eventlog"
	"github.com/oshokin/posture-monitor/internal/service/common"
	"github.com/oshokin/posture-monitor/internal/source"
	"github.com/oshokin/posture-monitor/internal/tracker"
	"github.com/oshokin/posture-monitor/internal/version"
)

// Options controls the posture-monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// SourcePath overrides the source with a JSON Lines file ("-" for stdin).
	SourcePath string
	// WebhookURL overrides the notification sink address.
	WebhookURL string
	// EventLogPath overrides the CSV event log location.
	EventLogPath string
	// LogLevel overrides the configured log level.
	LogLevel string
}

// Run monitors one keypoint stream until it ends or the context is canceled.
// Queued notifications are delivered before Run returns.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "posture-monitor")

	settings, err := loadSettings(opts)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLogLevel(settings.LogLevel)
	logger.SetLevel(level)

	sessionID := uuid.NewString()
	ctx = logger.WithKV(ctx, "session_id", sessionID)

	logSessionStart(ctx, settings)

	sessionOpts, err := sessionOptions(settings)
	if err != nil {
		return err
	}

	// Event log failures at open time end the session.
	events, err := eventlog.Open(settings.EventLogPath, settings.EventLogAppend)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := events.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Unable to close event log", "error", closeErr)
		}
	}()

	src, err := source.Open(ctx, settings.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Unable to close source", "error", closeErr)
		}
	}()

	sender, err := newSender(ctx, settings, sessionID)
	if err != nil {
		return fmt.Errorf("create webhook sender: %w", err)
	}

	if sender != nil {
		// Deliveries outlive the frame loop so queued notifications drain on shutdown.
		senderCtx, stopSender := context.WithCancel(context.WithoutCancel(ctx))
		sender.Start(senderCtx)

		defer func() {
			stopSender()
			sender.Close()
		}()
	} else {
		logger.Info(ctx, "No notification sink configured, issues are only logged")
	}

	eps, err := startEndpoints(ctx, settings)
	if err != nil {
		return err
	}

	defer eps.stop()

	dispatcher := notifier.NewDispatcher(
		logger.FromContext(ctx),
		notifier.DispatcherOptions{Debounce: settings.Debounce()},
		sender,
	)
	session := NewSession(sessionOpts, dispatcher, events)

	eps.setServing(true)
	err = consume(ctx, src, session)
	eps.setServing(false)

	stats := session.Stats()
	logger.InfoKV(ctx, "Session finished",
		"frames", stats.Frames,
		"missing_frames", stats.Missing,
		"events", stats.Events,
		"notified", stats.Notified,
		"dropped", stats.Dropped,
		"event_log", events.Path(),
	)

	return err
}

// consume feeds frames to the session until the stream ends.
// Cancellation ends the session normally; other source errors are returned.
func consume(ctx context.Context, src source.Source, session *Session) error {
	for {
		frame, err := src.Next(ctx)

		switch {
		case err == nil:
			session.ProcessFrame(ctx, frame)
		case errors.Is(err, io.EOF):
			logger.Info(ctx, "End of keypoint stream")
			return nil
		case ctx.Err() != nil:
			logger.Info(ctx, "Monitoring interrupted")
			return nil
		default:
			return fmt.Errorf("read frame: %w", err)
		}
	}
}

// loadSettings reads the config file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	settings, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.SourcePath != "" {
		settings.Source.Type = config.SourceJSONL
		settings.Source.Path = opts.SourcePath
	}

	if opts.WebhookURL != "" {
		settings.NotificationSinkAddress = opts.WebhookURL
	}

	if opts.EventLogPath != "" {
		settings.EventLogPath = opts.EventLogPath
	}

	if opts.LogLevel != "" {
		settings.LogLevel = opts.LogLevel
	}

	if err = config.Validate(settings); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return settings, nil
}

func sessionOptions(settings *config.Config) (SessionOptions, error) {
	policy, err := tracker.ParseMissingPolicy(settings.MissingFramePolicy)
	if err != nil {
		return SessionOptions{}, err
	}

	return SessionOptions{
		Thresholds: evaluator.Thresholds{
			ElbowExtend: settings.ElbowExtendThreshold,
			TorsoAngle:  settings.TorsoAngleThreshold,
			HipDX:       settings.HipDXThreshold,
		},
		Tracker: tracker.Options{
			SmoothingFrames: settings.SmoothingFrames,
			RearmAfter:      settings.RearmAfterFrames,
			MissingPolicy:   policy,
		},
	}, nil
}

// newSender returns a nil Sender when no sink is configured.
func newSender(ctx context.Context, settings *config.Config, sessionID string) (notifier.Sender, error) {
	if settings.NotificationSinkAddress == "" {
		return nil, nil //nolint:nilnil // No sink is a valid configuration.
	}

	sender, err := notifier.NewWebhookSender(logger.FromContext(ctx), notifier.WebhookSenderConfig{
		URL:           settings.NotificationSinkAddress,
		Timeout:       settings.WebhookTimeout,
		QueueSize:     settings.WebhookQueueSize,
		RatePerMinute: settings.WebhookRatePerMinute,
		SessionID:     sessionID,
		UserAgent:     version.UserAgent(),
	})
	if err != nil {
		return nil, err
	}

	return sender, nil
}

func logSessionStart(ctx context.Context, settings *config.Config) {
	kvs := []any{
		"version", version.Short(),
		"source", settings.Source.Type,
		"smoothing_frames", settings.SmoothingFrames,
		"debounce", settings.Debounce().String(),
		"sink", notifier.RedactURL(settings.NotificationSinkAddress),
	}

	if actor, err := common.DetectActor(); err == nil {
		kvs = append(kvs, "hostname", actor.Hostname, "username", actor.Username)
	}

	logger.InfoKV(ctx, "Session started", kvs...)

	pids, err := common.OtherInstances(common.CurrentExecutable())
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	if len(pids) > 0 {
		logger.WarnKV(ctx, "Other monitor instances are running; make sure they use a different event log",
			"pids", pids,
			"event_log", settings.EventLogPath,
		)
	}
}
