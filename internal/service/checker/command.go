package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/posture-monitor/internal/api/grpc/health"
	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/logger"
	"github.com/oshokin/posture-monitor/internal/service/common"
)

// Options controls the checker polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Address overrides the configured health address.
	Address string
	// PollInterval defines the interval between checks.
	PollInterval time.Duration
	// Timeout specifies the per-RPC timeout duration.
	Timeout time.Duration
	// Once performs a single check and reports a non-serving monitor as an error.
	Once bool
}

// DefaultPollInterval defines the polling interval when none is set.
const DefaultPollInterval = 5 * time.Second

var (
	// ErrNotServing is returned by a single check when the monitor is not processing frames.
	ErrNotServing = errors.New("monitor is not serving")
	// errNoHealthAddress indicates that neither the flags nor the config name a health endpoint.
	errNoHealthAddress = errors.New("no health address configured")
)

// Run checks the monitor health once, or polls it until the context is canceled.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "posture-checker")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	// Command line argument overrides config.
	address := cfg.HealthAddress
	if opts.Address != "" {
		address = opts.Address
	}

	if address == "" {
		return errNoHealthAddress
	}

	client, err := common.Dial(ctx, address, common.WithCallTimeout(opts.Timeout))
	if err != nil {
		return fmt.Errorf("dial monitor: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	if opts.Once {
		return checkOnce(ctx, client)
	}

	logger.InfoKV(ctx, "Polling monitor health", "address", address, "interval", opts.PollInterval.String())

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_SERVICE_UNKNOWN

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
			status, err := client.Check(ctx, health.ServiceName)
			if err != nil {
				logger.ErrorKV(ctx, "Health check failed", "error", err)
				continue
			}

			if status != last {
				logger.InfoKV(ctx, "Monitor status changed", "status", status.String())
				last = status
			}
		}
	}
}

// checkOnce returns ErrNotServing unless the monitor reports SERVING.
func checkOnce(ctx context.Context, client *common.Client) error {
	status, err := client.Check(ctx, health.ServiceName)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Monitor status", "status", status.String())

	if status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: %s", ErrNotServing, status)
	}

	return nil
}
