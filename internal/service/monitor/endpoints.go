package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/posture-monitor/internal/api/grpc/health"
	"github.com/oshokin/posture-monitor/internal/config"
	"github.com/oshokin/posture-monitor/internal/logger"
)

// shutdownTimeout bounds graceful shutdown of the metrics server.
const shutdownTimeout = 5 * time.Second

// endpoints runs the optional health and metrics listeners next to a session.
type endpoints struct {
	health *health.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// startEndpoints binds the configured listeners. Bind errors end the session before it starts.
func startEndpoints(ctx context.Context, settings *config.Config) (*endpoints, error) {
	epCtx, cancel := context.WithCancel(ctx)
	e := &endpoints{cancel: cancel}

	if settings.HealthAddress != "" {
		lis, err := health.Listen(epCtx, settings.HealthAddress)
		if err != nil {
			e.stop()
			return nil, fmt.Errorf("start health server: %w", err)
		}

		e.health = health.NewServer()
		e.run(epCtx, func() error { return e.health.Serve(epCtx, lis) }, "Health server failed")
	}

	if settings.MetricsAddress != "" {
		lc := net.ListenConfig{}

		lis, err := lc.Listen(epCtx, "tcp", settings.MetricsAddress)
		if err != nil {
			e.stop()
			return nil, fmt.Errorf("start metrics server: listen on %s: %w", settings.MetricsAddress, err)
		}

		e.run(epCtx, func() error { return serveMetrics(epCtx, lis) }, "Metrics server failed")
	}

	return e, nil
}

// setServing reports the session state through the health service, if enabled.
func (e *endpoints) setServing(serving bool) {
	if e.health != nil {
		e.health.SetServing(serving)
	}
}

// stop shuts the listeners down and waits for them.
func (e *endpoints) stop() {
	e.cancel()
	e.wg.Wait()
}

func (e *endpoints) run(ctx context.Context, serve func() error, failure string) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if err := serve(); err != nil {
			logger.ErrorKV(ctx, failure, "error", err)
		}
	}()
}

// serveMetrics exposes Prometheus metrics on /metrics until ctx is canceled.
func serveMetrics(ctx context.Context, lis net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.InfoKV(ctx, "Metrics server listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WarnKV(ctx, "Metrics server shutdown", "error", err)
		}
	}()

	if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve metrics: %w", err)
	}

	<-done

	return nil
}
