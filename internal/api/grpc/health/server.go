package health

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/posture-monitor/internal/logger"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "posture.v1.Monitor"

// Server exposes the grpc.health.v1 API for one monitoring session.
type Server struct {
	// health holds the per-service serving status.
	health *grpchealth.Server
	// grpc is the transport the health service is registered on.
	grpc *grpc.Server
}

// NewServer creates a server reporting NOT_SERVING until SetServing is called.
func NewServer() *Server {
	s := &Server{
		health: grpchealth.NewServer(),
		grpc:   grpc.NewServer(),
	}

	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.SetServing(false)

	return s
}

// SetServing updates both the overall and the monitor service status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Listen binds address for Serve.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	return lis, nil
}

// Serve handles requests on lis and blocks until ctx is canceled and the server stops.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	logger.InfoKV(ctx, "Health server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpc.GracefulStop()
		close(done)
	}()

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health server stopped")

	return nil
}
