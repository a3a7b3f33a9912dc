// Package grpc exposes the gRPC health endpoint deployment probes hit.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// checkInterval is how often readiness is re-probed.
const checkInterval = 5 * time.Second

// ReadinessCheck reports whether a dependency is usable. The health server
// serves NOT_SERVING until every check passes.
type ReadinessCheck func(ctx context.Context) error

type HealthServer struct {
	address string
	checks  []ReadinessCheck
	logger  logging.Logger
}

func NewHealthServer(address string, logger logging.Logger, checks ...ReadinessCheck) *HealthServer {
	return &HealthServer{
		address: address,
		checks:  checks,
		logger:  logger.With("module", "grpc_health"),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := grpc.NewServer()

	hs := grpchealth.NewServer()
	// start pessimistic
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go s.watch(ctx, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}

func (s *HealthServer) watch(ctx context.Context, hs *grpchealth.Server) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	s.update(ctx, hs)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.update(ctx, hs)
		}
	}
}

func (s *HealthServer) update(ctx context.Context, hs *grpchealth.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn(ctx, "readiness check failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	hs.SetServingStatus("", status)
}
