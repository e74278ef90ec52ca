// Package health exposes the standard gRPC health service.
package health

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// ServiceName is the health entry for the coaching API. The empty name
// reports overall server health.
const ServiceName = "persona_coach.Coach"

// Server serves grpc.health.v1.
type Server struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	logger *slog.Logger
}

// New creates a health server that starts out NOT_SERVING.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gs := grpc.NewServer(grpc.KeepaliveParams(keepalive.ServerParameters{
		Time:    2 * time.Minute,
		Timeout: 10 * time.Second,
	}))
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	s := &Server{grpc: gs, health: hs, logger: logger}
	s.SetServing(false)
	return s
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			s.logger.Error("Health server failed", "error", err)
		}
	}()
	s.logger.Info("Health server listening", "addr", lis.Addr().String())
	return lis.Addr(), nil
}

// Serve blocks serving lis until Shutdown.
func (s *Server) Serve(lis net.Listener) error {
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// SetServing flips both the overall and the API status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Info("Health status changed", "status", status.String())
}

// Shutdown reports NOT_SERVING to watchers and stops the server.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
	s.logger.Info("Health server stopped")
}
