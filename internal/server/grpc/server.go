// Package grpc exposes the standard gRPC health service so orchestrators can
// tell whether the identity server has finished its database bootstrap.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/humanist/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer answers grpc.health.v1.Health. Both the overall status ("")
// and the named service report NOT_SERVING until SetServing(true).
type HealthServer struct {
	address string
	service string
	health  *health.Server
	logger  logging.Logger
}

// ServiceName is the name the identity API is reported under.
const ServiceName = "humanist.identity"

func NewHealthServer(address string, l logging.Logger) *HealthServer {
	s := &HealthServer{
		address: address,
		service: ServiceName,
		health:  health.NewServer(),
		logger:  l.With("module", "grpc_server"),
	}
	s.SetServing(false)
	return s
}

// SetServing flips both statuses.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}

// Run listens on the configured address and serves until ctx is done.
func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
