// Package grpc serves the standard gRPC health service next to the HTTP API.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is reported alongside the overall ("") status.
const ServiceName = "authkeeper.Auth"

type HealthServer struct {
	address string
	logger  logging.Logger
	health  *health.Server
	metrics *grpc_prometheus.ServerMetrics
}

// NewHealthServer registers the gRPC server metrics on reg when it is not nil.
func NewHealthServer(address string, l logging.Logger, reg prometheus.Registerer) (*HealthServer, error) {
	m := grpc_prometheus.NewServerMetrics()
	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		health:  hs,
		metrics: m,
	}, nil
}

func (s *HealthServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve reports SERVING once the listener is accepting and NOT_SERVING as
// soon as ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.metrics.UnaryServerInterceptor(), s.loggingInterceptor),
		grpc.ChainStreamInterceptor(s.metrics.StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(srv, s.health)
	s.metrics.InitializeMetrics(srv)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
