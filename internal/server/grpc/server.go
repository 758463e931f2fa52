// Package grpc hosts the gRPC listener: the standard health service plus any
// mounted services, all behind the authorization gate.
package grpc

import (
	"context"
	"errors"
	"net"

	"github.com/dmitrijs2005/campusdesk/internal/logging"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

type mounted struct {
	desc *grpc.ServiceDesc
	impl any
}

type GRPCServer struct {
	address  string
	gate     *auth.Gate
	policy   Policy
	metrics  *metrics.Metrics
	logger   logging.Logger
	health   *health.Server
	services []mounted
}

func NewGRPCServer(a string, l logging.Logger, g *auth.Gate, m *metrics.Metrics, p Policy) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		gate:    g,
		policy:  p,
		metrics: m,
		health:  health.NewServer(),
	}
}

// Mount registers a service to be served once Run starts. Its methods are
// guarded according to the policy.
func (s *GRPCServer) Mount(desc *grpc.ServiceDesc, impl any) {
	s.services = append(s.services, mounted{desc: desc, impl: impl})
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(s.unaryGate),
		grpc.ChainStreamInterceptor(s.streamGate),
	)

	// registers services
	healthpb.RegisterHealthServer(srv, s.health)
	reflection.Register(srv)
	for _, m := range s.services {
		srv.RegisterService(m.desc, m.impl)
		s.health.SetServingStatus(m.desc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections; stopping before Serve is not a failure
	if err := srv.Serve(listen); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}

	return nil
}
