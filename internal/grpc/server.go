package grpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the rewards API.
const ServiceName = "rewards.v1.Rewards"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type Server struct {
	GRPC   *grpc.Server
	Health *health.Server

	deps     []Pinger
	interval time.Duration
	logger   *zap.Logger
}

// NewServer registers the standard health service and reflection. The
// serving status follows the given dependencies.
func NewServer(logger *zap.Logger, interval time.Duration, deps ...Pinger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}

	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)

	return &Server{GRPC: s, Health: hs, deps: deps, interval: interval, logger: logger}
}

// Check pings every dependency once and updates the serving status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, dep := range s.deps {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := dep.PingContext(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn("health check dependency failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	s.Health.SetServingStatus("", status)
	s.Health.SetServingStatus(ServiceName, status)
	return status
}

// Watch re-runs Check until ctx is cancelled.
func (s *Server) Watch(ctx context.Context) {
	s.Check(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
	return s.GRPC.Serve(lis)
}

func (s *Server) Stop() {
	s.Health.Shutdown()
	s.GRPC.GracefulStop()
}
