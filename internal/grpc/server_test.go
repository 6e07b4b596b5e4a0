package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(context.Context) error { return f.err }

func TestCheckFollowsDependencies(t *testing.T) {
	dep := &fakePinger{}
	s := NewServer(nil, time.Second, dep)

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Check(context.Background()))

	dep.err = errors.New("connection refused")
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Check(context.Background()))
}

func TestHealthOverTheWire(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(nil, time.Second, &fakePinger{})
	s.Check(context.Background())
	go func() { _ = s.Serve(lis) }()
	defer s.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
