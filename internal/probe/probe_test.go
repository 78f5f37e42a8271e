package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dialChecker(t *testing.T, c *Checker) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, c)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestCheck_OverGRPC(t *testing.T) {
	var dbErr error
	c := NewChecker(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return dbErr }),
		"redis":    PingFunc(func(context.Context) error { return nil }),
	}, 0, discardLogger())
	client := dialChecker(t, c)
	ctx := context.Background()

	serving := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}
	notServing := &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.True(t, proto.Equal(serving, resp))

	dbErr = errors.New("connection refused")

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.True(t, proto.Equal(notServing, resp))

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "redis"})
	require.NoError(t, err)
	assert.True(t, proto.Equal(serving, resp))

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "kafka"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRun_ReportsFailedDependencies(t *testing.T) {
	c := NewChecker(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return errors.New("down") }),
		"redis":    PingFunc(func(context.Context) error { return nil }),
	}, 0, discardLogger())

	rep := c.Run(context.Background())
	assert.False(t, rep.Healthy)
	assert.Equal(t, map[string]string{"postgres": "down"}, rep.Failed)
}

func TestRun_NoDependencies(t *testing.T) {
	rep := NewChecker(nil, 0, discardLogger()).Run(context.Background())
	assert.True(t, rep.Healthy)
	assert.Empty(t, rep.Failed)
}
