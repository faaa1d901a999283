package grpcserver

import (
	"context"
	"net"
	"testing"

	"lorecrafter/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func dialHealth(t *testing.T, h *HealthReporter) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(h, zap.NewNop())
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

func check(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthWithoutStore(t *testing.T) {
	h := NewHealthReporter(nil, "lorecrafter-api", zap.NewNop())
	client := dialHealth(t, h)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, "lorecrafter-api"))
}

func TestHealthTracksStore(t *testing.T) {
	store := testutil.NewStore(t)
	h := NewHealthReporter(store, "lorecrafter-api", zap.NewNop())
	client := dialHealth(t, h)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""), "before the first refresh")

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, client, "lorecrafter-api"))

	require.NoError(t, store.Close(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Refresh(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
}
