package grpcserver

import (
	"context"
	"time"

	"lorecrafter/database"
	"lorecrafter/interceptors"
	"lorecrafter/repositories"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthReporter publishes the store's reachability through the standard
// gRPC health service, both overall ("") and under the service name.
type HealthReporter struct {
	health  *health.Server
	store   repositories.Store
	service string
	log     *zap.Logger
}

// NewHealthReporter creates a reporter that starts out NOT_SERVING until
// the first Refresh.
func NewHealthReporter(store repositories.Store, service string, log *zap.Logger) *HealthReporter {
	h := &HealthReporter{
		health:  health.NewServer(),
		store:   store,
		service: service,
		log:     log.Named("health"),
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *HealthReporter) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.service, status)
}

// Refresh pings the store once and publishes the result.
func (h *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := database.Check(ctx, h.store); err != nil {
		h.log.Debug("Store check failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.set(status)
	return status
}

// Run refreshes every interval until ctx is done, then marks every service
// NOT_SERVING for good.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	h.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

// NewServer builds the gRPC server carrying the health and reflection
// services, with zap call logging.
func NewServer(h *HealthReporter, log *zap.Logger) *grpc.Server {
	grpcLog := log.Named("grpc")
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptors.UnaryLogging(grpcLog)),
		grpc.ChainStreamInterceptor(interceptors.StreamLogging(grpcLog)),
	)
	healthpb.RegisterHealthServer(srv, h.health)
	reflection.Register(srv)
	return srv
}
