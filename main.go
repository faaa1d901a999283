package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lorecrafter/auth"
	"lorecrafter/config"
	"lorecrafter/controllers"
	"lorecrafter/database"
	"lorecrafter/generation"
	grpcserver "lorecrafter/grpc_server"
	"lorecrafter/metrics"
	"lorecrafter/registry"
	"lorecrafter/repositories"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The API still starts without a database; data routes then report it.
	var store repositories.Store
	if cfg.DatabaseURL != "" {
		store, err = database.Connect(ctx, cfg.DatabaseURL, cfg.DatabaseName, logger)
		if err != nil {
			logger.Error("Failed to connect to database", zap.Error(err))
			store = nil
		}
	}

	m := metrics.New()
	generator := generation.NewClient(generation.Config{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
	}, logger)

	container := controllers.NewContainer(controllers.Deps{
		Store:       store,
		Sessions:    auth.NewSessionManager([]byte(cfg.SessionSecret), cfg.CookieSecure),
		Generator:   generator,
		Metrics:     m,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           container,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	if cfg.GRPCPort > 0 {
		health := grpcserver.NewHealthReporter(store, cfg.ServiceName, logger)
		go health.Run(ctx, healthInterval)

		stopGRPC, err := startGRPC(fmt.Sprintf(":%d", cfg.GRPCPort), health, logger, stop)
		if err != nil {
			// Shut down through the normal path so deferred cleanup still runs.
			logger.Error("Failed to listen for gRPC", zap.Int("port", cfg.GRPCPort), zap.Error(err))
			stop()
		} else {
			defer stopGRPC()
		}
	}

	if cfg.Consul.Address != "" {
		if deregister := registerWithConsul(cfg, logger); deregister != nil {
			defer deregister()
		}
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if store != nil {
		if err := store.Close(shutdownCtx); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		}
	}
}

// startGRPC serves the health service on addr in the background and returns
// its graceful stop. onFail is called if serving ends abnormally.
func startGRPC(addr string, health *grpcserver.HealthReporter, logger *zap.Logger, onFail func()) (func(), error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	grpcServer := grpcserver.NewServer(health, logger)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("gRPC server failed", zap.Error(err))
			onFail()
		}
	}()
	return grpcServer.GracefulStop, nil
}

// registerWithConsul announces the HTTP API and returns the matching
// deregistration. Failures are logged and leave the server running.
func registerWithConsul(cfg *config.Config, logger *zap.Logger) func() {
	sugar := logger.Sugar()
	reg, err := registry.NewConsulRegistry(cfg.Consul.Address, sugar)
	if err != nil {
		sugar.Errorw("Consul unavailable, skipping registration", "error", err)
		return nil
	}

	host := cfg.Consul.ServiceHost
	id := registry.InstanceID(cfg.ServiceName, host, cfg.HTTPPort)
	check := registry.CreateHTTPCheck(id, host, cfg.HTTPPort, "/api/health", "10s", "2s")
	inst := registry.Instance{ID: id, Name: cfg.ServiceName, Address: host, Port: cfg.HTTPPort, Tags: []string{"http", "api"}}
	if err := reg.Register(inst, check); err != nil {
		sugar.Errorw("Consul registration failed", "error", err)
		return nil
	}
	return func() {
		if err := reg.Deregister(id); err != nil {
			sugar.Errorw("Consul deregistration failed", "error", err)
		}
	}
}
