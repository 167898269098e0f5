package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fieldDispatch/internal/config"
	"fieldDispatch/internal/db"
	"fieldDispatch/internal/dispatch"
	grpcserver "fieldDispatch/internal/grpc"
	"fieldDispatch/internal/httpapi"
	"fieldDispatch/repository"
)

func main() {
	// Load configuration. DEV_MODE allows the built-in development secret.
	load := config.Load
	if os.Getenv("DEV_MODE") == "true" {
		load = config.LoadWithDefaults
	}
	cfg, err := load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("config", cfg.String()))

	// Open DB
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Error("open db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error("close db", slog.Any("error", err))
		}
	}()

	store := repository.NewStore(d)
	svc := dispatch.New(store, dispatch.WithLogger(logger))

	// Start gRPC
	stopGRPC, err := grpcserver.StartGRPC(cfg, &grpcserver.DispatchServer{Service: svc, Users: store.Users}, logger)
	if err != nil {
		logger.Error("start grpc", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("gRPC server listening", slog.String("address", cfg.GRPC.Address))

	// Start REST
	r := httpapi.NewRouter(httpapi.NewHandler(svc, store.Users, logger), cfg.Auth.JWTSecret)
	r.Use(httpapi.AccessLog(logger))
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", slog.Any("error", err))
		}
	}()
	logger.Info("HTTP server listening", slog.String("address", cfg.HTTP.Address))

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
	if err := stopGRPC(ctx); err != nil {
		logger.Error("grpc shutdown", slog.Any("error", err))
	}
}
