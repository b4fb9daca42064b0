package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcapi "live-interview-service/internal/api/grpc"
	"live-interview-service/internal/app"
	"live-interview-service/internal/config"
	apihttp "live-interview-service/internal/http"
	"live-interview-service/internal/observability"
	"live-interview-service/internal/observability/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			log.Fatal().Err(err).Msg("Failed to load config file")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}
	grpcServer := grpcapi.New(metrics.DefaultMetrics, application.Sessions)

	apiServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           apihttp.NewRouter(application),
		ReadHeaderTimeout: 5 * time.Second,
	}
	obsServer := observability.NewServer(cfg.Observability.MetricsAddr, func() bool {
		return !application.StartupTime.IsZero()
	})

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}
	grpcServer.SetServing(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Service.GRPCPort).Msg("gRPC server started")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Msg("HTTP API server started")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(obsServer.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()

		log.Info().Msg("Shutting down")
		grpcServer.SetServing(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP API shutdown error")
		}
		application.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return obsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Service stopped")
}
