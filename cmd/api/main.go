package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/umoja-bank/umoja/internal/config"
	"github.com/umoja-bank/umoja/internal/infra"
	"github.com/umoja-bank/umoja/internal/logging"
	"github.com/umoja-bank/umoja/internal/routes"
	"github.com/umoja-bank/umoja/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting", slog.String("app", cfg.AppName), slog.String("env", cfg.AppEnv))

	ctx := context.Background()

	db, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	cache, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer cache.Close()

	srv := server.New(routes.Deps{
		Cfg:    cfg,
		DB:     db,
		Cache:  cache,
		Logger: logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownPeriod)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("stopped")
}
