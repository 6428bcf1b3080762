package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Tyrowin/potatoserver/internal/config"
	"github.com/Tyrowin/potatoserver/internal/hub"
	"github.com/Tyrowin/potatoserver/internal/logging"
	"github.com/Tyrowin/potatoserver/internal/server"
	"github.com/Tyrowin/potatoserver/internal/settings"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "potatoserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting PotatoServer...",
		zap.String("port", cfg.Port),
		zap.String("db_driver", cfg.DBDriver))

	store, err := settings.Open(cfg.DBDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing settings store", zap.Error(err))
		}
	}()

	h := hub.New(hubOptions(cfg), logger)
	srv := server.New(cfg, h, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	return <-serveErr
}

func hubOptions(cfg *config.Config) hub.Options {
	opts := hub.DefaultOptions()
	opts.Policy = hub.Policy{
		EchoPrefix:    cfg.EchoPrefix,
		IncludeSender: cfg.IncludeSender,
	}
	opts.MaxMessageSize = cfg.MaxMessageSize
	opts.WriteTimeout = cfg.WriteTimeout
	opts.IdleTimeout = cfg.IdleTimeout
	opts.RateLimitBurst = cfg.RateLimitBurst
	opts.RateLimitInterval = cfg.RateLimitInterval
	if cfg.CommandsEnabled {
		opts.Commands = hub.DefaultCommands()
	}
	return opts
}
