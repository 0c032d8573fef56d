package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fleethub/internal/admin"
	"fleethub/internal/audit"
	"fleethub/internal/config"
	"fleethub/internal/database"
	"fleethub/internal/repository"
	"fleethub/internal/server"
)

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	ctx := context.Background()
	empty, err := repository.IsEmpty(ctx, db)
	if err != nil {
		log.Fatalf("Failed to inspect the database: %v", err)
	}
	if empty {
		if err := repository.Seed(ctx, db); err != nil {
			log.Fatalf("Failed to seed the database: %v", err)
		}
		logger.Info("database_seeded")
	}

	srv := server.NewServer(cfg, db, logger)

	if cfg.RedisURL != "" {
		recorder, err := audit.NewRedisRecorder(cfg.RedisURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer recorder.Close()
		srv.SetRecorder(recorder)
		logger.Info("audit_recorder_enabled")
	}

	if cfg.AdminPort > 0 {
		router := admin.NewRouter(db, srv.Broker())
		go func() {
			addr := fmt.Sprintf("localhost:%d", cfg.AdminPort)
			logger.Info("admin_endpoint_started", "addr", addr)
			if err := router.Run(addr); err != nil {
				logger.Error("admin_endpoint_failed", "error", err.Error())
			}
		}()
	}

	logger.Info("starting_inventory_server",
		"port", cfg.ServerPort,
		"database", cfg.DatabaseURL,
		"single_threaded", cfg.SingleThreaded,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
		srv.Stop()
		logger.Info("server_stopped_gracefully")
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}
