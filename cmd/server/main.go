/*
Package main is the entry point for the relaychat server.

It loads configuration, initializes the global logging system, opens the user store,
builds the registry and session manager, serves HTTP and WebSocket traffic, and shuts
down gracefully on SIGINT or SIGTERM: live sessions are closed, the user table is
saved and the store released.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/registry"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/store"
	"relaychat/internal/configs"
	"relaychat/internal/handler"
	"relaychat/internal/pkg/auth/password"
	"relaychat/internal/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "relaychat-server",
		Short:        "Run the WebSocket chat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML config file (environment variables override it)")

	return cmd
}

func storeConfig(cfg *configs.AppConfig) store.Config {
	return store.Config{
		Kind:        cfg.UserStore,
		FilePath:    cfg.UsersFile,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseDSN,
		S3: storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		},
		S3Key: cfg.S3UsersKey,
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		return err
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("user_store", cfg.UserStore).
		Int("outbox_limit", cfg.OutboxLimit).
		Msg("Configuration loaded successfully")

	backend, err := store.Open(ctx, storeConfig(cfg))
	if err != nil {
		logx.Error(err, "Failed to open user store")
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logx.Error(err, "Failed to close user store")
		}
	}()

	reg, err := registry.New(ctx, backend, password.NewBcrypt(cfg.BcryptCost))
	if err != nil {
		logx.Error(err, "Failed to load user table")
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := chat.NewMetrics(promReg)

	manager := chat.NewManager(reg, metrics, chat.Options{
		OutboxLimit:  cfg.OutboxLimit,
		MaxFrameSize: cfg.MaxFrameSize,
	})

	routerCtx, stopRouter := context.WithCancel(context.Background())
	defer stopRouter()

	router := handler.Router(routerCtx, &handler.AppDeps{
		Config:   cfg,
		Registry: reg,
		Manager:  manager,
		Gatherer: promReg,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("relaychat server starting on ws://localhost%s%s", serverAddr, handler.WebSocketPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logx.Info("Received shutdown signal. Starting graceful shutdown...")
	case err := <-serveErr:
		logx.Error(err, "Server failed to start")
		return err
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	// Hijacked WebSocket connections are not tracked by http.Server, so the
	// sessions are closed first.
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Sessions did not close before the deadline")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	if err := reg.Save(shutdownCtx); err != nil {
		logx.Error(err, "Failed to save user table on shutdown")
	}

	logx.Info("Server gracefully stopped.")
	return nil
}
