package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"easel/plugin/internal/bridge"
	"easel/plugin/internal/canvas"
	"easel/plugin/internal/config"
	"easel/plugin/internal/docwatch"
	"easel/plugin/internal/export"
	"easel/plugin/internal/httpapi"
	"easel/plugin/internal/mirror"
	"easel/plugin/internal/storage"
	"easel/plugin/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gateway, err := openGateway(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage connection failed", "error", err)
		os.Exit(1)
	}
	defer gateway.Close()

	host := canvas.NewClient(cfg.HostAdapterURL)
	collections := store.New(gateway, logger)
	detector := docwatch.New(host, collections, logger)
	reconciler := mirror.New(host, logger)

	b := bridge.New(collections, detector, host, reconciler, cfg.NavigateSettleDelay, logger)
	bridgeCtx, stopBridge := context.WithCancel(ctx)
	defer stopBridge()
	go b.Run(bridgeCtx)

	var uploader *export.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploader, err = export.NewUploader(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			logger.Error("object storage connection failed", "error", err)
			os.Exit(1)
		}
		logger.Info("export upload enabled", "bucket", cfg.MinioBucket)
	}
	exporter := export.NewService(cfg.DesignBaseURL, uploader, logger)

	api := httpapi.New(b, exporter, gateway, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No write timeout: /api/events holds its connection open for the
		// lifetime of the plugin session.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("easel plugin backend listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-b.Done():
		logger.Info("close command received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", "error", err)
	}
}

// openGateway prefers Redis when configured, then Postgres, then the
// in-memory fallback for local development without either.
func openGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Gateway, error) {
	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis collection storage")
		return storage.NewRedisGateway(cfg.RedisURL, logger)
	}
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		logger.Info("using postgres collection storage")
		return storage.OpenPostgres(ctx, cfg.DatabaseURL, logger)
	}
	logger.Warn("no storage configured, collections will not survive restarts")
	return storage.NewMemoryGateway(), nil
}
