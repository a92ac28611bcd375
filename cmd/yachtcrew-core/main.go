package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/logger"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/config"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	lg, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "yachtcrew-core")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	lg.Info("Starting yachtcrew-core",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("mqtt_enabled", cfg.MQTTEnabled),
	)

	core, err := service.NewCoreService(cfg, lg)
	if err != nil {
		lg.Fatal("Failed to create core service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- core.Start(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			lg.Error("Core service exited", zap.Error(err))
		}
	}

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := core.Stop(stopCtx); err != nil {
		lg.Error("Error during shutdown", zap.Error(err))
	}
	lg.Info("Service stopped")
}
