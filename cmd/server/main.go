package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gran-publicador/core/internal/app"
	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/database"
	"github.com/gran-publicador/core/internal/pkg/nativelog"
	"github.com/gran-publicador/core/internal/pkg/proctitle"
)

func main() {
	_ = proctitle.SetDefault()

	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	migrateOnly := flag.Bool("migrate", false, "Run schema migration and exit")
	flag.Parse()

	logger, err := nativelog.NewZapLogger()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("daily log pipeline unavailable, fallback to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if *migrateOnly {
		if err := database.EnsureSchema(cfg); err != nil {
			logger.Fatal("migration failed", zap.Error(err))
		}
		logger.Info("schema is up to date")
		return
	}

	application, err := app.New(logger, cfg)
	if err != nil {
		logger.Fatal("failed to initialize app", zap.Error(err))
	}

	logger.Info("delivery coordinator started",
		zap.String("env", cfg.Env),
		zap.Duration("tick", cfg.Delivery.Tick),
		zap.Int("concurrency", cfg.Delivery.Concurrency))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	application.Shutdown()
	logger.Info("bye")
}
