package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/database"
	"github.com/gran-publicador/core/internal/modules/archive"
	"github.com/gran-publicador/core/internal/modules/delivery"
	"github.com/gran-publicador/core/internal/modules/snapshot"
	pkgcron "github.com/gran-publicador/core/internal/pkg/cron"
	"github.com/gran-publicador/core/internal/pkg/lock"
	"github.com/gran-publicador/core/internal/pkg/queue"
	pkgredis "github.com/gran-publicador/core/internal/pkg/redis"
	"github.com/gran-publicador/core/internal/transport"
	"github.com/gran-publicador/core/internal/transport/telegram"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
	worker *delivery.Worker
	queue  *queue.Client
}

// New initializes the application: config → DB → Redis → queue → jobs.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	qc, err := queue.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}

	locks := lock.NewService(rc)
	snapshots := snapshot.NewService(db, logger)
	transports := transport.NewRegistry(telegram.New(logger))

	scheduler := delivery.NewScheduler(db, locks, snapshots, qc, cfg.Delivery, logger)
	worker := delivery.NewWorker(db, locks, transports, cfg.Delivery, logger)
	archiver := archive.NewService(db, cfg.Archive, logger)

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	scheduler.Register(sched)
	archiver.Register(sched)
	sched.Start(ctx)

	if err := worker.Start(cfg.RedisURL); err != nil {
		cancel()
		return nil, fmt.Errorf("delivery worker: %w", err)
	}

	return &App{
		cfg:    cfg,
		db:     db,
		logger: logger,
		cancel: cancel,
		sched:  sched,
		worker: worker,
		queue:  qc,
	}, nil
}

// Scheduler exposes the interval job scheduler, mainly for manual triggers.
func (a *App) Scheduler() *pkgcron.Scheduler { return a.sched }

// Shutdown stops claiming ticks first, then drains the worker and closes the
// producer. In-flight deliveries finish; fresh jobs get re-delayed.
func (a *App) Shutdown() {
	a.cancel()
	a.worker.Shutdown()
	if err := a.queue.Close(); err != nil {
		a.logger.Warn("closing queue client failed", zap.Error(err))
	}
}
