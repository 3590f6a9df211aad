package delivery

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/snapshot"
	"github.com/gran-publicador/core/internal/pkg/cron"
	"github.com/gran-publicador/core/internal/pkg/lock"
	"github.com/gran-publicador/core/internal/pkg/queue"
)

// JobScanDue is the cron job name for the delivery tick.
const JobScanDue = "delivery_scan_due"

func lockKey(publicationID string) string { return "publication:" + publicationID }

// Scheduler turns due publications into queued delivery jobs. Several
// instances may run the tick concurrently; the Redis lock decides which one
// owns a given publication.
type Scheduler struct {
	db        *gorm.DB
	locks     *lock.Service
	snapshots *snapshot.Service
	queue     *queue.Client
	cfg       config.DeliveryConfig
	logger    *zap.Logger
}

func NewScheduler(
	db *gorm.DB,
	locks *lock.Service,
	snapshots *snapshot.Service,
	qc *queue.Client,
	cfg config.DeliveryConfig,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		db:        db,
		locks:     locks,
		snapshots: snapshots,
		queue:     qc,
		cfg:       cfg,
		logger:    logger.Named("DeliveryScheduler"),
	}
}

// Register hooks the periodic scan into the interval scheduler.
func (s *Scheduler) Register(c *cron.Scheduler) {
	c.Register(cron.Job{
		Name:        JobScanDue,
		Description: "scan scheduled publications and enqueue due deliveries",
		Interval:    s.cfg.Tick,
		Fn:          s.Scan,
	})
}

// Scan is one tick: expire abandoned publications, then dispatch everything
// due inside the lookahead window.
func (s *Scheduler) Scan(ctx context.Context) error {
	if err := s.expireStale(ctx); err != nil {
		s.logger.Warn("expiring stale publications failed", zap.Error(err))
	}

	horizon := time.Now().Add(s.cfg.Lookahead)
	var due []models.PublicationModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			models.PublicationScheduled, horizon).
		Order("scheduled_at ASC").
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("scanning due publications: %w", err)
	}

	for i := range due {
		if err := s.dispatch(ctx, &due[i], false); err != nil {
			s.logger.Error("dispatch failed",
				zap.String("publicationId", due[i].ID),
				zap.Error(err))
		}
	}
	return nil
}

// Trigger dispatches one publication outside the normal tick, typically from
// an operator action. force re-delivers posts that already failed.
func (s *Scheduler) Trigger(ctx context.Context, publicationID string, force bool) error {
	var pub models.PublicationModel
	if err := s.db.WithContext(ctx).First(&pub, "id = ?", publicationID).Error; err != nil {
		return err
	}
	return s.dispatch(ctx, &pub, force)
}

// dispatch acquires the publication lock, freezes content, flips the status
// and enqueues the job. The lock token travels in the payload so the worker
// can release a lock it never acquired itself.
func (s *Scheduler) dispatch(ctx context.Context, pub *models.PublicationModel, force bool) error {
	token, ok, err := s.locks.Acquire(ctx, lockKey(pub.ID), s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquiring publication lock: %w", err)
	}
	if !ok {
		// another instance got there first
		s.logger.Debug("publication already locked", zap.String("publicationId", pub.ID))
		return nil
	}

	release := func() {
		if _, err := s.locks.Release(ctx, lockKey(pub.ID), token); err != nil {
			s.logger.Warn("lock release failed", zap.String("publicationId", pub.ID), zap.Error(err))
		}
	}

	// Snapshots are rebuilt at the last moment before handing off so the
	// frozen content reflects the latest edits, never mid-delivery ones.
	if err := s.snapshots.Build(ctx, pub.ID); err != nil {
		release()
		return fmt.Errorf("freezing snapshots: %w", err)
	}

	err = s.db.WithContext(ctx).Model(&models.PublicationModel{}).
		Where("id = ?", pub.ID).
		Update("status", models.PublicationPublishing).Error
	if err != nil {
		release()
		return fmt.Errorf("marking publication publishing: %w", err)
	}

	err = s.queue.EnqueueDeliverPublication(ctx, queue.DeliverPublicationPayload{
		PublicationID: pub.ID,
		LockToken:     token,
		Force:         force,
	})
	if err != nil {
		// roll back so the next tick picks it up again
		if dbErr := s.db.WithContext(ctx).Model(&models.PublicationModel{}).
			Where("id = ?", pub.ID).
			Update("status", models.PublicationScheduled).Error; dbErr != nil {
			s.logger.Error("status rollback failed", zap.String("publicationId", pub.ID), zap.Error(dbErr))
		}
		release()
		return fmt.Errorf("enqueueing delivery: %w", err)
	}

	s.logger.Info("delivery enqueued",
		zap.String("publicationId", pub.ID),
		zap.Bool("force", force))
	return nil
}

// expireStale marks publications whose schedule slipped far into the past
// without ever being picked up. They need operator attention, not delivery.
func (s *Scheduler) expireStale(ctx context.Context) error {
	cutoff := time.Now().Add(-s.cfg.ExpireAfter)
	res := s.db.WithContext(ctx).Model(&models.PublicationModel{}).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at < ?",
			models.PublicationScheduled, cutoff).
		Update("status", models.PublicationExpired)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.logger.Warn("publications expired", zap.Int64("count", res.RowsAffected))
	}
	return nil
}
