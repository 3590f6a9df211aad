package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/outbound"
	"github.com/gran-publicador/core/internal/pkg/lock"
	"github.com/gran-publicador/core/internal/pkg/queue"
	"github.com/gran-publicador/core/internal/transport"
)

// ErrDraining is returned while the worker shuts down. It is deliberately
// retryable: asynq re-delays the job and another instance picks it up.
var ErrDraining = errors.New("worker is draining")

// Worker consumes delivery jobs: it delivers every pending post of a
// publication through its platform transport and aggregates the outcome.
type Worker struct {
	db         *gorm.DB
	locks      *lock.Service
	transports *transport.Registry
	cfg        config.DeliveryConfig
	retry      RetryPolicy
	logger     *zap.Logger

	draining atomic.Bool
	srv      *asynq.Server
}

func NewWorker(
	db *gorm.DB,
	locks *lock.Service,
	transports *transport.Registry,
	cfg config.DeliveryConfig,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		db:         db,
		locks:      locks,
		transports: transports,
		cfg:        cfg,
		retry:      RetryPolicy{MaxAttempts: cfg.MaxAttempts, Base: cfg.RetryBase},
		logger:     logger.Named("DeliveryWorker"),
	}
}

// Start launches the asynq consumer in the background.
func (w *Worker) Start(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}

	w.srv = asynq.NewServer(opt, asynq.Config{
		Concurrency: w.cfg.Concurrency,
		Queues: map[string]int{
			queue.QueueDelivery: 10,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			w.logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDeliverPublication, w.HandleDeliverPublication)

	return w.srv.Start(mux)
}

// Shutdown flips the draining flag first so in-flight handlers push their
// jobs back to the queue, then stops the consumer.
func (w *Worker) Shutdown() {
	w.draining.Store(true)
	if w.srv != nil {
		w.srv.Shutdown()
	}
}

// HandleDeliverPublication is the asynq handler for one publication delivery.
func (w *Worker) HandleDeliverPublication(ctx context.Context, t *asynq.Task) error {
	var payload queue.DeliverPublicationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	if w.draining.Load() {
		return ErrDraining
	}

	// The scheduler acquired the lock and handed its token over in the
	// payload. Extend it for the duration of this run and release when done.
	if payload.LockToken != "" {
		if _, err := w.locks.Refresh(ctx, lockKey(payload.PublicationID), payload.LockToken, w.cfg.LockTTL); err != nil {
			w.logger.Warn("lock refresh failed", zap.String("publicationId", payload.PublicationID), zap.Error(err))
		}
		defer func() {
			if _, err := w.locks.Release(context.WithoutCancel(ctx), lockKey(payload.PublicationID), payload.LockToken); err != nil {
				w.logger.Warn("lock release failed", zap.String("publicationId", payload.PublicationID), zap.Error(err))
			}
		}()
	}

	return w.deliver(ctx, payload.PublicationID, payload.Force)
}

func (w *Worker) deliver(ctx context.Context, publicationID string, force bool) error {
	var pub models.PublicationModel
	err := w.db.WithContext(ctx).
		Preload("Posts").
		Preload("Posts.Channel").
		First(&pub, "id = ?", publicationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			w.logger.Warn("publication vanished before delivery", zap.String("publicationId", publicationID))
			return nil
		}
		return err
	}

	if pub.Status == models.PublicationPublished && !force {
		return nil
	}

	published, failed := 0, 0
	for i := range pub.Posts {
		post := &pub.Posts[i]
		if !shouldDeliver(post, force) {
			if post.Status == models.PostPublished {
				published++
			}
			continue
		}
		if err := w.deliverPost(ctx, &pub, post); err != nil {
			failed++
		} else {
			published++
		}
	}

	status := aggregateStatus(published, failed)
	w.recordAttempt(ctx, &pub, status, published, failed)

	w.logger.Info("publication delivered",
		zap.String("publicationId", pub.ID),
		zap.String("status", string(status)),
		zap.Int("published", published),
		zap.Int("failed", failed))
	return nil
}

// shouldDeliver skips posts that are already done. force re-opens failed
// posts but never re-sends an already published one.
func shouldDeliver(post *models.PostModel, force bool) bool {
	switch post.Status {
	case models.PostPublished:
		return false
	case models.PostFailed:
		return force
	default:
		return true
	}
}

func (w *Worker) deliverPost(ctx context.Context, pub *models.PublicationModel, post *models.PostModel) error {
	if post.Channel == nil {
		return w.failPost(ctx, post, errors.New("post has no channel"))
	}

	req, err := outbound.BuildRequest(pub, post, post.Channel)
	if err != nil {
		// A snapshot or request build failure will not heal on retry.
		return w.failPost(ctx, post, Permanent(err))
	}

	res, err := w.send(ctx, post.Channel.Platform, req)
	if err != nil {
		return w.failPost(ctx, post, err)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.PostPublished,
		"platform_post_id": res.PlatformPostID,
		"published_at":     &now,
		"last_error":       "",
	}
	if err := w.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

// send runs one delivery through the retry policy. A missing transport is a
// permanent error: no amount of re-dialing registers a new platform client.
func (w *Worker) send(ctx context.Context, platform models.Platform, req *outbound.Request) (*transport.Result, error) {
	var res *transport.Result
	err := w.retry.Do(ctx, func() error {
		client, err := w.transports.For(platform)
		if err != nil {
			return Permanent(err)
		}
		var derr error
		res, derr = client.Deliver(ctx, req)
		return derr
	})
	return res, err
}

func (w *Worker) failPost(ctx context.Context, post *models.PostModel, cause error) error {
	w.logger.Warn("post delivery failed",
		zap.String("postId", post.ID),
		zap.Error(cause))
	updates := map[string]interface{}{
		"status":     models.PostFailed,
		"last_error": cause.Error(),
	}
	if err := w.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		w.logger.Error("persisting post failure failed", zap.String("postId", post.ID), zap.Error(err))
	}
	return cause
}

func aggregateStatus(published, failed int) models.PublicationStatus {
	switch {
	case failed == 0 && published > 0:
		return models.PublicationPublished
	case published > 0:
		return models.PublicationPartial
	default:
		return models.PublicationFailed
	}
}

// recordAttempt writes the aggregate status and appends one attempt entry to
// the publication meta, so the delivery history survives in the row itself.
func (w *Worker) recordAttempt(ctx context.Context, pub *models.PublicationModel, status models.PublicationStatus, published, failed int) {
	meta := pub.Meta
	if meta == nil {
		meta = models.JSONMap{}
	}
	log, _ := meta["deliveryLog"].([]interface{})
	log = append(log, map[string]interface{}{
		"at":        time.Now().UTC().Format(time.RFC3339),
		"status":    string(status),
		"published": published,
		"failed":    failed,
	})
	meta["deliveryLog"] = log

	err := w.db.WithContext(ctx).Model(&models.PublicationModel{}).
		Where("id = ?", pub.ID).
		Updates(map[string]interface{}{"status": status, "meta": meta}).Error
	if err != nil {
		w.logger.Error("recording delivery attempt failed", zap.String("publicationId", pub.ID), zap.Error(err))
	}
}
