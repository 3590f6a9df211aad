package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDelivery is the asynq queue all delivery jobs go through.
	QueueDelivery = "delivery"

	// TaskDeliverPublication delivers every post of one publication.
	TaskDeliverPublication = "delivery:publish"
)

// DeliverPublicationPayload is the job body for TaskDeliverPublication. The lock
// token travels inside the payload: ownership of the publication lock is handed
// from the scheduler to the worker, with the Redis TTL as the fallback release.
type DeliverPublicationPayload struct {
	PublicationID string `json:"publication_id"`
	LockToken     string `json:"lock_token"`
	Force         bool   `json:"force"`
}

// NewDeliverPublicationTask builds the asynq task for a publication delivery.
func NewDeliverPublicationTask(payload DeliverPublicationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskDeliverPublication,
		body,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue(QueueDelivery),
	), nil
}

// Client wraps the asynq producer side.
type Client struct {
	c *asynq.Client
}

// NewClient connects an asynq producer to the given Redis URL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url for queue: %w", err)
	}
	return &Client{c: asynq.NewClient(opt)}, nil
}

// EnqueueDeliverPublication enqueues a delivery job for one publication.
func (c *Client) EnqueueDeliverPublication(ctx context.Context, payload DeliverPublicationPayload) error {
	task, err := NewDeliverPublicationTask(payload)
	if err != nil {
		return err
	}
	if _, err := c.c.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskDeliverPublication, err)
	}
	return nil
}

// Close releases the producer connection.
func (c *Client) Close() error { return c.c.Close() }
