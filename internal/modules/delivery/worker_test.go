package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/gran-publicador/core/internal/config"
	"github.com/gran-publicador/core/internal/models"
	"github.com/gran-publicador/core/internal/modules/outbound"
	"github.com/gran-publicador/core/internal/pkg/queue"
	"github.com/gran-publicador/core/internal/transport"
)

func TestAggregateStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		published int
		failed    int
		want      models.PublicationStatus
	}{
		{"all published", 3, 0, models.PublicationPublished},
		{"some failed", 2, 1, models.PublicationPartial},
		{"all failed", 0, 3, models.PublicationFailed},
		{"nothing happened", 0, 0, models.PublicationFailed},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := aggregateStatus(tc.published, tc.failed); got != tc.want {
				t.Errorf("aggregateStatus(%d, %d) = %q, want %q", tc.published, tc.failed, got, tc.want)
			}
		})
	}
}

func TestShouldDeliver(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status models.PostStatus
		force  bool
		want   bool
	}{
		{"pending", models.PostPending, false, true},
		{"published stays done", models.PostPublished, false, false},
		{"published even forced", models.PostPublished, true, false},
		{"failed waits for force", models.PostFailed, false, false},
		{"failed forced", models.PostFailed, true, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			post := &models.PostModel{Status: tc.status}
			if got := shouldDeliver(post, tc.force); got != tc.want {
				t.Errorf("shouldDeliver(%q, force=%v) = %v, want %v", tc.status, tc.force, got, tc.want)
			}
		})
	}
}

func TestLockKey(t *testing.T) {
	t.Parallel()

	if got := lockKey("abc"); got != "publication:abc" {
		t.Errorf("lockKey = %q", got)
	}
}

// flakyTransport fails a fixed number of deliveries before succeeding.
type flakyTransport struct {
	platform models.Platform
	failures int
	calls    int
}

func (f *flakyTransport) Platform() models.Platform { return f.platform }

func (f *flakyTransport) Deliver(ctx context.Context, req *outbound.Request) (*transport.Result, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("upstream timeout")
	}
	return &transport.Result{PlatformPostID: "42"}, nil
}

func testWorker(transports *transport.Registry) *Worker {
	cfg := config.DeliveryConfig{MaxAttempts: 3, RetryBase: time.Millisecond}
	return NewWorker(nil, nil, transports, cfg, zap.NewNop())
}

func TestSendRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	client := &flakyTransport{platform: models.PlatformTelegram, failures: 2}
	w := testWorker(transport.NewRegistry(client))

	res, err := w.send(context.Background(), models.PlatformTelegram, &outbound.Request{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.PlatformPostID != "42" {
		t.Errorf("PlatformPostID = %q, want %q", res.PlatformPostID, "42")
	}
	if client.calls != 3 {
		t.Errorf("calls = %d, want 3", client.calls)
	}
}

func TestSendUnknownPlatformIsPermanent(t *testing.T) {
	t.Parallel()

	client := &flakyTransport{platform: models.PlatformTelegram}
	w := testWorker(transport.NewRegistry(client))

	_, err := w.send(context.Background(), models.PlatformVK, &outbound.Request{})
	if err == nil {
		t.Fatal("expected error for unregistered platform")
	}
	if !IsPermanent(err) {
		t.Errorf("err = %v, want permanent", err)
	}
	if client.calls != 0 {
		t.Errorf("calls = %d, want 0", client.calls)
	}
}

func TestHandleDeliverPublicationWhileDraining(t *testing.T) {
	t.Parallel()

	w := testWorker(transport.NewRegistry())
	w.Shutdown()

	task, err := queue.NewDeliverPublicationTask(queue.DeliverPublicationPayload{PublicationID: "pub-1"})
	if err != nil {
		t.Fatalf("building task: %v", err)
	}

	err = w.HandleDeliverPublication(context.Background(), task)
	if !errors.Is(err, ErrDraining) {
		t.Errorf("err = %v, want ErrDraining", err)
	}
}

func TestHandleDeliverPublicationBadPayload(t *testing.T) {
	t.Parallel()

	w := testWorker(transport.NewRegistry())
	task := asynq.NewTask(queue.TaskDeliverPublication, []byte("{not json"))

	err := w.HandleDeliverPublication(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want SkipRetry", err)
	}
}
