package delivery

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryDoSucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 4, Base: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryDoExhaustsAttempts(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 3, Base: time.Millisecond}
	calls := 0
	wantErr := errors.New("still broken")
	err := p.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryDoStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 5, Base: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New("no transport"))
	})
	if !IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryDoHonorsContext(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 10, Base: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func() error { return errors.New("transient") })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRetryDelayGrowsExponentially(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxAttempts: 4, Base: time.Second}
	for attempt := 0; attempt < 4; attempt++ {
		base := time.Second << attempt
		d := p.Delay(attempt)
		if d < base || d > base+base/4 {
			t.Errorf("Delay(%d) = %v, want within [%v, %v]", attempt, d, base, base+base/4)
		}
	}
}

func TestPermanentNil(t *testing.T) {
	t.Parallel()

	if Permanent(nil) != nil {
		t.Errorf("Permanent(nil) should stay nil")
	}
}
