// internal/retry/retry_test.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return NewHTTPError(503, "Service Unavailable", "")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryStopsOnNonRetryableStatus(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return NewHTTPError(404, "Not Found", "")
	})
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if attempts != 1 {
		t.Errorf("404 should not be retried, got %d attempts", attempts)
	}
}

func TestWithRetryClassifiesWrappedErrors(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return fmt.Errorf("failed to fetch page: %w", NewHTTPError(404, "Not Found", ""))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("wrapped 404 should not be retried, got %d attempts", attempts)
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), fastConfig(), func() error {
		attempts++
		return fmt.Errorf("aborted: %w", context.Canceled)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("cancellation should not be retried, got %d attempts", attempts)
	}
}
