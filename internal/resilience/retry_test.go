package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(3), func(context.Context) error {
		attempts++
		return nil
	}, nil, nil)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_DefaultIsSingleAttempt(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func(context.Context) error {
		attempts++
		return errors.New("boom")
	}, nil, nil)

	if err == nil || attempts != 1 {
		t.Errorf("got err=%v after %d attempts, want an error after 1", err, attempts)
	}
}

func TestRetry_FailureThenSuccess(t *testing.T) {
	attempts := 0
	var retried []int
	err := Retry(context.Background(), fastConfig(5), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, nil, func(attempt int, _ error, _ time.Duration) {
		retried = append(retried, attempt)
	})

	if err != nil {
		t.Errorf("Expected no error after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if fmt.Sprint(retried) != "[1 2]" {
		t.Errorf("onRetry attempts = %v, want [1 2]", retried)
	}
}

func TestRetry_MaxAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(2), func(context.Context) error {
		attempts++
		return errors.New("persistent error")
	}, nil, nil)

	if err == nil {
		t.Error("Expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(5), func(context.Context) error {
		attempts++
		return errors.New("bad request")
	}, IsRetryable, nil)

	if err == nil || attempts != 1 {
		t.Errorf("got err=%v after %d attempts, want an error after 1", err, attempts)
	}
}

func TestRetry_RetryableErrorIsRetried(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastConfig(3), func(context.Context) error {
		attempts++
		return NewRetryableError(errors.New("503"))
	}, IsRetryable, nil)

	if err == nil || attempts != 3 {
		t.Errorf("got err=%v after %d attempts, want an error after 3", err, attempts)
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffMultiplier: 2}

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, config, func(context.Context) error {
			attempts++
			return errors.New("fail")
		}, nil, nil)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected the last error")
		}
		if attempts != 1 {
			t.Errorf("attempts = %d, want 1", attempts)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Retry() ignored context cancellation")
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{5, time.Second},
	}
	for _, tt := range tests {
		got := CalculateBackoff(tt.attempt, 100*time.Millisecond, time.Second, 2.0)
		if got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	base := errors.New("upstream")
	wrapped := fmt.Errorf("transcribe: %w", NewRetryableError(base))

	if !IsRetryable(wrapped) {
		t.Error("wrapped RetryableError should be retryable")
	}
	if !errors.Is(wrapped, base) {
		t.Error("RetryableError should unwrap to its cause")
	}
	if IsRetryable(base) {
		t.Error("plain error should not be retryable")
	}
	if NewRetryableError(nil) != nil {
		t.Error("NewRetryableError(nil) should be nil")
	}
}
