package graph

import (
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{"zero attempts invalid", RetryPolicy{MaxAttempts: 0}, true},
		{"one attempt valid", RetryPolicy{MaxAttempts: 1}, false},
		{"maxDelay below baseDelay invalid", RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 500 * time.Millisecond}, true},
		{"default gateway policy valid", DefaultGatewayRetryPolicy(nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestComputeBackoffCapped(t *testing.T) {
	base := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	for attempt := 0; attempt < 10; attempt++ {
		d := computeBackoff(attempt, base, maxDelay, nil)
		if d < 0 {
			t.Fatalf("attempt %d: negative backoff %v", attempt, d)
		}
		if d > maxDelay+base {
			t.Fatalf("attempt %d: backoff %v exceeds cap+jitter bound", attempt, d)
		}
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Retryable:   func(error) bool { return true },
	}

	attempts := 0
	err := Retry(nil, policy, nil, func(attempt int) error {
		attempts++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Retryable: func(error) bool { return false }}

	attempts := 0
	wantErr := errors.New("fatal")
	err := Retry(nil, policy, nil, func(int) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retry() error = %v, want %v", err, wantErr)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry for non-retryable error)", attempts)
	}
}

func TestRetryStopsOnCancellation(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: 50 * time.Millisecond, Retryable: func(error) bool { return true }}

	done := make(chan struct{})
	close(done)

	attempts := 0
	_ = Retry(done, policy, nil, func(int) error {
		attempts++
		return errors.New("transient")
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (cancellation preempts further retries)", attempts)
	}
}
