package conn

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReconnectPolicyRunFirstTrySucceeds(t *testing.T) {
	policy := ReconnectPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	calls := 0
	retries := 0
	err := policy.Run(context.Background(), func() error {
		calls++
		return nil
	}, func(int, error) {
		retries++
	})

	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if calls != 1 {
		t.Errorf("connect calls = %d, want 1", calls)
	}
	if retries != 0 {
		t.Errorf("retries = %d, want 0", retries)
	}
}

func TestReconnectPolicyRunRecoversAfterFailures(t *testing.T) {
	policy := ReconnectPolicy{MaxAttempts: 3, Delay: time.Millisecond, Backoff: 2}

	calls := 0
	var attempts []int
	err := policy.Run(context.Background(), func() error {
		calls++
		if calls <= 2 {
			return errors.New("connection refused")
		}
		return nil
	}, func(attempt int, cause error) {
		attempts = append(attempts, attempt)
		if cause == nil {
			t.Error("onRetry cause should not be nil")
		}
	})

	if err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("connect calls = %d, want 3", calls)
	}
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("retry attempts = %v, want [1 2]", attempts)
	}
}

func TestReconnectPolicyRunExhaustsBudget(t *testing.T) {
	policy := ReconnectPolicy{MaxAttempts: 2, Delay: time.Millisecond}

	calls := 0
	retries := 0
	wantErr := errors.New("host unreachable")
	err := policy.Run(context.Background(), func() error {
		calls++
		return wantErr
	}, func(int, error) {
		retries++
	})

	if !errors.Is(err, wantErr) {
		t.Fatalf("Run() error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("connect calls = %d, want 3 (initial + 2 retries)", calls)
	}
	if retries != 2 {
		t.Errorf("retries = %d, want 2", retries)
	}
}

func TestReconnectPolicyRunNoRetries(t *testing.T) {
	policy := ReconnectPolicy{}

	calls := 0
	err := policy.Run(context.Background(), func() error {
		calls++
		return errors.New("down")
	}, nil)

	if err == nil {
		t.Fatal("Run() error = nil, want failure")
	}
	if calls != 1 {
		t.Errorf("connect calls = %d, want 1", calls)
	}
}

func TestReconnectPolicyRunContextCancelled(t *testing.T) {
	policy := ReconnectPolicy{MaxAttempts: 5, Delay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- policy.Run(ctx, func() error {
			return errors.New("down")
		}, nil)
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestTruncateForLog(t *testing.T) {
	if got := truncateForLog("short", 10); got != "short" {
		t.Errorf("truncateForLog(short) = %q", got)
	}
	got := truncateForLog(strings.Repeat("x", 20), 10)
	if got != strings.Repeat("x", 10)+"... [truncated]" {
		t.Errorf("truncateForLog(long) = %q", got)
	}
}

func TestDefaultReconnectPolicy(t *testing.T) {
	p := DefaultReconnectPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.Delay != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", p.Delay)
	}
	if p.Backoff != 1.5 {
		t.Errorf("Backoff = %v, want 1.5", p.Backoff)
	}
}
