package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type transientErr struct{ after time.Duration }

func (e *transientErr) Error() string     { return "transient" }
func (e *transientErr) IsRetryable() bool { return true }
func (e *transientErr) RetryAfter() (time.Duration, bool) {
	return e.after, e.after > 0
}

type permanentErr struct{}

func (permanentErr) Error() string     { return "permanent" }
func (permanentErr) IsRetryable() bool { return false }

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 6 {
		t.Errorf("expected MaxRetries=6, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != 1200*time.Millisecond {
		t.Errorf("expected InitialDelay=1.2s, got %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 16*time.Second {
		t.Errorf("expected MaxDelay=16s, got %v", cfg.MaxDelay)
	}
}

func TestBackoff_ExponentialWithCap(t *testing.T) {
	cfg := DefaultConfig()
	want := []time.Duration{
		1200 * time.Millisecond,
		2400 * time.Millisecond,
		4800 * time.Millisecond,
		9600 * time.Millisecond,
		16 * time.Second,
		16 * time.Second,
	}
	for i, w := range want {
		if got := cfg.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestDoIfRetryable_Success(t *testing.T) {
	calls := 0
	got, err := DoIfRetryable(context.Background(), fastConfig(3), func(attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("expected one call returning ok, got %q after %d calls", got, calls)
	}
}

func TestDoIfRetryable_SuccessAfterRetries(t *testing.T) {
	calls := 0
	_, err := DoIfRetryable(context.Background(), fastConfig(5), func(attempt int) (int, error) {
		calls++
		if calls < 3 {
			return 0, &transientErr{}
		}
		return calls, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoIfRetryable_StopsAfterMaxRetries(t *testing.T) {
	calls := 0
	got, err := DoIfRetryable(context.Background(), fastConfig(4), func(attempt int) (int, error) {
		calls++
		return attempt, &transientErr{}
	})
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	// one initial attempt plus four retries
	if calls != 5 {
		t.Errorf("expected 5 calls, got %d", calls)
	}
	if got != 4 {
		t.Errorf("expected last attempt's result 4, got %d", got)
	}
}

func TestDoIfRetryable_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := DoIfRetryable(context.Background(), fastConfig(5), func(attempt int) (struct{}, error) {
		calls++
		return struct{}{}, permanentErr{}
	})
	if !errors.Is(err, permanentErr{}) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoIfRetryable_RetryAfterHintOverridesBackoff(t *testing.T) {
	cfg := &Config{MaxRetries: 1, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	start := time.Now()
	calls := 0
	_, err := DoIfRetryable(context.Background(), cfg, func(attempt int) (int, error) {
		calls++
		if calls == 1 {
			return 0, &transientErr{after: 10 * time.Millisecond}
		}
		return 1, nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("hint should replace the 1h backoff, waited %v", elapsed)
	}
}

func TestDoIfRetryable_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 10, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := DoIfRetryable(ctx, cfg, func(attempt int) (int, error) {
		return 0, &transientErr{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil must not be retryable")
	}
	if !IsRetryable(&transientErr{}) {
		t.Error("transient error must be retryable")
	}
	if IsRetryable(permanentErr{}) {
		t.Error("permanent error must not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are permanent")
	}
}

func TestApplyJitter_Bounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := applyJitter(base, 0.1)
		if got < 90*time.Millisecond || got > 110*time.Millisecond {
			t.Fatalf("jittered delay %v outside +/-10%% of %v", got, base)
		}
	}
	if applyJitter(base, 0) != base {
		t.Error("zero jitter factor must return the delay unchanged")
	}
}
