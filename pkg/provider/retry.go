package provider

import (
	"context"
	"log/slog"
	"time"

	"trident/pkg/config"
	providertypes "trident/pkg/provider/types"
)

// RetryPolicy retries errors an adapter marked retryable, waiting
// BaseDelay*attempt between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// RetryPolicyFromConfig converts config values; zero attempts means one.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMS) * time.Millisecond,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	return p
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or
// the attempts are used up. The last error is returned unchanged.
func (p RetryPolicy) Execute(ctx context.Context, log *slog.Logger, fn func(ctx context.Context, attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !providertypes.IsRetryable(lastErr) || attempt == attempts {
			return lastErr
		}

		delay := p.Delay(attempt)
		log.Warn("Retrying transient provider failure", "attempt", attempt, "max_attempts", attempts, "delay_ms", delay.Milliseconds(), "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
