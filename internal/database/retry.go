package database

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"
)

// Retryer retries an operation with exponential backoff and jitter.
type Retryer struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// NewRetryer returns a Retryer suited to reconnecting a dropped database link.
func NewRetryer() *Retryer {
	return &Retryer{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Retry runs fn until it succeeds, the attempts run out, or ctx is done.
func (r *Retryer) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == r.MaxRetries {
			break
		}

		delay := r.delay(attempt)
		slog.DebugContext(ctx, "Retry attempt failed, backing off",
			"event", "retry_attempt", "version", "1.0",
			"attempt", attempt+1, "max_attempts", r.MaxRetries+1,
			"delay_ms", delay.Milliseconds(), "error", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("operation failed after %d attempts: %w", r.MaxRetries+1, lastErr)
}

func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.BaseDelay) * math.Pow(r.Multiplier, float64(attempt))
	if d > float64(r.MaxDelay) {
		d = float64(r.MaxDelay)
	}
	if r.Jitter {
		// up to 25% extra
		d += rand.Float64() * d * 0.25
	}
	return time.Duration(d)
}
