package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/rentradar/internal/logging"
)

// Retry runs an operation with exponential back-off.
type Retry struct {
	Attempts  int
	BaseDelay time.Duration
	Log       *logging.Logger
}

// Do runs fn until it succeeds, the attempts run out or ctx is done.
// Captcha and parse failures are not retried since another try would
// see the same page.
func (r Retry) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.BaseDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrCaptcha) || errors.Is(lastErr, ErrNoAddress) || ctx.Err() != nil {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		r.Log.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
			name, attempt, attempts, lastErr, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}
