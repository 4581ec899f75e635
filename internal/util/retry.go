package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, making at most maxAttempts calls and
// doubling the pause between them starting from baseDelay. Market-data
// fetches routinely hit transient 429s and timeouts; a short exponential
// backoff absorbs those without hiding persistent failures, whose last error
// is returned unchanged.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt >= maxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(baseDelay << (attempt - 1)):
		}
	}
}
