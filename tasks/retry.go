package tasks

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// retryAttempts bounds how many times doWithRetry re-issues a transiently
// failing request before giving up: a handful of attempts, not an
// unbounded loop.
const retryAttempts = 3

// doWithRetry runs fn, retrying on error with exponential backoff.
func doWithRetry(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true}

	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
