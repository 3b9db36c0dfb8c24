package retry

import (
	"context"
	"time"
)

type fn func(ctx context.Context) error
type shouldRetry func(err error, attempt int) bool

// Do runs f until it succeeds, shouldRetry declines the error, ctx ends, or
// maxAttempts calls have been made. The last error is returned. backoff is
// multiplied by the attempt number between calls; zero means no wait.
func Do(ctx context.Context, maxAttempts int, backoff time.Duration, shouldRetry shouldRetry, f fn) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	attempt := 0

	for {
		err := f(ctx)
		if err == nil {
			return nil
		}

		attempt++

		if attempt >= maxAttempts || !shouldRetry(err, attempt) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if backoff > 0 {
			timer := time.NewTimer(time.Duration(attempt) * backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
}
