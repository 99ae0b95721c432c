package github

import (
	"context"
	"time"
)

// backoffPolicy bounds conflict retries: an explicit attempt counter with an
// incremental delay function, never unbounded recursion.
type backoffPolicy struct {
	maxAttempts int
	delay       func(attempt int) time.Duration
}

var defaultBackoff = backoffPolicy{
	maxAttempts: 3,
	delay: func(attempt int) time.Duration {
		return time.Duration(attempt) * 500 * time.Millisecond
	},
}

// wait sleeps for the attempt's delay, aborting early if ctx is cancelled.
func (p backoffPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.delay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
