package retry

import (
	"context"
	"fmt"
	"time"
)

// Do calls fn until it succeeds, attempts are used up, or ctx is done.
// The delay between attempts is constant. The last error is wrapped in the result.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("gave up after %d attempts: %w", i+1, ctx.Err())
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
