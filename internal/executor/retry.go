package executor

import (
	"fmt"
	"time"
)

// Retry runs fn up to attempts times, sleeping interval between tries.
// Every polling and retry loop in the codebase goes through here so the
// bound (attempts x interval) is explicit at each call site and nothing
// can spin indefinitely.
func Retry(attempts int, interval time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(interval)
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
