// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff runs op up to maxAttempts times, doubling the pause
// between attempts starting from baseBackoff. Registry pulls are the main
// caller; their failures are usually transient. Cancellation is checked
// before each pause so an abandoned build stops waiting right away.
//
// op reports whether its failure is worth another attempt. When it reports
// false, err is surfaced as-is (nil on success, non-nil on a permanent
// failure); exhausting the attempts surfaces the last error.
func RetryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	baseBackoff time.Duration,
	op func(attempt int) (retry bool, err error),
) error {
	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			time.Sleep(baseBackoff * time.Duration(1<<(attempt-1)))
		}

		retry, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}
