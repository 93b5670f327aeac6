package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of timeout. A zero timeout runs fn with
// ctx unchanged. Expiry of the local deadline is reported as
// context.DeadlineExceeded naming the operation; parent cancellation passes
// through as is.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (limit %v)", name, context.DeadlineExceeded, timeout)
	}
	return err
}
