package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/wikisearch/pkg/errors"
)

// WithTimeout runs fn under a deadline. Running out of time is reported as
// apperrors.ErrTimeout; cancellation of ctx itself is passed through. A
// non-positive timeout runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(tctx)
	if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w after %v: %v", name, apperrors.ErrTimeout, timeout, err)
	}
	return err
}
