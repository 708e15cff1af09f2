package sandbox

import (
	"context"
	"fmt"
	"time"
)

// waitUntil polls fn at a fixed interval until it reports true, the timeout
// elapses, or the context is cancelled. Bounded operations only; no
// backoff.
func waitUntil(ctx context.Context, timeout, interval time.Duration, fn func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := fn(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			return fmt.Errorf("%w: condition not met within %s", ErrTimeout, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
