package separation

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"stemdeck/internal/logging"
	"stemdeck/internal/services"
)

// withRetry runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. Only idempotent reads go through here.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		delay, retry := c.retryDelay(ctx, lastErr, attempt)
		if !retry {
			return lastErr
		}
		c.logger.Debug("retrying separation request",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(lastErr),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var rateErr *RateLimitedError
	if errors.As(err, &rateErr) {
		if rateErr.RetryAfter > 0 {
			return c.capDelay(rateErr.RetryAfter), true
		}
		return c.backoffDelay(attempt), true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusRequestTimeout || statusErr.StatusCode >= 500 {
			return c.backoffDelay(attempt), true
		}
		return 0, false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) || errors.Is(err, services.ErrTransient) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.retryMaxDelay > 0 && delay >= c.retryMaxDelay {
			return c.retryMaxDelay
		}
	}
	return c.capDelay(delay)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
