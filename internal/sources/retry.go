package sources

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	maxAttempts = 3
	backoffUnit = 2 * time.Second
)

// withRetry runs fn up to maxAttempts times with linear backoff. Only
// transient failures (rate limits, upstream 5xx, network resets) are
// retried; anything else fails immediately.
func withRetry(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt+1) * backoffUnit
			logger.Warn("重试请求", "op", op, "attempt", attempt+1, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
	}
	return err
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{"429", "500", "502", "503", "timeout", "connection reset"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
