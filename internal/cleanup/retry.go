package cleanup

import (
	"context"
	"fmt"
	"time"
)

const (
	retryAttempts     = 3
	retryInitialDelay = 1 * time.Second
	retryMaxDelay     = 10 * time.Second
)

// retry runs fn up to retryAttempts times with exponential backoff between
// attempts. Context cancellation stops retrying immediately; the last
// attempt's error is returned once attempts are exhausted.
func (s *Service) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	delay := retryInitialDelay
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt > 1 {
			s.Logger.DebugContext(ctx, "retrying action",
				"op", op, "attempt", attempt, "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
