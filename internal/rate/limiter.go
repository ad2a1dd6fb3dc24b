// Package rate throttles outbound Gmail API calls. Cleanup runs issue one
// mutation per planned action, so the executor waits on a limiter before
// every call to stay inside per-user quota.
package rate

import (
	"context"
	"fmt"
	"time"
)

// Limiter gates outbound API calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases up to burst tokens at a fixed refill rate.
type TokenBucket struct {
	ticker   *time.Ticker
	tokens   chan struct{}
	stop     chan struct{}
	stopDone chan struct{}
}

// NewTokenBucket returns a limiter refilling rps tokens per second with a
// burst capacity of the same size. Non-positive rates are clamped to 1.
func NewTokenBucket(rps int) *TokenBucket {
	return NewTokenBucketBurst(rps, rps)
}

// NewTokenBucketBurst returns a limiter refilling rps tokens per second
// holding at most burst unclaimed tokens.
func NewTokenBucketBurst(rps, burst int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		ticker:   time.NewTicker(time.Second / time.Duration(rps)),
		tokens:   make(chan struct{}, burst),
		stop:     make(chan struct{}),
		stopDone: make(chan struct{}),
	}
	// the first call proceeds without waiting a full refill interval
	tb.tokens <- struct{}{}
	go tb.refill()
	return tb
}

func (t *TokenBucket) refill() {
	defer close(t.stopDone)
	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop releases resources held by the limiter. It must be called at most
// once.
func (t *TokenBucket) Stop() {
	t.ticker.Stop()
	close(t.stop)
	<-t.stopDone
}

// Unlimited never blocks. Dry runs issue no API mutations, so they run
// against this.
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rate wait canceled: %w", err)
	}
	return nil
}

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = Unlimited{}
)
