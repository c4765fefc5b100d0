package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// ResilientOptions configures the call policy around an embedder.
type ResilientOptions struct {
	// Timeout bounds each provider call. Zero disables the per-call timeout.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a failed call.
	MaxRetries int

	// Backoff is multiplied by the attempt number before each retry.
	Backoff time.Duration

	// RateLimit caps calls per second. Zero means unlimited.
	RateLimit float64

	// Observe, if set, is called after every attempt.
	Observe func(d time.Duration, err error)
}

// Resilient wraps an embedder with timeout, bounded retry and rate limiting.
// Every failure it returns wraps domain.ErrEmbedding.
type Resilient struct {
	inner   port.Embedder
	opts    ResilientOptions
	limiter *rate.Limiter
}

func NewResilient(inner port.Embedder, opts ResilientOptions) *Resilient {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	r := &Resilient{inner: inner, opts: opts}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return r
}

func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w (last error: %v)", domain.ErrEmbedding, ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * r.opts.Backoff):
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrEmbedding, err)
			}
		}

		vec, err := r.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, lastErr)
}

func (r *Resilient) embedOnce(ctx context.Context, text string) ([]float32, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	vec, err := r.inner.Embed(ctx, text)
	if r.opts.Observe != nil {
		r.opts.Observe(time.Since(start), err)
	}
	return vec, err
}

func (r *Resilient) ModelName() string {
	return r.inner.ModelName()
}
