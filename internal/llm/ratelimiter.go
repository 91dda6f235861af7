package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider throttles an underlying Provider to a fixed number of
// requests per minute. Chunking fires one completion per file, so a large
// workspace selection would otherwise burst straight into provider-side
// limits.
type RateLimitedProvider struct {
	inner Provider

	mu         sync.Mutex
	capacity   int
	available  int
	refilledAt time.Time
}

// NewRateLimitedProvider wraps provider with a token bucket of rpm requests
// per minute. The bucket starts full.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		inner:      provider,
		capacity:   rpm,
		available:  rpm,
		refilledAt: time.Now(),
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.inner.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	for !r.take() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return r.inner.Complete(ctx, req)
}

// take refills the bucket from elapsed time and consumes one token if any
// is available.
func (r *RateLimitedProvider) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	earned := int(now.Sub(r.refilledAt).Seconds() * float64(r.capacity) / 60.0)
	if earned > 0 {
		r.available += earned
		if r.available > r.capacity {
			r.available = r.capacity
		}
		r.refilledAt = now
	}

	if r.available == 0 {
		return false
	}
	r.available--
	return true
}
