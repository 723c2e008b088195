package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedProvider struct {
	Provider
	limiter *rate.Limiter
}

// RateLimited paces calls through a token bucket. A non-positive rate disables pacing.
func RateLimited(p Provider, requestsPerSecond float64, burst int) Provider {
	if requestsPerSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimitedProvider{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

func (r *rateLimitedProvider) Unwrap() Provider { return r.Provider }

func (r *rateLimitedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for embedding rate limit failed: %w", err)
	}
	return r.Provider.Embed(ctx, text)
}
