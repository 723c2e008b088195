package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second
)

// RetryConfig bounds retries of transient backend failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

type retryingProvider struct {
	Provider
	cfg    RetryConfig
	logger *slog.Logger
}

// WithRetry retries transport errors, 429 and 5xx responses with exponential backoff.
// A Retry-After hint from the backend wins over the computed delay, up to MaxDelay.
func WithRetry(p Provider, cfg RetryConfig, logger *slog.Logger) Provider {
	if cfg.MaxRetries <= 0 {
		return p
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryMaxDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryingProvider{Provider: p, cfg: cfg, logger: logger}
}

func (r *retryingProvider) Unwrap() Provider { return r.Provider }

func (r *retryingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		vec, err := r.Provider.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		var backendErr *BackendError
		if !errors.As(err, &backendErr) || !backendErr.Temporary() || attempt >= r.cfg.MaxRetries {
			return nil, err
		}

		delay := r.delay(attempt)
		if backendErr.RetryAfter > delay {
			delay = min(backendErr.RetryAfter, r.cfg.MaxDelay)
		}
		r.logger.Warn("embedding request failed, retrying",
			"provider", r.Name(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
}

func (r *retryingProvider) delay(attempt int) time.Duration {
	d := r.cfg.BaseDelay << attempt
	if d <= 0 || d > r.cfg.MaxDelay {
		return r.cfg.MaxDelay
	}
	return d
}
