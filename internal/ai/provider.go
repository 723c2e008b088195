// Package ai turns text into embedding vectors through a local Ollama server or
// the hosted OpenAI API.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	DefaultTimeout = 30 * time.Second
)

var (
	// ErrEmbeddingBackend matches every *BackendError via errors.Is.
	ErrEmbeddingBackend = errors.New("embedding backend error")
	ErrEmptyInput       = errors.New("embedding input is empty")
	ErrPingUnsupported  = errors.New("provider does not support health checks")
)

// Provider converts text into a fixed-dimension vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Name() string
	Model() string
	Dimensions() int
}

// Pinger is implemented by providers that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config selects and tunes the embedding backend.
type Config struct {
	Provider   string
	BaseURL    string
	Model      string
	APIKey     string
	Dimensions int
	Timeout    time.Duration

	RequestsPerSecond float64
	Burst             int
	Retry             RetryConfig
}

// NewProvider builds the configured backend wrapped with retry and rate limiting.
// The hosted backend is used only when selected explicitly.
func NewProvider(cfg Config, logger *slog.Logger) (Provider, error) {
	var base Provider
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOllama:
		base = NewOllamaProvider(cfg)
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		base = p
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	p := RateLimited(base, cfg.RequestsPerSecond, cfg.Burst)
	return WithRetry(p, cfg.Retry, logger), nil
}

// BackendError reports an unreachable backend, a non-success status or a malformed response.
type BackendError struct {
	Backend    string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString(e.Backend)
	b.WriteString(" embedding")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " response status %d", e.StatusCode)
	} else {
		b.WriteString(" request failed")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrEmbeddingBackend }

// Temporary reports whether the same request may succeed later.
func (e *BackendError) Temporary() bool {
	if errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case e.StatusCode == 0:
		return e.Err != nil
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= 500
	}
}

// Ping checks the innermost backend that supports health checks.
func Ping(ctx context.Context, p Provider) error {
	for p != nil {
		if pinger, ok := p.(Pinger); ok {
			return pinger.Ping(ctx)
		}
		u, ok := p.(interface{ Unwrap() Provider })
		if !ok {
			break
		}
		p = u.Unwrap()
	}
	return ErrPingUnsupported
}
