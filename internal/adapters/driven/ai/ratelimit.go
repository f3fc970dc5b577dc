package ai

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// DefaultBackoff is how long callers wait after a provider answers 429.
const DefaultBackoff = 10 * time.Second

// RateLimiter throttles provider calls with a token bucket and backs off
// after the provider reports it is rate limited.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

// NewRateLimiter creates a limiter from settings.
// Returns nil when RequestsPerSecond is zero, which disables limiting.
func NewRateLimiter(cfg domain.RateLimitSettings) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		backoff: DefaultBackoff,
	}
}

// Wait blocks until a call may proceed, honouring any pending backoff.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// Observe records the outcome of a call and starts a backoff on ErrRateLimited.
func (r *RateLimiter) Observe(err error) {
	if !errors.Is(err, domain.ErrRateLimited) {
		return
	}
	r.mu.Lock()
	r.retryAt = time.Now().Add(r.backoff)
	r.mu.Unlock()
}

// rateLimitedEmbedding wraps an embedding service with a RateLimiter.
type rateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *RateLimiter
}

// WithEmbeddingRateLimit wraps svc so every call waits on limiter.
// A nil limiter returns svc unchanged.
func WithEmbeddingRateLimit(svc driven.EmbeddingService, limiter *RateLimiter) driven.EmbeddingService {
	if svc == nil || limiter == nil {
		return svc
	}
	return &rateLimitedEmbedding{EmbeddingService: svc, limiter: limiter}
}

func (s *rateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := s.EmbeddingService.Embed(ctx, text)
	s.limiter.Observe(err)
	return vec, err
}

func (s *rateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	s.limiter.Observe(err)
	return vecs, err
}

// rateLimitedLLM wraps an LLM service with a RateLimiter.
type rateLimitedLLM struct {
	driven.LLMService
	limiter *RateLimiter
}

// WithLLMRateLimit wraps svc so every call waits on limiter.
// A nil limiter returns svc unchanged.
func WithLLMRateLimit(svc driven.LLMService, limiter *RateLimiter) driven.LLMService {
	if svc == nil || limiter == nil {
		return svc
	}
	return &rateLimitedLLM{LLMService: svc, limiter: limiter}
}

func (s *rateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.LLMService.Chat(ctx, messages, opts)
	s.limiter.Observe(err)
	return out, err
}
