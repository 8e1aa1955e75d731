package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"intake-service/internal/prompt"
)

// RateLimiter implements token bucket rate limiting.
type RateLimiter struct {
	mu              sync.Mutex
	tokens          int
	maxTokens       int
	refillRate      time.Duration
	lastRefill      time.Time
	minuteResetTime time.Time
}

// defaultRequestsPerMinute is a conservative free-tier budget.
const defaultRequestsPerMinute = 8

// NewRateLimiter creates a new rate limiter. Non-positive rates fall back
// to the default.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRequestsPerMinute
	}
	return &RateLimiter{
		tokens:          requestsPerMinute,
		maxTokens:       requestsPerMinute,
		refillRate:      time.Minute / time.Duration(requestsPerMinute),
		lastRefill:      time.Now(),
		minuteResetTime: time.Now().Add(time.Minute),
	}
}

// Wait blocks until a token is available.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()

	now := time.Now()
	if now.After(rl.minuteResetTime) {
		rl.minuteResetTime = now.Add(time.Minute)
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
	}

	elapsed := now.Sub(rl.lastRefill)
	tokensToAdd := int(elapsed / rl.refillRate)
	if tokensToAdd > 0 {
		rl.tokens += tokensToAdd
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens <= 0 {
		waitTime := rl.refillRate
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
			rl.mu.Lock()
			rl.tokens = 1
			rl.lastRefill = time.Now()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	rl.tokens--
	rl.mu.Unlock()
	return nil
}

// RateLimitedGenerator wraps a Generator with rate limiting.
type RateLimitedGenerator struct {
	gen     Generator
	limiter *RateLimiter
	name    string
}

// NewRateLimitedGenerator wraps a generator with rate limiting.
func NewRateLimitedGenerator(gen Generator, requestsPerMinute int, name string) *RateLimitedGenerator {
	return &RateLimitedGenerator{
		gen:     gen,
		limiter: NewRateLimiter(requestsPerMinute),
		name:    name,
	}
}

func (g *RateLimitedGenerator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return g.gen.Generate(ctx, p)
}

// MultiGenerator routes calls across several rate-limited providers with
// fallback. A provider is benched after maxFailures consecutive failures, or
// immediately when it reports a rate limit; the next call starts from the
// provider currently in rotation.
type MultiGenerator struct {
	generators   []*RateLimitedGenerator
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// NewMultiGenerator creates a multi-provider generator. maxFailures <= 0
// falls back to 3.
func NewMultiGenerator(generators []*RateLimitedGenerator, maxFailures int, logger *zap.Logger) (*MultiGenerator, error) {
	if len(generators) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return &MultiGenerator{
		generators:   generators,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}, nil
}

func (m *MultiGenerator) current() (*RateLimitedGenerator, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generators[m.currentIndex], m.currentIndex
}

func (m *MultiGenerator) switchToNext() {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldIndex := m.currentIndex
	m.currentIndex = (m.currentIndex + 1) % len(m.generators)

	m.logger.Info("Switching provider",
		zap.String("from", m.generators[oldIndex].name),
		zap.String("to", m.generators[m.currentIndex].name))
}

func (m *MultiGenerator) recordFailure(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failureCount[index]++
	if m.failureCount[index] >= m.maxFailures {
		m.logger.Warn("Provider reached max failures",
			zap.String("provider", m.generators[index].name),
			zap.Int("failures", m.failureCount[index]))
		return true
	}
	return false
}

func (m *MultiGenerator) resetFailureCount(index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCount[index] = 0
}

// Generate tries the current provider, falling back to the next on failure.
// Permanent request errors (auth, invalid request) are not worth handing to
// another provider carrying the same request, so they return immediately.
func (m *MultiGenerator) Generate(ctx context.Context, p prompt.Prompt) (string, error) {
	var lastErr error
	for attempts := 0; attempts < len(m.generators); attempts++ {
		gen, index := m.current()

		text, err := gen.Generate(ctx, p)
		if err == nil {
			m.resetFailureCount(index)
			return text, nil
		}
		lastErr = err

		kind := KindOf(err)
		if kind == KindAuth && len(m.generators) > 1 {
			// Credentials are per provider; another one may still work.
			m.logger.Error("Provider auth failed, switching",
				zap.String("provider", gen.name),
				zap.Error(err))
			m.switchToNext()
			continue
		}
		if !kind.Retryable() {
			return "", err
		}

		m.logger.Error("Provider failed",
			zap.String("provider", gen.name),
			zap.String("kind", kind.String()),
			zap.Error(err))

		if m.recordFailure(index) || kind == KindRateLimited {
			m.switchToNext()
		}
	}

	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// Close closes every provider that holds resources.
func (m *MultiGenerator) Close() error {
	var lastErr error
	for _, gen := range m.generators {
		if closer, ok := gen.gen.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				m.logger.Error("Failed to close provider",
					zap.String("provider", gen.name),
					zap.Error(err))
				lastErr = err
			}
		}
	}
	return lastErr
}
