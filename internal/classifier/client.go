package classifier

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"intake-service/internal/prompt"
)

const (
	// DefaultTimeout is the hard per-call budget.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxAttempts bounds total tries, first call included.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay seeds the exponential backoff.
	DefaultBaseDelay = 100 * time.Millisecond
)

// Config tunes the retrying classifier client.
type Config struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
}

// Client wraps a Generator with a per-call timeout and a selective
// exponential-backoff retry policy. Only transient kinds (timeout, rate
// limit, transport, 5xx) are retried; auth and validation failures fail
// fast. Each retry is a fresh attempt, never a resumption.
type Client struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

// New creates a retrying classifier client.
func New(gen Generator, cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	return &Client{gen: gen, cfg: cfg, logger: logger}
}

// Classify invokes the provider and returns its raw output text.
func (c *Client) Classify(ctx context.Context, p prompt.Prompt) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BaseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 1 // full jitter
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	var raw string
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		text, err := c.gen.Generate(callCtx, p)
		if err != nil {
			kind := KindOf(err)
			if !kind.Retryable() {
				c.logger.Error("provider call failed, not retrying",
					zap.String("kind", kind.String()),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return backoff.Permanent(err)
			}
			c.logger.Warn("provider call failed, will retry",
				zap.String("kind", kind.String()),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.cfg.MaxAttempts),
				zap.Error(err))
			return err
		}
		raw = text
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return raw, nil
}
