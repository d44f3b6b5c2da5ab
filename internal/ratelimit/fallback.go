package ratelimit

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
)

// FallbackLimiter consults the primary limiter through a circuit breaker and
// answers from the secondary whenever the primary errors or the breaker is
// open. It never returns an error itself.
type FallbackLimiter struct {
	primary   Limiter
	secondary Limiter
	breaker   *CircuitBreaker
	logger    *log.Logger
}

func NewFallbackLimiter(primary, secondary Limiter, breaker *CircuitBreaker, logger *log.Logger) *FallbackLimiter {
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FallbackLimiter{
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		logger:    logger,
	}
}

func (f *FallbackLimiter) Allow(ctx context.Context, key string) (bool, error) {
	var allowed bool
	err := f.breaker.Execute(func() error {
		var err error
		allowed, err = f.primary.Allow(ctx, key)
		return err
	})
	if err == nil {
		return allowed, nil
	}

	if !errors.Is(err, ErrCircuitBreakerOpen) {
		f.logger.Warn("distributed rate limiter failed, using local limiter", "err", err, "breaker", f.breaker.GetState())
	}
	return f.secondary.Allow(ctx, key)
}

func (f *FallbackLimiter) Breaker() *CircuitBreaker {
	return f.breaker
}
