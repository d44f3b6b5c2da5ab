package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"todo-tracker/internal/config"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Config struct {
	RequestsPerMin  int
	BurstSize       int
	CleanupInterval time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		RequestsPerMin:  100,
		BurstSize:       10,
		CleanupInterval: 10 * time.Minute,
	}
}

func ConfigFrom(cfg config.RateLimitConfig) *Config {
	return &Config{
		RequestsPerMin:  cfg.RequestsPerMin,
		BurstSize:       cfg.BurstSize,
		CleanupInterval: cfg.CleanupInterval,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process token bucket per key. Idle keys are swept
// lazily from Allow once CleanupInterval has passed since the last sweep.
type LocalLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLocalLimiter(cfg *Config) *LocalLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &LocalLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(cfg.RequestsPerMin) / 60.0),
		burst:     burst,
		idleTTL:   cfg.CleanupInterval,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1), nil
}

func (l *LocalLimiter) sweep(now time.Time) {
	if l.idleTTL <= 0 || now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) >= l.idleTTL {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}

// Len reports how many keys are currently tracked.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
