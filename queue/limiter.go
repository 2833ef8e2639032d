package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// TypeConfig defines per-job-type behaviour such as rate limiting and
// concurrency caps.
type TypeConfig struct {
	// Type is the job type this config applies to.
	Type string

	// MaxConcurrency limits how many jobs of this type may run
	// simultaneously across the worker pool. Zero means no type-specific
	// limit (pool-wide concurrency still applies).
	MaxConcurrency int

	// RateLimit is the maximum sustained jobs per second of this type
	// that may start. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// typeState tracks runtime state for a single job type.
type typeState struct {
	config  TypeConfig
	limiter *rate.Limiter
	active  int
}

// Limiter controls per-job-type rate limiting and concurrency.
// It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	types map[string]*typeState
}

// NewLimiter creates a Limiter with the given type configurations.
// Job types not listed here have no limits.
func NewLimiter(configs ...TypeConfig) *Limiter {
	l := &Limiter{
		types: make(map[string]*typeState, len(configs)),
	}
	for _, cfg := range configs {
		l.types[cfg.Type] = newTypeState(cfg)
	}

	return l
}

func newTypeState(cfg TypeConfig) *typeState {
	ts := &typeState{config: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		ts.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return ts
}

// Acquire checks rate and concurrency limits for the given job type. If
// the job is allowed to proceed it increments the active counter and
// returns true. The caller MUST call Release when the job completes.
func (l *Limiter) Acquire(jobType string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := l.types[jobType]
	if ts == nil {
		return true
	}

	// Cap first: a job rejected on concurrency must not consume a rate
	// token, or cap rejections would starve the type's rate budget.
	if ts.config.MaxConcurrency > 0 && ts.active >= ts.config.MaxConcurrency {
		return false
	}
	if ts.limiter != nil && !ts.limiter.Allow() {
		return false
	}

	ts.active++

	return true
}

// Release decrements the active count for the job type.
func (l *Limiter) Release(jobType string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[jobType]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// SetTypeConfig dynamically updates (or creates) a type configuration.
// The current active count survives reconfiguration.
func (l *Limiter) SetTypeConfig(cfg TypeConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.types[cfg.Type]
	ts := newTypeState(cfg)
	if existing != nil {
		ts.active = existing.active
	}
	l.types[cfg.Type] = ts
}

// ActiveCount returns the current number of active jobs for a type.
func (l *Limiter) ActiveCount(jobType string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ts := l.types[jobType]; ts != nil {
		return ts.active
	}

	return 0
}
