// Package backoff computes retry delays for failed job attempts.
// The calculator is a pure function over an injectable random source,
// so delay sequences are trivially unit-testable.
package backoff

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy selects the delay growth curve.
type Strategy string

const (
	// StrategyConstant uses the base delay for every retry.
	StrategyConstant Strategy = "constant"
	// StrategyLinear grows the delay linearly with the attempt number.
	StrategyLinear Strategy = "linear"
	// StrategyExponential doubles the delay each attempt.
	StrategyExponential Strategy = "exponential"
)

// Policy configures retry behavior. It is shared, immutable configuration
// read by the calculator.
type Policy struct {
	// Enabled turns retries on. When false, a failed job goes straight
	// to the failed state.
	Enabled bool

	// MaxRetries is the retry budget per job. Jobs that exhaust it are
	// dead-lettered.
	MaxRetries int

	// Strategy selects the growth curve for the delay.
	Strategy Strategy

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay, jitter included. Zero means no cap.
	MaxDelay time.Duration

	// MinJitter and MaxJitter bound the jitter ratio, both in [0, 1].
	// The ratio is sampled uniformly from [MinJitter, MaxJitter] and
	// applied as delay * (1 + ratio), spreading out synchronized retries.
	MinJitter float64
	MaxJitter float64
}

// DefaultPolicy returns the engine's default retry policy: three retries
// with exponential backoff from 5s capped at 5m, up to 20% jitter.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:    true,
		MaxRetries: 3,
		Strategy:   StrategyExponential,
		BaseDelay:  5 * time.Second,
		MaxDelay:   5 * time.Minute,
		MinJitter:  0.0,
		MaxJitter:  0.2,
	}
}

// Validate reports configuration errors in the policy.
func (p Policy) Validate() error {
	switch p.Strategy {
	case StrategyConstant, StrategyLinear, StrategyExponential:
	default:
		return fmt.Errorf("backoff: unknown strategy %q", p.Strategy)
	}

	if p.MaxRetries < 0 {
		return fmt.Errorf("backoff: negative MaxRetries %d", p.MaxRetries)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("backoff: negative BaseDelay %v", p.BaseDelay)
	}
	if p.MinJitter < 0 || p.MinJitter > 1 {
		return fmt.Errorf("backoff: MinJitter %v outside [0,1]", p.MinJitter)
	}
	if p.MaxJitter < 0 || p.MaxJitter > 1 {
		return fmt.Errorf("backoff: MaxJitter %v outside [0,1]", p.MaxJitter)
	}
	if p.MinJitter > p.MaxJitter {
		return fmt.Errorf("backoff: MinJitter %v > MaxJitter %v", p.MinJitter, p.MaxJitter)
	}

	return nil
}

// Calculator computes retry delays from a Policy. It holds only its random
// source and is safe for concurrent use when that source is.
type Calculator struct {
	randFloat func() float64
}

// NewCalculator creates a calculator backed by math/rand/v2.
func NewCalculator() *Calculator {
	return &Calculator{randFloat: rand.Float64}
}

// NewCalculatorWithRand creates a calculator with an injected random
// source returning values in [0, 1). Used by tests for determinism.
func NewCalculatorWithRand(randFloat func() float64) *Calculator {
	return &Calculator{randFloat: randFloat}
}

// Delay returns how long to wait before the next retry. attempt is the
// number of retries already performed, so the first retry passes 0.
//
// The delay grows per the policy's strategy, is capped at MaxDelay,
// stretched by a jitter ratio sampled from [MinJitter, MaxJitter], and
// re-clamped to [0, MaxDelay].
func (c *Calculator) Delay(attempt int, p Policy) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	base := float64(p.BaseDelay)

	var d float64
	switch p.Strategy {
	case StrategyConstant:
		d = base
	case StrategyLinear:
		d = base * float64(attempt+1)
	default:
		d = base * math.Pow(2, float64(attempt))
	}

	maxDelay := float64(p.MaxDelay)
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}

	if p.MaxJitter > 0 {
		ratio := p.MinJitter + c.randFloat()*(p.MaxJitter-p.MinJitter)
		d *= 1 + ratio

		if maxDelay > 0 && d > maxDelay {
			d = maxDelay
		}
	}

	if d < 0 {
		d = 0
	}

	return time.Duration(d)
}
