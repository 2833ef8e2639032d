package copilot

import (
	"fmt"
	"time"

	"github.com/ronnygunawan/RG.OpenCopilot-sub005/backoff"
)

// Config holds configuration for the job engine.
type Config struct {
	// MaxConcurrency is the maximum number of jobs processed concurrently.
	MaxConcurrency int

	// MaxQueueSize is the maximum number of jobs the queue will hold,
	// counting both ready and delayed jobs. Dispatch fails fast once the
	// queue is full.
	MaxQueueSize int

	// EnablePrioritization controls dequeue ordering. When true, higher
	// Priority jobs dequeue first and equal priorities preserve FIFO
	// order. When false, the queue is pure FIFO.
	EnablePrioritization bool

	// ShutdownTimeout is the maximum time to wait for in-flight jobs
	// during graceful shutdown.
	ShutdownTimeout time.Duration

	// Retry is the engine-wide retry policy applied to failed jobs.
	Retry backoff.Policy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:       2,
		MaxQueueSize:         100,
		EnablePrioritization: true,
		ShutdownTimeout:      30 * time.Second,
		Retry:                backoff.DefaultPolicy(),
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("copilot: MaxConcurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.MaxQueueSize < 0 {
		return fmt.Errorf("copilot: negative MaxQueueSize %d", c.MaxQueueSize)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("copilot: negative ShutdownTimeout %v", c.ShutdownTimeout)
	}

	return c.Retry.Validate()
}
