package ifxbridge

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes exponential retry delays with an optional jitter.
type Backoff struct {
	// baseDelay is the delay after the first failed attempt
	baseDelay time.Duration

	// maxDelay is the maximum delay between attempts
	maxDelay time.Duration

	// growthFactor is the factor by which delay increases (typically 2.0)
	growthFactor float64

	// jitter adds randomness to prevent thundering herd (0.0-1.0)
	// Jitter of 0.1 means +/- 10% randomness. 0 keeps delays deterministic.
	jitter float64

	// jitterFunc provides random values [0, 1) for jitter calculation
	jitterFunc func() float64
}

// BackoffOption is a functional option for configuring Backoff.
type BackoffOption func(*Backoff)

// WithBaseDelay sets the delay after the first failed attempt.
func WithBaseDelay(d time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.baseDelay = d
	}
}

// WithMaxDelay sets the maximum delay between attempts.
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *Backoff) {
		b.maxDelay = d
	}
}

// WithGrowthFactor sets the factor by which delay increases between attempts.
func WithGrowthFactor(m float64) BackoffOption {
	return func(b *Backoff) {
		b.growthFactor = m
	}
}

// WithJitter sets the jitter factor (0.0-1.0) to add randomness to delays.
func WithJitter(j float64) BackoffOption {
	return func(b *Backoff) {
		b.jitter = j
	}
}

// WithJitterFunc sets a custom function for generating random jitter values.
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *Backoff) {
		b.jitterFunc = f
	}
}

// NewBackoff creates an exponential backoff with package defaults.
// Additional configuration can be provided via functional options.
//
// Example:
//
//	backoff := ifxbridge.NewBackoff(
//	    ifxbridge.WithBaseDelay(200 * time.Millisecond),
//	    ifxbridge.WithMaxDelay(1 * time.Minute),
//	    ifxbridge.WithJitter(0.2),
//	)
func NewBackoff(opts ...BackoffOption) *Backoff {
	b := &Backoff{
		baseDelay:    DefaultRetryBaseDelay,
		maxDelay:     DefaultRetryMaxDelay,
		growthFactor: DefaultRetryGrowthFactor,
		jitter:       0,
		jitterFunc:   nil, // Will use default in Delay
	}

	// Apply options
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Delay calculates the delay after the given failed attempt. Attempts are
// numbered from 1, so Delay(1) is the pause between the first and second
// attempt and always equals the base delay.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	// Calculate base delay: baseDelay * (growthFactor ^ (attempt - 1))
	exponent := float64(attempt - 1)
	delay := float64(b.baseDelay) * math.Pow(b.growthFactor, exponent)

	// Cap at maxDelay. A float overflow compares greater than any cap,
	// so very large attempt numbers still land on maxDelay.
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	// Apply jitter to prevent thundering herd
	if b.jitter > 0 {
		jitterFunc := b.jitterFunc
		if jitterFunc == nil {
			// Default: real randomness for production use.
			// Tests should explicitly set jitterFunc to a deterministic function.
			jitterFunc = rand.Float64
		}

		// Apply jitter: delay * (1 +/- jitter * random)
		// Example: jitter=0.1, random=0.7 => delay * (1 + 0.1 * (0.7 - 0.5) * 2) = delay * 1.02
		randomOffset := (jitterFunc() - 0.5) * 2.0 // Map [0,1) to [-1,1)
		jitterFactor := 1.0 + (b.jitter * randomOffset)
		delay *= jitterFactor
	}

	return time.Duration(delay)
}

// BaseDelay returns the base delay for tests and debugging.
func (b *Backoff) BaseDelay() time.Duration {
	return b.baseDelay
}

// MaxDelay returns the maximum delay for tests and debugging.
func (b *Backoff) MaxDelay() time.Duration {
	return b.maxDelay
}

// GrowthFactor returns the backoff growth factor for tests and debugging.
func (b *Backoff) GrowthFactor() float64 {
	return b.growthFactor
}

// Jitter returns the jitter factor for tests and debugging.
func (b *Backoff) Jitter() float64 {
	return b.jitter
}
