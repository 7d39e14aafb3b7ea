package ifxbridge

import "time"

// RetryPolicy decides whether a failed connection attempt should be retried
// and how long to wait before the next one.
//
// Attempts are numbered from 1, and the attempt budget is total: with
// MaxAttempts == 3 the factory is invoked at most three times, the first
// attempt included. Permanent errors stop retrying regardless of the budget.
type RetryPolicy struct {
	maxAttempts int
	backoff     *Backoff
	classifier  Classifier
}

// NewRetryPolicy creates a retry policy. maxAttempts below 1 is treated as 1.
// A nil backoff uses package defaults; a nil classifier disables the
// permanent-error short-circuit.
func NewRetryPolicy(maxAttempts int, backoff *Backoff, classifier Classifier) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff == nil {
		backoff = NewBackoff()
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		backoff:     backoff,
		classifier:  classifier,
	}
}

// NewRetryPolicyFromConfig builds a policy whose backoff follows the given
// retry configuration.
func NewRetryPolicyFromConfig(rc RetryConfig, classifier Classifier) *RetryPolicy {
	backoff := NewBackoff(
		WithBaseDelay(rc.BaseDelay),
		WithMaxDelay(rc.MaxDelay),
		WithGrowthFactor(rc.GrowthFactor),
		WithJitter(rc.Jitter),
	)
	return NewRetryPolicy(rc.MaxAttempts, backoff, classifier)
}

// ShouldRetry reports whether another attempt should follow after attempt
// (1-based) failed with err. It returns false once the attempt budget is
// spent or when err is classified as permanent. Unknown errors are retried;
// misconfiguration is bounded by the budget either way, while giving up on a
// recoverable outage is not.
func (p *RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.maxAttempts {
		return false
	}
	if err != nil && p.classifier != nil && p.classifier.Classify(err) == ClassPermanent {
		return false
	}
	return true
}

// Delay returns the pause after the given failed attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	return p.backoff.Delay(attempt)
}

// MaxAttempts returns the total attempt budget.
func (p *RetryPolicy) MaxAttempts() int {
	return p.maxAttempts
}
