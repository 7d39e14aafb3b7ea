package ifxbridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Manager maintains a single cached database connection and re-establishes
// it on demand. It is the Go counterpart of a driver-level reconnect layer:
// callers ask for a connection whenever they need one and the manager
// decides whether the cached one is still trustworthy.
//
// Obtain semantics:
//   - A cached connection inside its validation interval is returned
//     immediately.
//   - A cached connection past the interval is probed first; if the probe
//     fails it is discarded and a fresh connection is established.
//   - Establishment retries transient failures with exponential backoff up
//     to the configured attempt budget, then reports UnavailableError.
//   - Concurrent callers never trigger parallel establishment: one flight
//     runs, everyone blocked on it shares the outcome. A caller whose
//     context expires while waiting receives TimeoutError; the flight keeps
//     running so the next caller benefits.
//
// All methods are safe for concurrent use.
type Manager struct {
	cfg        Config
	factory    Factory
	validator  Validator
	policy     *RetryPolicy
	classifier Classifier
	source     CredentialSource
	logger     Logger
	clock      func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	group singleflight.Group

	mu             sync.Mutex
	handle         *Handle
	nextValidation time.Time
	closed         bool
}

// ManagerOption is a functional option for configuring a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for manager diagnostics.
func WithLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithFactory replaces the default driver-backed connection factory.
func WithFactory(factory Factory) ManagerOption {
	return func(m *Manager) {
		m.factory = factory
	}
}

// WithValidator replaces the default query validator.
func WithValidator(validator Validator) ManagerOption {
	return func(m *Manager) {
		m.validator = validator
	}
}

// WithRetryPolicy replaces the policy derived from the retry configuration.
func WithRetryPolicy(policy *RetryPolicy) ManagerOption {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithClassifier replaces the dialect-default error classifier.
func WithClassifier(classifier Classifier) ManagerOption {
	return func(m *Manager) {
		m.classifier = classifier
	}
}

// WithCredentialSource sets the credential source used by the default
// factory. Token-based sources are queried fresh on every attempt.
func WithCredentialSource(source CredentialSource) ManagerOption {
	return func(m *Manager) {
		m.source = source
	}
}

// WithClock sets the time source used for validation gating.
// Tests use this to step through validation intervals deterministically.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithSleepFunc sets the function used to pause between retry attempts.
// Tests use this to observe and skip the backoff delays.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(m *Manager) {
		m.sleep = sleep
	}
}

// NewManager creates a connection manager for the given configuration.
// Defaults are applied before validation, so only fields that are set and
// inconsistent produce errors.
func NewManager(cfg Config, opts ...ManagerOption) (*Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:   cfg,
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = nopLogger{}
	}
	if m.classifier == nil {
		m.classifier = NewRuleClassifier(DefaultRules(cfg.Dialect))
	}
	if m.policy == nil {
		m.policy = NewRetryPolicyFromConfig(cfg.Retry, m.classifier)
	}
	if m.factory == nil {
		factory, err := NewDriverFactory(cfg, m.source, m.logger)
		if err != nil {
			return nil, err
		}
		m.factory = factory
	}
	if m.validator == nil {
		m.validator = NewQueryValidator(cfg.Validation.Query, cfg.Validation.Timeout)
	}
	if m.sleep == nil {
		m.sleep = sleepContext
	}

	return m, nil
}

// Config returns a copy of the effective configuration, defaults applied.
func (m *Manager) Config() Config {
	return m.cfg
}

// Obtain returns a usable connection handle, establishing or re-validating
// one as needed. The returned handle is shared between callers and owned by
// the manager; callers must not Close it. Use Invalidate to report a broken
// connection instead.
func (m *Manager) Obtain(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TimeoutError{Err: err}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if h := m.handle; h != nil && !m.validationDueLocked() {
		m.mu.Unlock()
		return h, nil
	}
	m.mu.Unlock()

	// The flight runs detached from the caller's context so one caller's
	// deadline cannot poison the outcome every waiter shares.
	start := m.clock()
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan("obtain", func() (interface{}, error) {
		return m.ensure(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, &TimeoutError{Elapsed: m.clock().Sub(start), Err: ctx.Err()}
	}
}

// Invalidate discards the cached connection so the next Obtain establishes
// a fresh one. Callers use it after an error the validator cannot see, such
// as a connection dropped mid-query.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.nextValidation = time.Time{}
	m.mu.Unlock()

	if h != nil {
		m.logger.Verbose("Connection %s invalidated", h.ID())
		if err := h.Close(); err != nil {
			m.logger.Verbose("Error closing invalidated connection %s: %v", h.ID(), err)
		}
	}
}

// Close releases the cached connection and rejects all further Obtain calls
// with ErrManagerClosed. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	if h != nil {
		return h.Close()
	}
	return nil
}

// ensure is the single-flight body: it revalidates the cached handle or
// establishes a new one. Runs on a detached context.
func (m *Manager) ensure(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	h := m.handle
	due := m.validationDueLocked()
	m.mu.Unlock()

	if h != nil {
		if !due {
			return h, nil
		}
		if err := m.validator.Validate(ctx, h); err == nil {
			now := m.clock()
			h.markValidated(now)
			m.mu.Lock()
			if m.cfg.Validation.Interval > 0 {
				m.nextValidation = now.Add(m.cfg.Validation.Interval)
			}
			m.mu.Unlock()
			return h, nil
		} else {
			m.logger.Verbose("Cached connection %s failed validation, reconnecting: %v", h.ID(), err)
			m.discard(h)
		}
	}

	return m.establish(ctx)
}

// establish runs the bounded retry loop around the factory.
func (m *Manager) establish(ctx context.Context) (*Handle, error) {
	start := m.clock()
	attempt := 0
	var lastErr error

	for {
		attempt++

		h, err := m.factory.New(ctx)
		if err == nil {
			now := m.clock()
			m.mu.Lock()
			if m.closed {
				m.mu.Unlock()
				h.Close()
				return nil, ErrManagerClosed
			}
			m.handle = h
			if m.cfg.Validation.Interval > 0 {
				m.nextValidation = now.Add(m.cfg.Validation.Interval)
			}
			m.mu.Unlock()

			if attempt > 1 {
				m.logger.Info("Connected to %s after %d attempts", m.cfg.Endpoint.Addr(), attempt)
			}
			return h, nil
		}

		lastErr = err
		class := m.classifier.Classify(err)
		if class == ClassPermanent {
			// Tag the attempt error so callers can tell a hopeless failure
			// (bad credentials, missing database) from a recoverable outage.
			var connect *ConnectError
			if errors.As(err, &connect) {
				connect.Permanent = true
			}
		}

		if !m.policy.ShouldRetry(attempt, err) {
			if class == ClassPermanent {
				m.logger.Error("Connection attempt %d failed permanently, not retrying: %v", attempt, err)
			} else {
				m.logger.Error("Connection attempt %d/%d failed, giving up: %v",
					attempt, m.policy.MaxAttempts(), err)
			}
			break
		}

		delay := m.policy.Delay(attempt)
		m.logger.Verbose("Connection attempt %d/%d failed (%s), retrying in %s: %v",
			attempt, m.policy.MaxAttempts(), class, delay, err)

		if err := m.sleep(ctx, delay); err != nil {
			break
		}
	}

	return nil, &UnavailableError{
		Attempts: attempt,
		Elapsed:  m.clock().Sub(start),
		Err:      lastErr,
	}
}

// validationDueLocked reports whether the cached handle needs a probe.
// Callers must hold m.mu.
func (m *Manager) validationDueLocked() bool {
	interval := m.cfg.Validation.Interval
	if interval < 0 {
		return false
	}
	if interval == 0 {
		return true
	}
	return !m.clock().Before(m.nextValidation)
}

// discard drops h from the cache slot and closes it.
func (m *Manager) discard(h *Handle) {
	m.mu.Lock()
	if m.handle == h {
		m.handle = nil
		m.nextValidation = time.Time{}
	}
	m.mu.Unlock()

	if err := h.Close(); err != nil {
		m.logger.Verbose("Error closing discarded connection %s: %v", h.ID(), err)
	}
}

// sleepContext pauses for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
