package ifxbridge

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Endpoint identifies a database server instance.
type Endpoint struct {
	// Host is the server hostname or IP address
	Host string

	// Port is the TCP port the server listens on
	Port int

	// Server is the logical server instance name. Informix servers host
	// multiple named instances per host; other dialects leave this empty.
	Server string

	// Database is the database name to connect to
	Database string

	// Params are driver-specific connection parameters passed through
	// opaquely (e.g. DELIMIDENT, CPTIMEOUT, sslmode). Values are not
	// interpreted by the manager.
	Params map[string]string
}

// Addr returns the host:port form of the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Credentials holds authentication material for a database connection.
// The password never appears in logs: both String and GoString redact it,
// so %v, %+v and %#v formatting are all safe.
type Credentials struct {
	Username string
	Password string
}

// String implements fmt.Stringer with the password redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: REDACTED}", c.Username)
}

// GoString implements fmt.GoStringer with the password redacted.
func (c Credentials) GoString() string {
	return c.String()
}

// IsZero reports whether no credential material is present.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// RetryConfig controls how connection establishment is retried.
type RetryConfig struct {
	// MaxAttempts is the total number of connection attempts, including the
	// first one. 1 means a single attempt with no retries. Must be >= 1.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts regardless of growth.
	MaxDelay time.Duration

	// GrowthFactor is the multiplier applied to the delay after each
	// failed attempt. Must be >= 1.0.
	GrowthFactor float64

	// Jitter is the maximum relative random variation applied to each
	// delay, in [0.0, 1.0). 0 disables jitter, which keeps retry timing
	// deterministic.
	Jitter float64
}

// ValidationConfig controls liveness checking of cached connections.
type ValidationConfig struct {
	// Interval is how long a cached connection is trusted after a
	// successful validation or initial establishment.
	//   - 0 validates on every Obtain
	//   - < 0 disables validation entirely
	Interval time.Duration

	// Timeout bounds a single validation probe.
	Timeout time.Duration

	// Query is the probe statement. It must be cheap and side-effect free.
	// Empty selects the dialect's default probe.
	Query string
}

// IsolationLevel selects the transaction isolation applied to new sessions.
type IsolationLevel int

const (
	IsolationDefault                      IsolationLevel = iota // Server default, no statement issued
	IsolationDirtyRead                                          // Read uncommitted
	IsolationCommittedRead                                      // Read committed
	IsolationRepeatableRead                                     // Repeatable read
	IsolationCommittedReadWithUpdateLocks                       // Committed read, update locks retained until end of transaction
)

// String returns a human-readable string representation of the IsolationLevel.
func (l IsolationLevel) String() string {
	switch l {
	case IsolationDefault:
		return "Default"
	case IsolationDirtyRead:
		return "Dirty Read"
	case IsolationCommittedRead:
		return "Committed Read"
	case IsolationRepeatableRead:
		return "Repeatable Read"
	case IsolationCommittedReadWithUpdateLocks:
		return "Committed Read With Update Locks"
	default:
		return fmt.Sprintf("Unknown(%d)", l)
	}
}

// IsValid returns true if the IsolationLevel is a valid, defined value.
func (l IsolationLevel) IsValid() bool {
	return l >= IsolationDefault && l <= IsolationCommittedReadWithUpdateLocks
}

// SessionConfig describes statements run on every fresh connection before it
// is handed to callers. Session state does not survive reconnection, so the
// same setup is replayed each time a connection is established.
type SessionConfig struct {
	// LockWaitSeconds controls row-lock acquisition behavior.
	//   - nil leaves the server default in place
	//   - 0 fails immediately on lock conflict (NOT WAIT)
	//   - -1 waits indefinitely (WAIT)
	//   - n > 0 waits up to n seconds (WAIT n)
	LockWaitSeconds *int

	// Isolation is the transaction isolation level for the session.
	Isolation IsolationLevel

	// DeferConstraints delays constraint checking until commit.
	DeferConstraints bool

	// InitSQL are additional statements run verbatim after the managed
	// session setup, in order.
	InitSQL []string
}

// Config contains all parameters for a connection manager.
type Config struct {
	// Dialect selects the SQL dialect and driver ("informix", "postgres",
	// "mysql", or any registered name). Defaults to "informix".
	Dialect string

	// Endpoint identifies the server and database
	Endpoint Endpoint

	// Credentials are used when no CredentialSource is configured
	Credentials Credentials

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// ConnectTimeout bounds a single connection attempt
	ConnectTimeout time.Duration

	// Retry controls re-establishment after failures
	Retry RetryConfig

	// Validation controls liveness checking of cached connections
	Validation ValidationConfig

	// Session describes per-connection setup statements
	Session SessionConfig
}

// ApplyDefaults fills unset fields with package defaults. It is called by
// NewManager, so callers only need it when inspecting the effective
// configuration beforehand.
func (c *Config) ApplyDefaults() {
	if c.Dialect == "" {
		c.Dialect = DialectInformix
	}
	if d, err := LookupDialect(c.Dialect); err == nil {
		if c.Endpoint.Port == 0 {
			c.Endpoint.Port = d.DefaultPort
		}
		if c.Validation.Query == "" {
			c.Validation.Query = d.ValidationQuery
		}
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = DefaultRetryMaxDelay
	}
	if c.Retry.GrowthFactor == 0 {
		c.Retry.GrowthFactor = DefaultRetryGrowthFactor
	}
	if c.Validation.Timeout == 0 {
		c.Validation.Timeout = DefaultValidationTimeout
	}
}

// Validate checks if the Config has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint.Host == "" {
		errs = append(errs, fmt.Errorf("endpoint host is required: %w", ErrInvalidConfig))
	}

	if c.Endpoint.Port < 0 || c.Endpoint.Port > 65535 {
		errs = append(errs, fmt.Errorf("endpoint port %d out of range: %w", c.Endpoint.Port, ErrInvalidConfig))
	}

	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v is not valid: %w", c.AuthMethod, ErrInvalidConfig))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry max attempts must be >= 1, got %d: %w", c.Retry.MaxAttempts, ErrInvalidConfig))
	}

	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry base delay cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, fmt.Errorf("retry max delay %s is below base delay %s: %w", c.Retry.MaxDelay, c.Retry.BaseDelay, ErrInvalidConfig))
	}

	if c.Retry.GrowthFactor < 1.0 {
		errs = append(errs, fmt.Errorf("retry growth factor must be >= 1.0, got %g: %w", c.Retry.GrowthFactor, ErrInvalidConfig))
	}

	if c.Retry.Jitter < 0 || c.Retry.Jitter >= 1.0 {
		errs = append(errs, fmt.Errorf("retry jitter must be in [0.0, 1.0), got %g: %w", c.Retry.Jitter, ErrInvalidConfig))
	}

	if c.Validation.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("validation timeout must be positive: %w", ErrInvalidConfig))
	}

	if !c.Session.Isolation.IsValid() {
		errs = append(errs, fmt.Errorf("isolation level %v is not valid: %w", c.Session.Isolation, ErrInvalidConfig))
	}

	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be positive: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                     // AWS IAM Database Authentication
	AuthMethodGoogleIAM                  // Google Cloud SQL IAM
	AuthMethodAzureEntraID               // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodAzureEntraID
}
