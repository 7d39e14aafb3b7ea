package ifxbridge

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Class is the retry classification of a connection or execution error.
type Class int

const (
	// ClassUnknown means the error was not recognized. Unknown errors are
	// treated as transient so that flaky infrastructure gets the benefit
	// of the doubt; the attempt cap still bounds total work.
	ClassUnknown Class = iota

	// ClassTransient means the error is temporary and retrying may succeed.
	ClassTransient

	// ClassPermanent means retrying cannot succeed (bad credentials,
	// unknown database, malformed request).
	ClassPermanent

	// ClassIndexExists means a CREATE INDEX failed only because the index
	// is already present.
	ClassIndexExists
)

// String returns a human-readable string representation of the Class.
func (c Class) String() string {
	switch c {
	case ClassUnknown:
		return "Unknown"
	case ClassTransient:
		return "Transient"
	case ClassPermanent:
		return "Permanent"
	case ClassIndexExists:
		return "IndexExists"
	default:
		return "Invalid"
	}
}

// Classifier assigns a retry classification to errors.
type Classifier interface {
	// Classify returns the classification for err. Implementations never
	// receive a nil error.
	Classify(err error) Class
}

// Signature is a conjunction of substrings. It matches an error only when
// every substring is present in the error text. Used where a single
// substring would be too permissive, such as index-exists detection.
type Signature []string

// Rules holds the text patterns that drive classification after the typed
// driver and network checks. Patterns are matched case-insensitively against
// the full error text. Keeping them as data allows per-deployment tuning
// without touching classification logic.
type Rules struct {
	// Transient patterns mark errors worth retrying. Any single match wins.
	Transient []string

	// Permanent patterns mark errors that retrying cannot fix. Any single
	// match wins.
	Permanent []string

	// IndexExists signatures mark index-already-exists failures. All
	// substrings of a signature must match.
	IndexExists []Signature
}

// PostgreSQL error codes relevant to classification.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgCodeInvalidPassword      = "28P01"
	pgCodeInvalidAuthSpec      = "28000"
	pgCodeInvalidCatalogName   = "3D000"
	pgCodeDuplicateTable       = "42P07"
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
)

// MySQL server error numbers relevant to classification.
// See: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	myNumTooManyConnections = 1040
	myNumDBAccessDenied     = 1044
	myNumAccessDenied       = 1045
	myNumUnknownDatabase    = 1049
	myNumServerShutdown     = 1053
	myNumDuplicateKeyName   = 1061
	myNumLockWaitTimeout    = 1205
	myNumDeadlock           = 1213
)

// transientNetworkPatterns are dialect-independent substrings that indicate
// a temporary network or server condition. They apply after the dialect
// rules regardless of configuration.
var transientNetworkPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"too many connections",
	"server closed the connection",
	"unexpected eof",
	"context deadline exceeded", // May be transient if external timeout
}

// DefaultRules returns the text pattern rules for a dialect. Unknown dialect
// names get empty rules; the typed checks and network patterns still apply.
func DefaultRules(dialect string) Rules {
	switch dialect {
	case DialectInformix:
		return Rules{
			// Informix SQL error codes surface as "-NNN" in driver
			// error text. See the IBM Informix error message reference.
			Transient: []string{
				"-908",   // Attempt to connect to database server failed
				"-930",   // Cannot connect to database server
				"-25580", // System error occurred in network function
				"-27001", // Read error occurred during connection attempt
				"-25582", // Network connection is broken
			},
			Permanent: []string{
				"-951", // Incorrect password or user is not known on the server
				"-387", // No connect permission
				"-329", // Database not found or no system permission
			},
			IndexExists: []Signature{
				{"-350", "index already exists"},
			},
		}
	case DialectPostgres:
		return Rules{
			IndexExists: []Signature{
				{"sqlstate " + strings.ToLower(pgCodeDuplicateTable)},
				{"already exists", "relation"},
			},
		}
	case DialectMySQL:
		return Rules{
			IndexExists: []Signature{
				{"error 1061", "duplicate key name"},
			},
		}
	default:
		return Rules{}
	}
}

// RuleClassifier implements Classifier using typed driver checks followed by
// configurable text patterns.
type RuleClassifier struct {
	rules Rules
}

// NewRuleClassifier creates a classifier with the given rules.
func NewRuleClassifier(rules Rules) *RuleClassifier {
	return &RuleClassifier{rules: rules}
}

// Classify determines the retry classification for an error.
func (c *RuleClassifier) Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	// Typed checks come first; they are precise and cheap.
	if class, ok := c.classifyTyped(err); ok {
		return class
	}

	msg := strings.ToLower(err.Error())

	// Index-exists signatures are checked before the broader pattern
	// lists so a near-miss falls through to normal handling.
	for _, sig := range c.rules.IndexExists {
		if matchSignature(msg, sig) {
			return ClassIndexExists
		}
	}

	for _, pattern := range c.rules.Permanent {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return ClassPermanent
		}
	}

	for _, pattern := range c.rules.Transient {
		if strings.Contains(msg, strings.ToLower(pattern)) {
			return ClassTransient
		}
	}

	for _, pattern := range transientNetworkPatterns {
		if strings.Contains(msg, pattern) {
			return ClassTransient
		}
	}

	return ClassUnknown
}

// classifyTyped inspects well-known error types from the standard library
// and the bundled drivers.
func (c *RuleClassifier) classifyTyped(err error) (Class, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient, true
	}

	if errors.Is(err, driver.ErrBadConn) {
		return ClassTransient, true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ClassTransient, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPgError(pgErr), true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return classifyMySQLError(myErr), true
	}

	if class, ok := classifyNetError(err); ok {
		return class, true
	}

	return ClassUnknown, false
}

// classifyPgError maps PostgreSQL error codes onto classes.
func classifyPgError(pgErr *pgconn.PgError) Class {
	code := pgErr.Code

	if code == pgCodeDuplicateTable {
		return ClassIndexExists
	}

	// Class 28 - Invalid Authorization Specification
	if strings.HasPrefix(code, "28") {
		return ClassPermanent
	}

	if code == pgCodeInvalidCatalogName {
		return ClassPermanent
	}

	// Class 08 - Connection Exception
	// Class 53 - Insufficient Resources
	// Class 57 - Operator Intervention (admin shutdown, crash shutdown, etc.)
	if strings.HasPrefix(code, "08") ||
		strings.HasPrefix(code, "53") ||
		strings.HasPrefix(code, "57") {
		return ClassTransient
	}

	switch code {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected:
		return ClassTransient
	}

	return ClassUnknown
}

// classifyMySQLError maps MySQL server error numbers onto classes.
func classifyMySQLError(myErr *mysql.MySQLError) Class {
	switch myErr.Number {
	case myNumDuplicateKeyName:
		return ClassIndexExists
	case myNumAccessDenied, myNumDBAccessDenied, myNumUnknownDatabase:
		return ClassPermanent
	case myNumTooManyConnections, myNumServerShutdown,
		myNumLockWaitTimeout, myNumDeadlock:
		return ClassTransient
	}
	return ClassUnknown
}

// classifyNetError checks for network-level errors.
func classifyNetError(err error) (Class, bool) {
	// DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// Temporary DNS failures are retryable; a permanently unknown
		// host usually means a typo in the configuration.
		if dnsErr.Temporary() || dnsErr.Timeout() {
			return ClassTransient, true
		}
		if dnsErr.IsNotFound {
			return ClassPermanent, true
		}
		return ClassTransient, true
	}

	// Network operation errors
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Temporary() || opErr.Timeout() {
			return ClassTransient, true
		}

		if opErr.Err != nil {
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) ||
				errors.Is(opErr.Err, syscall.ECONNRESET) ||
				errors.Is(opErr.Err, syscall.ENETUNREACH) ||
				errors.Is(opErr.Err, syscall.EHOSTUNREACH) ||
				errors.Is(opErr.Err, syscall.EPIPE) {
				return ClassTransient, true
			}
		}
		return ClassTransient, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient, true
	}

	return ClassUnknown, false
}

// matchSignature reports whether every substring of sig appears in msg.
// msg must already be lowercased.
func matchSignature(msg string, sig Signature) bool {
	if len(sig) == 0 {
		return false
	}
	for _, part := range sig {
		if !strings.Contains(msg, strings.ToLower(part)) {
			return false
		}
	}
	return true
}

// Compile-time interface check
var _ Classifier = (*RuleClassifier)(nil)
