package ifxbridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Factory establishes a single connection attempt. Implementations fail
// fast and never retry internally; retry and backoff belong to the Manager,
// where attempts can be counted and bounded in one place.
type Factory interface {
	// New makes one connection attempt and returns a live handle.
	New(ctx context.Context) (*Handle, error)
}

// DriverFactory connects through the database/sql driver selected by the
// configured dialect. Each attempt asks the credential source for fresh
// material, opens a one-connection pool, pins its only connection, verifies
// it with a ping, and replays the configured session statements.
type DriverFactory struct {
	dialect        Dialect
	endpoint       Endpoint
	source         CredentialSource
	session        SessionConfig
	connectTimeout time.Duration
	logger         Logger
}

// NewDriverFactory creates a factory for the dialect named in cfg.
// A nil source uses the static credentials from cfg; a nil logger discards
// diagnostics.
func NewDriverFactory(cfg Config, source CredentialSource, logger Logger) (*DriverFactory, error) {
	dialect, err := LookupDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	if source == nil {
		source = NewStaticCredentials(cfg.Credentials.Username, cfg.Credentials.Password)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	return &DriverFactory{
		dialect:        dialect,
		endpoint:       cfg.Endpoint,
		source:         source,
		session:        cfg.Session,
		connectTimeout: cfg.ConnectTimeout,
		logger:         logger,
	}, nil
}

// New makes one connection attempt. The entire attempt, credential
// acquisition through session setup, runs under the configured connect
// timeout.
func (f *DriverFactory) New(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, f.connectTimeout)
	defer cancel()

	creds, expiresOn, err := f.source.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire credentials from %s: %w", f.source, err)
	}
	if !expiresOn.IsZero() {
		remaining := time.Until(expiresOn)
		if remaining <= 0 {
			return nil, fmt.Errorf("credential from %s expired at %s: %w",
				f.source, expiresOn.Format(time.RFC3339), ErrCredentialsExpired)
		}
		if remaining < 5*time.Minute {
			f.logger.Verbose("Warning: credential expires in %.1f minutes", remaining.Minutes())
		}
	}

	dsn := f.dialect.FormatDSN(f.endpoint, creds, f.connectTimeout)

	db, err := sqlx.Open(f.dialect.DriverName, dsn)
	if err != nil {
		return nil, wrapConnectError(err, f.endpoint)
	}

	// Pin a single physical connection. Session state set below must not
	// silently migrate to a replacement connection behind the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Connx(ctx)
	if err != nil {
		db.Close()
		return nil, wrapConnectError(err, f.endpoint)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		db.Close()
		return nil, wrapConnectError(err, f.endpoint)
	}

	for _, stmt := range f.dialect.SessionSQL(f.session) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			db.Close()
			return nil, fmt.Errorf("session setup statement %q failed: %w", stmt, err)
		}
	}

	handle := NewHandle(db, conn, time.Now())
	f.logger.Verbose("Connection %s established to %s/%s",
		handle.ID(), f.endpoint.Addr(), f.endpoint.Database)
	return handle, nil
}

// wrapConnectError wraps raw driver errors with actionable guidance and tags
// them with the endpoint address.
func wrapConnectError(err error, ep Endpoint) error {
	return &ConnectError{Addr: ep.Addr(), Err: hintedConnectError(err, ep)}
}

// hintedConnectError augments common connection failures with their likely
// causes.
func hintedConnectError(err error, ep Endpoint) error {
	errStr := strings.ToLower(err.Error())
	addr := ep.Addr()

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - Database server is not running or not listening on %s
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, addr, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, ep.Host, err)

	case strings.Contains(errStr, "password authentication failed") ||
		strings.Contains(errStr, "incorrect password") ||
		strings.Contains(errStr, "-951"):
		return fmt.Errorf(`authentication failed for database "%s"

Possible causes:
  - Wrong password
  - Wrong username
  - User is not known on the database server

Original error: %w`, ep.Database, err)

	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "-329"):
		return fmt.Errorf(`database "%s" does not exist or is not accessible

Possible causes:
  - Database name is misspelled
  - Database has not been created on this server
  - User has no system permission on the database

Original error: %w`, ep.Database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires TLS but the connection parameters disable it
  - Certificate verification failed
  - Client certificates missing

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to %s

Possible causes:
  - Connection limit reached on the server
  - Stale sessions from crashed clients still counted
  - Other applications exhausting the server's session budget

Original error: %w`, addr, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// Compile-time interface check
var _ Factory = (*DriverFactory)(nil)
