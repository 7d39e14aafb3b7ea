package ifxbridge

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestRuleClassifier_InformixPatterns(t *testing.T) {
	c := NewRuleClassifier(DefaultRules(DialectInformix))

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{
			name: "server unreachable",
			err:  errors.New("SQL error -908: Attempt to connect to database server failed"),
			want: ClassTransient,
		},
		{
			name: "cannot connect",
			err:  errors.New("SQL error -930: Cannot connect to database server prod"),
			want: ClassTransient,
		},
		{
			name: "network function failure",
			err:  errors.New("SQL error -25580: System error occurred in network function"),
			want: ClassTransient,
		},
		{
			name: "broken network connection",
			err:  errors.New("SQL error -25582: Network connection is broken"),
			want: ClassTransient,
		},
		{
			name: "bad credentials",
			err:  errors.New("SQL error -951: Incorrect password or user app is not known"),
			want: ClassPermanent,
		},
		{
			name: "no connect permission",
			err:  errors.New("SQL error -387: No connect permission"),
			want: ClassPermanent,
		},
		{
			name: "unknown database",
			err:  errors.New("SQL error -329: Database not found or no system permission"),
			want: ClassPermanent,
		},
		{
			name: "index already exists",
			err:  errors.New("SQL error -350: Index already exists on the table"),
			want: ClassIndexExists,
		},
		{
			name: "index code with different message",
			err:  errors.New("SQL error -350: index creation failed"),
			want: ClassUnknown,
		},
		{
			name: "index message with different code",
			err:  errors.New("an index already exists with that name"),
			want: ClassUnknown,
		},
		{
			name: "wrapped errors keep their class",
			err:  fmt.Errorf("session setup failed: %w", errors.New("SQL error -951: Incorrect password")),
			want: ClassPermanent,
		},
		{
			name: "unrecognized text",
			err:  errors.New("splines not reticulated"),
			want: ClassUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRuleClassifier_TypedErrors(t *testing.T) {
	// Empty rules: everything below must be recognized by type alone.
	c := NewRuleClassifier(Rules{})

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"context deadline", context.DeadlineExceeded, ClassTransient},
		{"wrapped deadline", fmt.Errorf("ping: %w", context.DeadlineExceeded), ClassTransient},
		{"bad driver connection", driver.ErrBadConn, ClassTransient},
		{"eof", io.EOF, ClassTransient},
		{"unexpected eof", io.ErrUnexpectedEOF, ClassTransient},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "db.internal", IsNotFound: true}, ClassPermanent},
		{"dns timeout", &net.DNSError{Err: "lookup timed out", Name: "db.internal", IsTimeout: true}, ClassTransient},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ClassTransient},
		{"reset by peer", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRuleClassifier_PostgresErrors(t *testing.T) {
	c := NewRuleClassifier(DefaultRules(DialectPostgres))

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"invalid password", &pgconn.PgError{Code: "28P01"}, ClassPermanent},
		{"invalid authorization", &pgconn.PgError{Code: "28000"}, ClassPermanent},
		{"unknown database", &pgconn.PgError{Code: "3D000"}, ClassPermanent},
		{"duplicate relation", &pgconn.PgError{Code: "42P07"}, ClassIndexExists},
		{"connection failure", &pgconn.PgError{Code: "08006"}, ClassTransient},
		{"too many connections", &pgconn.PgError{Code: "53300"}, ClassTransient},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, ClassTransient},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, ClassTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, ClassTransient},
		{"string too long", &pgconn.PgError{Code: "22001"}, ClassUnknown},
		{
			name: "text fallback without typed error",
			err:  errors.New(`ERROR: relation "ix_orders_store" already exists (SQLSTATE 42P07)`),
			want: ClassIndexExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRuleClassifier_MySQLErrors(t *testing.T) {
	c := NewRuleClassifier(DefaultRules(DialectMySQL))

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied for user"}, ClassPermanent},
		{"db access denied", &mysql.MySQLError{Number: 1044, Message: "Access denied for user to database"}, ClassPermanent},
		{"unknown database", &mysql.MySQLError{Number: 1049, Message: "Unknown database 'stores'"}, ClassPermanent},
		{"duplicate key name", &mysql.MySQLError{Number: 1061, Message: "Duplicate key name 'ix_orders'"}, ClassIndexExists},
		{"too many connections", &mysql.MySQLError{Number: 1040, Message: "Too many connections"}, ClassTransient},
		{"server shutdown", &mysql.MySQLError{Number: 1053, Message: "Server shutdown in progress"}, ClassTransient},
		{"lock wait timeout", &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}, ClassTransient},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, ClassTransient},
		{"unmapped number", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, ClassUnknown},
		{
			name: "text fallback without typed error",
			err:  errors.New("Error 1061 (42000): Duplicate key name 'ix_orders'"),
			want: ClassIndexExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRuleClassifier_NetworkPatternsApplyToAnyDialect(t *testing.T) {
	c := NewRuleClassifier(Rules{})

	for _, text := range []string{
		"dial tcp 10.0.0.5:1543: connection refused",
		"read tcp 10.0.0.5:1543: connection reset by peer",
		"write: broken pipe",
		"dial tcp: i/o timeout",
		"FATAL: too many connections",
		"unexpected EOF",
	} {
		if got := c.Classify(errors.New(text)); got != ClassTransient {
			t.Errorf("Classify(%q) = %v, want Transient", text, got)
		}
	}
}

func TestRuleClassifier_NilError(t *testing.T) {
	c := NewRuleClassifier(Rules{})
	if got := c.Classify(nil); got != ClassUnknown {
		t.Errorf("Classify(nil) = %v, want Unknown", got)
	}
}

func TestClass_String(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassUnknown, "Unknown"},
		{ClassTransient, "Transient"},
		{ClassPermanent, "Permanent"},
		{ClassIndexExists, "IndexExists"},
		{Class(99), "Invalid"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("Class(%d).String() = %q, want %q", int(tt.class), got, tt.want)
		}
	}
}
