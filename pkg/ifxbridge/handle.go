package ifxbridge

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Handle is a live, session-scoped database connection produced by a
// Factory and cached by the Manager.
//
// The underlying pool is pinned to exactly one physical connection, so the
// session state installed at connect time (lock mode, isolation level)
// survives for the lifetime of the handle and cannot silently migrate to a
// different connection.
//
// Lifecycle:
//  1. Created by a Factory during connection establishment
//  2. Cached and revalidated by the Manager across Obtain calls
//  3. Cleaned up via Close() (idempotent)
//
// The handle's query methods are safe for concurrent use; operations
// serialize on the single underlying connection.
type Handle struct {
	id        uuid.UUID
	db        *sqlx.DB
	conn      *sqlx.Conn
	createdAt time.Time

	mu            sync.Mutex
	lastValidated time.Time
	closed        bool
}

// NewHandle creates a Handle around a pinned connection. db must be the
// single-connection pool that conn was acquired from; the handle owns both
// and closes them together.
//
// Panics if db or conn is nil (programmer error - a Factory should never
// produce a Handle with nil resources).
func NewHandle(db *sqlx.DB, conn *sqlx.Conn, now time.Time) *Handle {
	if db == nil {
		panic("db cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}

	return &Handle{
		id:            uuid.New(),
		db:            db,
		conn:          conn,
		createdAt:     now,
		lastValidated: now,
	}
}

// ID returns the unique identifier of this handle, for log correlation.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Conn returns the pinned connection for running queries.
// The connection is valid until Close() is called.
func (h *Handle) Conn() *sqlx.Conn {
	return h.conn
}

// DB returns the single-connection pool that owns the pinned connection.
// Most callers want Conn instead; the pool exists for cleanup and for
// interoperating with APIs that require a *sqlx.DB.
func (h *Handle) DB() *sqlx.DB {
	return h.db
}

// CreatedAt returns when the connection was established.
func (h *Handle) CreatedAt() time.Time {
	return h.createdAt
}

// LastValidated returns when the connection last passed a liveness probe.
// Establishment counts as the first validation.
func (h *Handle) LastValidated() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastValidated
}

// markValidated records a passed liveness probe.
func (h *Handle) markValidated(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastValidated = t
}

// Age returns how long the connection has existed.
func (h *Handle) Age(now time.Time) time.Duration {
	return now.Sub(h.createdAt)
}

// Close releases the pinned connection and its pool.
// This method is idempotent and safe to call multiple times.
//
// Resource cleanup order:
//  1. Return the pinned connection to the pool
//  2. Close the pool, which closes the physical connection
//
// After calling Close(), the Handle should not be used.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	var errs []error
	if err := h.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := h.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
