package ifxbridge

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// fakeDriver is a scriptable database/sql driver. Tests script failures per
// open, ping, exec or query call and inspect what the code under test did,
// without a real server.
type fakeDriver struct {
	mu sync.Mutex

	openCalls  int
	openScript func(call int) error

	pingCalls  int
	pingScript func(call int) error

	execs      []string
	execScript func(query string) error

	queries     []string
	queryScript func(query string) error

	conns []*fakeConn
}

func (d *fakeDriver) Open(name string) (driver.Conn, error) {
	d.mu.Lock()
	d.openCalls++
	call := d.openCalls
	script := d.openScript
	d.mu.Unlock()

	if script != nil {
		if err := script(call); err != nil {
			return nil, err
		}
	}

	c := &fakeConn{driver: d}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDriver) OpenCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openCalls
}

func (d *fakeDriver) PingCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pingCalls
}

func (d *fakeDriver) Execs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.execs...)
}

func (d *fakeDriver) Queries() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.queries...)
}

// OpenConns returns how many connections have been opened and not closed.
func (d *fakeDriver) OpenConns() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	open := 0
	for _, c := range d.conns {
		if !c.closed.Load() {
			open++
		}
	}
	return open
}

type fakeConn struct {
	driver *fakeDriver
	closed atomic.Bool
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fakeConn: Prepare not supported")
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("fakeConn: Begin not supported")
}

func (c *fakeConn) Ping(ctx context.Context) error {
	d := c.driver
	d.mu.Lock()
	d.pingCalls++
	call := d.pingCalls
	script := d.pingScript
	d.mu.Unlock()

	if script != nil {
		return script(call)
	}
	return nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	d := c.driver
	d.mu.Lock()
	d.execs = append(d.execs, query)
	script := d.execScript
	d.mu.Unlock()

	if script != nil {
		if err := script(query); err != nil {
			return nil, err
		}
	}
	return driver.RowsAffected(1), nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	d := c.driver
	d.mu.Lock()
	d.queries = append(d.queries, query)
	script := d.queryScript
	d.mu.Unlock()

	if script != nil {
		if err := script(query); err != nil {
			return nil, err
		}
	}
	return &fakeRows{}, nil
}

type fakeRows struct {
	done bool
}

func (r *fakeRows) Columns() []string { return []string{"?column?"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}
	r.done = true
	dest[0] = int64(1)
	return nil
}

// Interface checks so a sql package change breaks loudly here.
var (
	_ driver.Driver         = (*fakeDriver)(nil)
	_ driver.Pinger         = (*fakeConn)(nil)
	_ driver.ExecerContext  = (*fakeConn)(nil)
	_ driver.QueryerContext = (*fakeConn)(nil)
)

// Registry names are global to the process, so every test registration gets
// a unique suffix.
var fakeSeq atomic.Int64

// registerFakeDialect registers d as a database/sql driver plus a matching
// dialect and returns the shared name. The dialect's SessionSQL passes
// InitSQL through untouched so tests control the setup statements exactly.
func registerFakeDialect(t *testing.T, d *fakeDriver) string {
	t.Helper()

	name := fmt.Sprintf("ifxfake-%d", fakeSeq.Add(1))
	sql.Register(name, d)
	RegisterDialect(Dialect{
		Name:            name,
		DriverName:      name,
		DefaultPort:     1543,
		ValidationQuery: "SELECT 1",
		FormatDSN: func(ep Endpoint, creds Credentials, connectTimeout time.Duration) string {
			return "fake://" + ep.Addr()
		},
		SessionSQL: func(sc SessionConfig) []string {
			return sc.InitSQL
		},
		QuoteIdentifier: quoteDoubleQuoted,
	})
	return name
}

// testConfig returns a manager configuration wired to the given fake
// dialect: three fast attempts, no validation gating unless a test opts in.
func testConfig(dialect string) Config {
	return Config{
		Dialect: dialect,
		Endpoint: Endpoint{
			Host:     "db.internal",
			Port:     1543,
			Server:   "prod",
			Database: "stores",
		},
		Credentials:    Credentials{Username: "app", Password: "secret"},
		ConnectTimeout: 5 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    time.Millisecond,
			MaxDelay:     10 * time.Millisecond,
			GrowthFactor: 2.0,
		},
		Validation: ValidationConfig{
			Interval: -1,
			Timeout:  time.Second,
		},
	}
}

// newTestManager builds a manager over a fresh fake dialect for d.
func newTestManager(t *testing.T, d *fakeDriver, mutate func(*Config), opts ...ManagerOption) *Manager {
	t.Helper()

	cfg := testConfig(registerFakeDialect(t, d))
	if mutate != nil {
		mutate(&cfg)
	}

	mgr, err := NewManager(cfg, opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// newFakeHandle opens a pinned connection on a fresh fake dialect, for tests
// that need a Handle without a Manager.
func newFakeHandle(t *testing.T, d *fakeDriver) *Handle {
	t.Helper()

	name := registerFakeDialect(t, d)
	db, err := sqlx.Open(name, "fake://db.internal:1543")
	if err != nil {
		t.Fatalf("sqlx.Open failed: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Connx(context.Background())
	if err != nil {
		db.Close()
		t.Fatalf("Connx failed: %v", err)
	}

	h := NewHandle(db, conn, time.Now())
	t.Cleanup(func() { h.Close() })
	return h
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sleepRecorder captures retry delays instead of sleeping through them.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}
