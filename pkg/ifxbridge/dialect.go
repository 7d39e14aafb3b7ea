package ifxbridge

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// Names of the built-in dialects.
const (
	DialectInformix = "informix"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Default ports of the built-in dialects.
const (
	DefaultInformixPort = 9088
	DefaultPostgresPort = 5432
	DefaultMySQLPort    = 3306
)

// Dialect describes everything the manager needs to speak one database
// flavor: which database/sql driver to open, how its DSN is spelled, the
// default liveness probe, and how session setup statements are rendered.
type Dialect struct {
	// Name is the registry key ("informix", "postgres", "mysql", ...)
	Name string

	// DriverName is the database/sql driver opened for connections. The
	// driver must be registered with database/sql before the first
	// connection attempt (the postgres and mysql drivers register
	// themselves on import).
	DriverName string

	// DefaultPort is used when the endpoint leaves Port unset
	DefaultPort int

	// ValidationQuery is the default liveness probe. Must be cheap and
	// side-effect free.
	ValidationQuery string

	// FormatDSN renders the driver-specific connection string
	FormatDSN func(ep Endpoint, creds Credentials, connectTimeout time.Duration) string

	// SessionSQL renders the session setup statements in execution order
	SessionSQL func(sc SessionConfig) []string

	// QuoteIdentifier quotes a schema object name for use in DDL
	QuoteIdentifier func(name string) string

	// BeginSQL, CommitSQL and RollbackSQL are the transaction control
	// statements for callers that manage transactions as plain SQL on the
	// pinned connection. Informix spells these with WORK.
	BeginSQL    string
	CommitSQL   string
	RollbackSQL string
}

var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]Dialect)
)

// RegisterDialect makes a dialect available to LookupDialect under its Name.
// Like database/sql driver registration, it panics when the name is empty or
// already taken; dialects are wired up during init, where a collision is a
// programming error, not a runtime condition.
func RegisterDialect(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if d.Name == "" {
		panic("ifxbridge: RegisterDialect with empty name")
	}
	if _, dup := dialects[d.Name]; dup {
		panic("ifxbridge: RegisterDialect called twice for dialect " + d.Name)
	}
	dialects[d.Name] = d
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("dialect %q: %w", name, ErrUnknownDialect)
	}
	return d, nil
}

// DialectNames returns the registered dialect names in sorted order.
func DialectNames() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterDialect(Dialect{
		Name:            DialectInformix,
		DriverName:      "informix",
		DefaultPort:     DefaultInformixPort,
		ValidationQuery: "SELECT 1 FROM sysmaster:sysdual",
		FormatDSN:       informixDSN,
		SessionSQL:      informixSessionSQL,
		QuoteIdentifier: quoteDoubleQuoted,
		BeginSQL:        "BEGIN WORK",
		CommitSQL:       "COMMIT WORK",
		RollbackSQL:     "ROLLBACK WORK",
	})
	RegisterDialect(Dialect{
		Name:            DialectPostgres,
		DriverName:      "pgx",
		DefaultPort:     DefaultPostgresPort,
		ValidationQuery: "SELECT 1",
		FormatDSN:       postgresDSN,
		SessionSQL:      postgresSessionSQL,
		QuoteIdentifier: quotePgIdentifier,
		BeginSQL:        "BEGIN",
		CommitSQL:       "COMMIT",
		RollbackSQL:     "ROLLBACK",
	})
	RegisterDialect(Dialect{
		Name:            DialectMySQL,
		DriverName:      "mysql",
		DefaultPort:     DefaultMySQLPort,
		ValidationQuery: "SELECT 1",
		FormatDSN:       mysqlDSN,
		SessionSQL:      mysqlSessionSQL,
		QuoteIdentifier: quoteBacktick,
		BeginSQL:        "BEGIN",
		CommitSQL:       "COMMIT",
		RollbackSQL:     "ROLLBACK",
	})
}

// informixDSN renders an Informix SQLI connection string:
//
//	informix-sqli://host:port/db:INFORMIXSERVER=name;USER=u;PASSWORD=p;KEY=VALUE
//
// Parameter keys are uppercased and emitted in sorted order so the same
// endpoint always renders the same DSN.
func informixDSN(ep Endpoint, creds Credentials, connectTimeout time.Duration) string {
	var sb strings.Builder
	sb.WriteString("informix-sqli://")
	sb.WriteString(ep.Addr())
	sb.WriteString("/")
	sb.WriteString(ep.Database)
	sb.WriteString(":INFORMIXSERVER=")
	sb.WriteString(ep.Server)

	if creds.Username != "" {
		sb.WriteString(";USER=")
		sb.WriteString(creds.Username)
	}
	if creds.Password != "" {
		sb.WriteString(";PASSWORD=")
		sb.WriteString(creds.Password)
	}
	if connectTimeout > 0 {
		// INFORMIXCONTIME is in whole seconds
		sb.WriteString(";INFORMIXCONTIME=")
		sb.WriteString(strconv.Itoa(int(connectTimeout.Round(time.Second).Seconds())))
	}

	keys := make([]string, 0, len(ep.Params))
	for key := range ep.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		sb.WriteString(";")
		sb.WriteString(strings.ToUpper(key))
		sb.WriteString("=")
		sb.WriteString(ep.Params[key])
	}

	return sb.String()
}

// informixSessionSQL renders SET LOCK MODE, SET ISOLATION and SET CONSTRAINTS
// statements for a fresh Informix session.
func informixSessionSQL(sc SessionConfig) []string {
	var stmts []string

	if sc.LockWaitSeconds != nil {
		switch wait := *sc.LockWaitSeconds; {
		case wait == 0:
			stmts = append(stmts, "SET LOCK MODE TO NOT WAIT")
		case wait < 0:
			stmts = append(stmts, "SET LOCK MODE TO WAIT")
		default:
			stmts = append(stmts, fmt.Sprintf("SET LOCK MODE TO WAIT %d", wait))
		}
	}

	switch sc.Isolation {
	case IsolationDirtyRead:
		stmts = append(stmts, "SET ISOLATION TO DIRTY READ")
	case IsolationCommittedRead:
		stmts = append(stmts, "SET ISOLATION TO COMMITTED READ")
	case IsolationRepeatableRead:
		stmts = append(stmts, "SET ISOLATION TO REPEATABLE READ")
	case IsolationCommittedReadWithUpdateLocks:
		stmts = append(stmts, "SET ISOLATION TO COMMITTED READ RETAIN UPDATE LOCKS")
	}

	if sc.DeferConstraints {
		stmts = append(stmts, "SET CONSTRAINTS ALL DEFERRED")
	}

	return append(stmts, sc.InitSQL...)
}

// postgresDSN renders a PostgreSQL URI for the pgx stdlib driver.
func postgresDSN(ep Endpoint, creds Credentials, connectTimeout time.Duration) string {
	u := &url.URL{
		Scheme: "postgres",
		Host:   ep.Addr(),
		Path:   "/" + ep.Database,
	}

	if creds.Username != "" {
		if creds.Password != "" {
			u.User = url.UserPassword(creds.Username, creds.Password)
		} else {
			u.User = url.User(creds.Username)
		}
	}

	query := url.Values{}
	if connectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Round(time.Second).Seconds())))
	}
	for key, value := range ep.Params {
		query.Set(key, value)
	}

	u.RawQuery = query.Encode()
	return u.String()
}

// postgresSessionSQL approximates the Informix session controls on
// PostgreSQL. lock_timeout 0 disables the timeout, so 1ms stands in for
// NOT WAIT.
func postgresSessionSQL(sc SessionConfig) []string {
	var stmts []string

	if sc.LockWaitSeconds != nil {
		switch wait := *sc.LockWaitSeconds; {
		case wait == 0:
			stmts = append(stmts, "SET lock_timeout = 1")
		case wait < 0:
			stmts = append(stmts, "SET lock_timeout = 0")
		default:
			stmts = append(stmts, fmt.Sprintf("SET lock_timeout = %d", wait*1000))
		}
	}

	switch sc.Isolation {
	case IsolationDirtyRead:
		stmts = append(stmts, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ UNCOMMITTED")
	case IsolationCommittedRead, IsolationCommittedReadWithUpdateLocks:
		stmts = append(stmts, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL READ COMMITTED")
	case IsolationRepeatableRead:
		stmts = append(stmts, "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL REPEATABLE READ")
	}

	if sc.DeferConstraints {
		stmts = append(stmts, "SET CONSTRAINTS ALL DEFERRED")
	}

	return append(stmts, sc.InitSQL...)
}

// mysqlDSN renders a DSN for the go-sql-driver using its own Config type, so
// quoting and defaults stay aligned with the driver.
func mysqlDSN(ep Endpoint, creds Credentials, connectTimeout time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = creds.Username
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = ep.Addr()
	cfg.DBName = ep.Database
	cfg.Timeout = connectTimeout
	if len(ep.Params) > 0 {
		cfg.Params = make(map[string]string, len(ep.Params))
		for key, value := range ep.Params {
			cfg.Params[key] = value
		}
	}
	return cfg.FormatDSN()
}

// mysqlSessionSQL approximates the Informix session controls on MySQL.
// innodb_lock_wait_timeout cannot go below one second or be disabled, so the
// extremes clamp to 1 and the documented maximum.
func mysqlSessionSQL(sc SessionConfig) []string {
	var stmts []string

	if sc.LockWaitSeconds != nil {
		switch wait := *sc.LockWaitSeconds; {
		case wait == 0:
			stmts = append(stmts, "SET SESSION innodb_lock_wait_timeout = 1")
		case wait < 0:
			stmts = append(stmts, "SET SESSION innodb_lock_wait_timeout = 1073741824")
		default:
			stmts = append(stmts, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", wait))
		}
	}

	switch sc.Isolation {
	case IsolationDirtyRead:
		stmts = append(stmts, "SET SESSION TRANSACTION ISOLATION LEVEL READ UNCOMMITTED")
	case IsolationCommittedRead, IsolationCommittedReadWithUpdateLocks:
		stmts = append(stmts, "SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED")
	case IsolationRepeatableRead:
		stmts = append(stmts, "SET SESSION TRANSACTION ISOLATION LEVEL REPEATABLE READ")
	}

	if sc.DeferConstraints {
		// MySQL has no deferred constraints; disabling the checks for
		// the session is the closest analog.
		stmts = append(stmts, "SET SESSION foreign_key_checks = 0")
	}

	return append(stmts, sc.InitSQL...)
}

// quoteDoubleQuoted quotes an identifier with ANSI double quotes. Informix
// honors these when DELIMIDENT is enabled.
func quoteDoubleQuoted(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quotePgIdentifier quotes an identifier using pgx's sanitizer.
func quotePgIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// quoteBacktick quotes an identifier with MySQL backticks.
func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
