package ifxbridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"cloud.google.com/go/cloudsqlconn/postgres/pgxv5"
)

// DialectCloudSQLPostgres is the dialect name registered by
// RegisterCloudSQLPostgres.
const DialectCloudSQLPostgres = "cloudsql-postgres"

// RegisterCloudSQLPostgres registers a database/sql driver that reaches
// Cloud SQL for PostgreSQL through the Cloud SQL Go Connector, together with
// a matching dialect under DialectCloudSQLPostgres. The connector handles
// authentication, TLS and tunneling; pass cloudsqlconn.WithIAMAuthN() to use
// IAM database authentication.
//
// Endpoints for this dialect carry the instance connection name
// ("project:region:instance") in Host; Port is not used.
//
// Call it at most once per process. The returned cleanup releases the
// dialer; call it after every manager using the dialect is closed.
func RegisterCloudSQLPostgres(opts ...cloudsqlconn.Option) (func() error, error) {
	cleanup, err := pgxv5.RegisterDriver(DialectCloudSQLPostgres, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to register Cloud SQL driver: %w", err)
	}

	RegisterDialect(Dialect{
		Name:            DialectCloudSQLPostgres,
		DriverName:      DialectCloudSQLPostgres,
		DefaultPort:     DefaultPostgresPort,
		ValidationQuery: "SELECT 1",
		FormatDSN:       cloudSQLDSN,
		SessionSQL:      postgresSessionSQL,
		QuoteIdentifier: quotePgIdentifier,
		BeginSQL:        "BEGIN",
		CommitSQL:       "COMMIT",
		RollbackSQL:     "ROLLBACK",
	})

	return cleanup, nil
}

// cloudSQLDSN renders a keyword/value DSN. The host field carries the
// instance connection name; the connector dials it directly, so no port
// appears. sslmode defaults to disable because the connector already
// provides TLS end to end.
func cloudSQLDSN(ep Endpoint, creds Credentials, connectTimeout time.Duration) string {
	parts := []string{"host=" + kvValue(ep.Host)}
	if creds.Username != "" {
		parts = append(parts, "user="+kvValue(creds.Username))
	}
	if creds.Password != "" {
		parts = append(parts, "password="+kvValue(creds.Password))
	}
	if ep.Database != "" {
		parts = append(parts, "dbname="+kvValue(ep.Database))
	}
	if connectTimeout > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(int(connectTimeout.Round(time.Second).Seconds())))
	}

	if _, ok := ep.Params["sslmode"]; !ok {
		parts = append(parts, "sslmode=disable")
	}

	keys := make([]string, 0, len(ep.Params))
	for key := range ep.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts = append(parts, key+"="+kvValue(ep.Params[key]))
	}

	return strings.Join(parts, " ")
}

// kvValue quotes a keyword/value DSN value when it contains characters the
// format treats specially.
func kvValue(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
