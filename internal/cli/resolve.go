package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/params"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// connectionFlags holds the connection flag values shared by the ping, exec
// and config commands.
//
// Note: Password is NOT among them. Use one of these methods instead:
//  1. $IFX_PASSWORD environment variable (a .env file is loaded if present)
//  2. Connection string with embedded password
type connectionFlags struct {
	connection string

	dialect  string
	host     string
	port     int
	server   string
	database string
	username string

	authMethod     string
	awsRegion      string
	azureTenantID  string
	azureClientID  string
	googleInstance string

	isolation  string
	params     []string
	paramFiles []string
}

// granularSet reports whether any granular connection flag was provided.
// The database flag is excluded because it can override the database
// embedded in a connection string.
func (f *connectionFlags) granularSet() bool {
	return f.dialect != "" || f.host != "" || f.port != 0 || f.server != "" || f.username != ""
}

// envVars captures the IFX_* environment at resolution time so precedence
// handling stays testable without mutating the process environment.
type envVars struct {
	Host     string
	Port     string
	Server   string
	Database string
	Username string
	Password string

	DatabaseURL string

	AWSRegion         string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// loadEnvVars reads the IFX_* connection variables plus the cloud provider
// standard names (AWS_REGION, AZURE_*).
func loadEnvVars() *envVars {
	return &envVars{
		Host:              os.Getenv("IFX_HOST"),
		Port:              os.Getenv("IFX_PORT"),
		Server:            os.Getenv("IFX_SERVER"),
		Database:          os.Getenv("IFX_DATABASE"),
		Username:          os.Getenv("IFX_USER"),
		Password:          os.Getenv("IFX_PASSWORD"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AWSRegion:         os.Getenv("AWS_REGION"),
		AzureTenantID:     os.Getenv("AZURE_TENANT_ID"),
		AzureClientID:     os.Getenv("AZURE_CLIENT_ID"),
		AzureClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// authSettings carries the authentication inputs that live outside
// ifxbridge.Config until the credential source is built.
type authSettings struct {
	method            ifxbridge.AuthMethod
	awsRegion         string
	azureTenantID     string
	azureClientID     string
	azureClientSecret string
	googleInstance    string
}

// registerConnectionFlags wires the shared connection flags onto cmd.
func registerConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	// Connection string flag (mutually exclusive with granular flags)
	cmd.Flags().StringVar(&f.connection, "connection", "",
		"Connection string (informix-sqli:// URI, postgres:// URI, mysql:// URI or key-value form).\n"+
			"Mutually exclusive with granular flags (--host, --port, --server, --username).\n"+
			"Alternative: Use the DATABASE_URL environment variable.\n"+
			"Example: informix-sqli://db1.example.com:9088/stores:INFORMIXSERVER=prod")

	// Granular connection flags
	// Precedence: flag > environment variable > ifxbridge.yaml > default
	cmd.Flags().StringVar(&f.dialect, "dialect", "",
		"SQL dialect: informix|postgres|mysql\n"+
			"Precedence: --dialect > ifxbridge.yaml > informix")
	cmd.Flags().StringVarP(&f.host, "host", "h", "",
		"Database server host\n"+
			"Precedence: --host > $IFX_HOST > ifxbridge.yaml > localhost")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0,
		"Database server port\n"+
			"Precedence: --port > $IFX_PORT > ifxbridge.yaml > dialect default")
	cmd.Flags().StringVar(&f.server, "server", "",
		"Server instance name (INFORMIXSERVER; Informix only)\n"+
			"Precedence: --server > $IFX_SERVER > ifxbridge.yaml")
	cmd.Flags().StringVarP(&f.database, "database", "d", "",
		"Database name (optional if specified in connection string, or $IFX_DATABASE)")
	cmd.Flags().StringVarP(&f.username, "username", "U", "",
		"Database user (default: $IFX_USER, ifxbridge.yaml, or current OS user)")

	// Cloud authentication flags
	cmd.Flags().StringVar(&f.authMethod, "auth", "",
		"Authentication method: standard|aws-iam|google-iam|azure-entra-id\n"+
			"(default: standard, or ifxbridge.yaml)")
	cmd.Flags().StringVar(&f.awsRegion, "aws-region", "",
		"AWS region for RDS IAM token signing (overrides $AWS_REGION)")
	cmd.Flags().StringVar(&f.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	cmd.Flags().StringVar(&f.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)")
	cmd.Flags().StringVar(&f.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")

	// Session and driver parameter flags
	cmd.Flags().StringVar(&f.isolation, "isolation", "",
		"Session isolation level: default|dirty-read|committed-read|repeatable-read|committed-read-update-locks\n"+
			"(default: server default, or ifxbridge.yaml)")
	cmd.Flags().StringSliceVar(&f.params, "param", nil,
		"Driver parameters as key=value pairs (can be specified multiple times)\n"+
			"Example: --param DELIMIDENT=y --param LOBCACHE=0")
	cmd.Flags().StringSliceVar(&f.paramFiles, "param-file", nil,
		"Load driver parameters from .env-style files (can be specified multiple times)\n"+
			"Later files override earlier ones, CLI --param overrides all")

	registerConnectionCompletions(cmd)
}

// loadProjectConfig loads ifxbridge.yaml from dir. A missing file is not an
// error; commands then resolve from flags and environment alone.
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return cfg, nil
}

// resolveManagerConfig is the entry point commands use: it loads .env and
// ifxbridge.yaml from the working directory, reads the environment and
// applies the flag > env > ifxbridge.yaml > default precedence.
func resolveManagerConfig(f *connectionFlags) (ifxbridge.Config, authSettings, error) {
	// Load .env if present so $IFX_PASSWORD set there is picked up.
	_ = godotenv.Load()

	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return ifxbridge.Config{}, authSettings{}, err
	}

	return resolveConnectionConfig(f, loadEnvVars(), projectCfg)
}

// resolveConnectionConfig resolves the manager configuration:
//
//  1. --connection flag: parse and use directly
//  2. DATABASE_URL environment variable (if no granular flags)
//  3. Granular flags + environment + ifxbridge.yaml with per-field precedence
//
// Returns an error if both --connection and granular flags are provided.
func resolveConnectionConfig(f *connectionFlags, env *envVars, projectCfg *config.ProjectConfig) (ifxbridge.Config, authSettings, error) {
	if f == nil {
		f = &connectionFlags{}
	}
	if env == nil {
		env = &envVars{}
	}

	if f.connection != "" && f.granularSet() {
		return ifxbridge.Config{}, authSettings{}, fmt.Errorf(
			"cannot specify both --connection and granular flags (--host, --port, --server, --username)\n" +
				"Choose one approach:\n" +
				"  1. Connection string: --connection \"informix-sqli://db1:9088/stores:INFORMIXSERVER=prod\"\n" +
				"  2. Granular flags: -h db1 -p 9088 --server prod -d stores -U informix\n" +
				"  3. Environment variables: export IFX_HOST=db1 IFX_PORT=9088 IFX_SERVER=prod",
		)
	}

	var cfg *ifxbridge.Config
	var err error

	switch {
	case f.connection != "":
		cfg, err = resolveFromConnString(f.connection, f, env)
	case !f.granularSet() && env.DatabaseURL != "":
		cfg, err = resolveFromConnString(env.DatabaseURL, f, env)
	default:
		cfg, err = resolveFromGranular(f, env, projectCfg)
	}
	if err != nil {
		return ifxbridge.Config{}, authSettings{}, err
	}

	if err := mergeDriverParams(cfg, f, projectCfg); err != nil {
		return ifxbridge.Config{}, authSettings{}, err
	}

	if err := applyProjectTuning(cfg, projectCfg); err != nil {
		return ifxbridge.Config{}, authSettings{}, err
	}

	// Isolation: flag > ifxbridge.yaml (applied above)
	if f.isolation != "" {
		level, err := config.ParseIsolation(f.isolation)
		if err != nil {
			return ifxbridge.Config{}, authSettings{}, err
		}
		cfg.Session.Isolation = level
	}

	auth, err := resolveAuthSettings(f, env, projectCfg)
	if err != nil {
		return ifxbridge.Config{}, authSettings{}, err
	}
	cfg.AuthMethod = auth.method

	return *cfg, auth, nil
}

// resolveFromConnString parses a connection string. The --database flag
// overrides the database embedded in the string, and the environment fills
// in credentials the string leaves out.
func resolveFromConnString(connStr string, f *connectionFlags, env *envVars) (*ifxbridge.Config, error) {
	cfg, err := ifxbridge.ParseConnString(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	if f.database != "" {
		cfg.Endpoint.Database = f.database
	}
	if cfg.Credentials.Username == "" {
		cfg.Credentials.Username = env.Username
	}
	if cfg.Credentials.Password == "" {
		cfg.Credentials.Password = env.Password
	}

	return cfg, nil
}

// resolveFromGranular builds the configuration from granular flags,
// environment variables and ifxbridge.yaml, field by field.
func resolveFromGranular(f *connectionFlags, env *envVars, projectCfg *config.ProjectConfig) (*ifxbridge.Config, error) {
	var pc config.ConnectionConfig
	if projectCfg != nil {
		pc = projectCfg.Connection
	}

	cfg := &ifxbridge.Config{}

	// Dialect: flag > ifxbridge.yaml > informix
	cfg.Dialect = f.dialect
	if cfg.Dialect == "" {
		cfg.Dialect = pc.Dialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = ifxbridge.DialectInformix
	}

	// Host: flag > $IFX_HOST > ifxbridge.yaml > localhost
	cfg.Endpoint.Host = f.host
	if cfg.Endpoint.Host == "" {
		cfg.Endpoint.Host = env.Host
	}
	if cfg.Endpoint.Host == "" {
		cfg.Endpoint.Host = pc.Host
	}
	if cfg.Endpoint.Host == "" {
		cfg.Endpoint.Host = "localhost"
	}

	// Port: flag > $IFX_PORT > ifxbridge.yaml > dialect default
	if f.port != 0 {
		cfg.Endpoint.Port = f.port
	} else if env.Port != "" {
		port, err := strconv.Atoi(env.Port)
		if err != nil {
			return nil, fmt.Errorf("invalid $IFX_PORT value '%s': must be an integer", env.Port)
		}
		cfg.Endpoint.Port = port
	} else if pc.Port != 0 {
		cfg.Endpoint.Port = pc.Port
	}
	// Port 0 is filled with the dialect default by ApplyDefaults.

	// Server: flag > $IFX_SERVER > ifxbridge.yaml
	cfg.Endpoint.Server = f.server
	if cfg.Endpoint.Server == "" {
		cfg.Endpoint.Server = env.Server
	}
	if cfg.Endpoint.Server == "" {
		cfg.Endpoint.Server = pc.Server
	}

	// Database: flag > $IFX_DATABASE > ifxbridge.yaml
	cfg.Endpoint.Database = f.database
	if cfg.Endpoint.Database == "" {
		cfg.Endpoint.Database = env.Database
	}
	if cfg.Endpoint.Database == "" {
		cfg.Endpoint.Database = pc.Database
	}

	// Username: flag > $IFX_USER > ifxbridge.yaml > current OS user
	cfg.Credentials.Username = f.username
	if cfg.Credentials.Username == "" {
		cfg.Credentials.Username = env.Username
	}
	if cfg.Credentials.Username == "" {
		cfg.Credentials.Username = pc.Username
	}
	if cfg.Credentials.Username == "" {
		if currentUser := os.Getenv("USER"); currentUser != "" {
			cfg.Credentials.Username = currentUser
		} else if currentUser := os.Getenv("USERNAME"); currentUser != "" {
			cfg.Credentials.Username = currentUser
		}
	}

	cfg.Credentials.Password = env.Password

	return cfg, nil
}

// mergeDriverParams merges driver parameters onto cfg.Endpoint.Params,
// lowest precedence first: ifxbridge.yaml, --param-file files (later files
// win), parameters embedded in the connection string, --param flags.
func mergeDriverParams(cfg *ifxbridge.Config, f *connectionFlags, projectCfg *config.ProjectConfig) error {
	merged := make(map[string]string)

	if projectCfg != nil {
		for k, v := range projectCfg.Connection.Params {
			merged[k] = v
		}
	}

	for _, paramFile := range f.paramFiles {
		content, err := os.ReadFile(paramFile)
		if err != nil {
			return fmt.Errorf("failed to read param file '%s': %w\n\nTip: Verify the path or use --param to set parameters directly", paramFile, err)
		}
		fileParams, err := params.ParseEnvFile(content)
		if err != nil {
			return fmt.Errorf("failed to parse param file '%s': %w\n\nTip: Verify the file format (KEY=VALUE)", paramFile, err)
		}
		for k, v := range fileParams {
			merged[k] = v
		}
	}

	for k, v := range cfg.Endpoint.Params {
		merged[k] = v
	}

	cliParams, err := params.ParseKeyValuePairs(f.params)
	if err != nil {
		return fmt.Errorf("invalid parameter format: %w", err)
	}
	for k, v := range cliParams {
		merged[k] = v
	}

	if len(merged) > 0 {
		cfg.Endpoint.Params = merged
	}
	return nil
}

// parseDuration parses a duration from ifxbridge.yaml, naming the key in the
// error so the user can find the offending line.
func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q in %s: %w", key, value, config.ConfigFileName, err)
	}
	return d, nil
}

// applyProjectTuning copies retry, validation, session and timeout settings
// from ifxbridge.yaml onto cfg. An absent validation interval selects
// DefaultValidationInterval; an explicit "0s" probes on every use and a
// negative value disables probing.
func applyProjectTuning(cfg *ifxbridge.Config, projectCfg *config.ProjectConfig) error {
	// The interval default lives here rather than in ApplyDefaults because
	// Interval == 0 already means "probe on every use" in the manager.
	cfg.Validation.Interval = ifxbridge.DefaultValidationInterval

	if projectCfg == nil {
		return nil
	}

	r := projectCfg.Retry
	if r.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = r.MaxAttempts
	}
	if r.BaseDelay != "" {
		d, err := parseDuration("retry.base_delay", r.BaseDelay)
		if err != nil {
			return err
		}
		cfg.Retry.BaseDelay = d
	}
	if r.MaxDelay != "" {
		d, err := parseDuration("retry.max_delay", r.MaxDelay)
		if err != nil {
			return err
		}
		cfg.Retry.MaxDelay = d
	}
	if r.GrowthFactor != 0 {
		cfg.Retry.GrowthFactor = r.GrowthFactor
	}
	if r.Jitter != 0 {
		cfg.Retry.Jitter = r.Jitter
	}

	v := projectCfg.Validation
	if v.Interval != "" {
		d, err := parseDuration("validation.interval", v.Interval)
		if err != nil {
			return err
		}
		cfg.Validation.Interval = d
	}
	if v.Timeout != "" {
		d, err := parseDuration("validation.timeout", v.Timeout)
		if err != nil {
			return err
		}
		cfg.Validation.Timeout = d
	}
	if v.Query != "" {
		cfg.Validation.Query = v.Query
	}

	s := projectCfg.Session
	if s.LockWaitSeconds != nil {
		seconds := *s.LockWaitSeconds
		cfg.Session.LockWaitSeconds = &seconds
	}
	if s.Isolation != "" {
		level, err := config.ParseIsolation(s.Isolation)
		if err != nil {
			return err
		}
		cfg.Session.Isolation = level
	}
	if s.DeferConstraints {
		cfg.Session.DeferConstraints = true
	}
	if len(s.InitSQL) > 0 {
		cfg.Session.InitSQL = append([]string(nil), s.InitSQL...)
	}

	if projectCfg.ConnectTimeout != "" {
		d, err := parseDuration("connect_timeout", projectCfg.ConnectTimeout)
		if err != nil {
			return err
		}
		cfg.ConnectTimeout = d
	}

	return nil
}

// resolveAuthSettings resolves the authentication method and its inputs.
// The client secret only comes from the environment (no flag for security).
// Azure IDs without an explicit method imply Entra ID authentication.
func resolveAuthSettings(f *connectionFlags, env *envVars, projectCfg *config.ProjectConfig) (authSettings, error) {
	var pc config.ConnectionConfig
	if projectCfg != nil {
		pc = projectCfg.Connection
	}

	auth := authSettings{azureClientSecret: env.AzureClientSecret}

	// AWS region: flag > $AWS_REGION > ifxbridge.yaml
	auth.awsRegion = f.awsRegion
	if auth.awsRegion == "" {
		auth.awsRegion = env.AWSRegion
	}
	if auth.awsRegion == "" {
		auth.awsRegion = pc.AWSRegion
	}

	// Azure IDs: flag > AZURE_* env > ifxbridge.yaml
	auth.azureTenantID = f.azureTenantID
	if auth.azureTenantID == "" {
		auth.azureTenantID = env.AzureTenantID
	}
	if auth.azureTenantID == "" {
		auth.azureTenantID = pc.AzureTenantID
	}
	auth.azureClientID = f.azureClientID
	if auth.azureClientID == "" {
		auth.azureClientID = env.AzureClientID
	}
	if auth.azureClientID == "" {
		auth.azureClientID = pc.AzureClientID
	}

	// Google instance: flag > ifxbridge.yaml
	auth.googleInstance = f.googleInstance
	if auth.googleInstance == "" {
		auth.googleInstance = pc.GoogleInstance
	}

	token := f.authMethod
	if token == "" {
		token = pc.AuthMethod
	}
	method, err := config.ParseAuthMethod(token)
	if err != nil {
		return authSettings{}, err
	}
	if token == "" && (auth.azureTenantID != "" || auth.azureClientID != "") {
		method = ifxbridge.AuthMethodAzureEntraID
	}
	auth.method = method

	return auth, nil
}

// buildManager assembles a Manager from the resolved configuration. The
// returned cleanup releases auxiliary resources (the Cloud SQL dialer) and
// must run after the manager is closed.
func buildManager(cfg ifxbridge.Config, auth authSettings, logger ifxbridge.Logger) (*ifxbridge.Manager, func() error, error) {
	cleanup := func() error { return nil }
	opts := []ifxbridge.ManagerOption{ifxbridge.WithLogger(logger)}

	switch auth.method {
	case ifxbridge.AuthMethodAWSIAM:
		cfg.ApplyDefaults()
		source, err := ifxbridge.NewAWSIAMCredentials(cfg.Endpoint.Addr(), auth.awsRegion, cfg.Credentials.Username)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, ifxbridge.WithCredentialSource(source))

	case ifxbridge.AuthMethodAzureEntraID:
		source, err := azureCredentialSource(cfg.Credentials.Username, auth)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, ifxbridge.WithCredentialSource(source))

	case ifxbridge.AuthMethodGoogleIAM:
		if auth.googleInstance == "" {
			return nil, nil, fmt.Errorf("google-iam auth requires an instance connection name (use --google-instance project:region:instance)")
		}
		release, err := ifxbridge.RegisterCloudSQLPostgres(cloudsqlconn.WithIAMAuthN())
		if err != nil {
			return nil, nil, err
		}
		cleanup = release
		cfg.Dialect = ifxbridge.DialectCloudSQLPostgres
		cfg.Endpoint.Host = auth.googleInstance
	}

	manager, err := ifxbridge.NewManager(cfg, opts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return manager, cleanup, nil
}

// azureCredentialSource picks service-principal credentials when the full
// triple is configured and the default chain (managed identity, Azure CLI)
// otherwise.
func azureCredentialSource(username string, auth authSettings) (ifxbridge.CredentialSource, error) {
	if auth.azureTenantID != "" && auth.azureClientID != "" && auth.azureClientSecret != "" {
		return ifxbridge.NewAzureServicePrincipalCredentials(
			auth.azureTenantID, auth.azureClientID, auth.azureClientSecret, username)
	}
	return ifxbridge.NewAzureDefaultCredentials(username)
}

// logConnectionVerbose reports the resolved connection. Credentials never
// appear here; Credentials.String() redacts the password.
func logConnectionVerbose(logger ifxbridge.Logger, cfg ifxbridge.Config, auth authSettings) {
	logger.Verbose("Connection resolved:")
	logger.Verbose("  Dialect: %s", cfg.Dialect)
	logger.Verbose("  Host: %s", cfg.Endpoint.Host)
	logger.Verbose("  Port: %d", cfg.Endpoint.Port)
	if cfg.Endpoint.Server != "" {
		logger.Verbose("  Server: %s", cfg.Endpoint.Server)
	}
	logger.Verbose("  Database: %s", cfg.Endpoint.Database)
	logger.Verbose("  User: %s", cfg.Credentials.Username)
	logger.Verbose("  Auth Method: %s", auth.method)
	if auth.method == ifxbridge.AuthMethodAWSIAM {
		logger.Verbose("  AWS Region: %s", auth.awsRegion)
	}
	if auth.method == ifxbridge.AuthMethodGoogleIAM {
		logger.Verbose("  Instance: %s", auth.googleInstance)
	}
}
