package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// ConnectionConfig identifies the server to connect to. Passwords are never
// stored here: they come from the environment, a credential source, or an
// interactive prompt.
type ConnectionConfig struct {
	Dialect        string            `yaml:"dialect,omitempty"`
	Host           string            `yaml:"host"`
	Port           int               `yaml:"port"`
	Server         string            `yaml:"server,omitempty"`
	Database       string            `yaml:"database"`
	Username       string            `yaml:"username"`
	AuthMethod     string            `yaml:"auth_method,omitempty"`
	AzureTenantID  string            `yaml:"azure_tenant_id,omitempty"`
	AzureClientID  string            `yaml:"azure_client_id,omitempty"`
	AWSRegion      string            `yaml:"aws_region,omitempty"`
	GoogleInstance string            `yaml:"google_instance,omitempty"`
	Params         map[string]string `yaml:"params,omitempty"`
}

// RetryConfig mirrors ifxbridge.RetryConfig with YAML-friendly types.
// Durations are strings in time.ParseDuration format ("500ms", "2s").
// Zero values mean "not set" and leave the package defaults in place.
type RetryConfig struct {
	MaxAttempts  int     `yaml:"max_attempts,omitempty"`
	BaseDelay    string  `yaml:"base_delay,omitempty"`
	MaxDelay     string  `yaml:"max_delay,omitempty"`
	GrowthFactor float64 `yaml:"growth_factor,omitempty"`
	Jitter       float64 `yaml:"jitter,omitempty"`
}

// ValidationConfig controls liveness checking of cached connections.
// Interval distinguishes "not set" from an explicit zero: an empty string
// keeps the default validation interval, "0s" validates on every use, and
// a negative duration like "-1s" disables validation entirely.
type ValidationConfig struct {
	Interval string `yaml:"interval,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	Query    string `yaml:"query,omitempty"`
}

// SessionConfig describes per-connection setup. LockWaitSeconds is a pointer
// so that an absent key leaves the server default in place while an explicit
// 0 selects NOT WAIT.
type SessionConfig struct {
	LockWaitSeconds  *int     `yaml:"lock_wait_seconds,omitempty"`
	Isolation        string   `yaml:"isolation,omitempty"`
	DeferConstraints bool     `yaml:"defer_constraints,omitempty"`
	InitSQL          []string `yaml:"init_sql,omitempty"`
}

type ProjectConfig struct {
	Connection     ConnectionConfig `yaml:"connection"`
	Retry          RetryConfig      `yaml:"retry,omitempty"`
	Validation     ValidationConfig `yaml:"validation,omitempty"`
	Session        SessionConfig    `yaml:"session,omitempty"`
	ConnectTimeout string           `yaml:"connect_timeout,omitempty"`
}

const ConfigFileName = "ifxbridge.yaml"

func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Auth method tokens as they appear in the auth_method YAML key.
const (
	AuthTokenStandard     = "standard"
	AuthTokenAWSIAM       = "aws-iam"
	AuthTokenGoogleIAM    = "google-iam"
	AuthTokenAzureEntraID = "azure-entra-id"
)

// ParseAuthMethod maps an auth_method value to the manager's enum. An empty
// string means standard username/password authentication.
func ParseAuthMethod(token string) (ifxbridge.AuthMethod, error) {
	switch token {
	case "", AuthTokenStandard:
		return ifxbridge.AuthMethodStandard, nil
	case AuthTokenAWSIAM:
		return ifxbridge.AuthMethodAWSIAM, nil
	case AuthTokenGoogleIAM:
		return ifxbridge.AuthMethodGoogleIAM, nil
	case AuthTokenAzureEntraID:
		return ifxbridge.AuthMethodAzureEntraID, nil
	default:
		return ifxbridge.AuthMethodStandard, fmt.Errorf("unknown auth_method %q (expected %s, %s, %s or %s)",
			token, AuthTokenStandard, AuthTokenAWSIAM, AuthTokenGoogleIAM, AuthTokenAzureEntraID)
	}
}

// AuthMethodTokens lists the accepted auth_method values for completion and
// error messages, in menu order.
func AuthMethodTokens() []string {
	return []string{
		AuthTokenStandard,
		AuthTokenAWSIAM,
		AuthTokenGoogleIAM,
		AuthTokenAzureEntraID,
	}
}

// AuthMethodToken is the inverse of ParseAuthMethod. Standard auth maps to
// the empty string so the key is omitted from generated files.
func AuthMethodToken(method ifxbridge.AuthMethod) string {
	switch method {
	case ifxbridge.AuthMethodAWSIAM:
		return AuthTokenAWSIAM
	case ifxbridge.AuthMethodGoogleIAM:
		return AuthTokenGoogleIAM
	case ifxbridge.AuthMethodAzureEntraID:
		return AuthTokenAzureEntraID
	default:
		return ""
	}
}

// Isolation level tokens as they appear in the session.isolation YAML key.
const (
	IsolationTokenDefault        = "default"
	IsolationTokenDirtyRead      = "dirty-read"
	IsolationTokenCommittedRead  = "committed-read"
	IsolationTokenRepeatableRead = "repeatable-read"
	IsolationTokenUpdateLocks    = "committed-read-update-locks"
)

// IsolationTokens lists the accepted isolation values for completion and
// error messages.
func IsolationTokens() []string {
	return []string{
		IsolationTokenDefault,
		IsolationTokenDirtyRead,
		IsolationTokenCommittedRead,
		IsolationTokenRepeatableRead,
		IsolationTokenUpdateLocks,
	}
}

// ParseIsolation maps a session.isolation value to the manager's enum. An
// empty string keeps the server default (no isolation statement is issued).
func ParseIsolation(token string) (ifxbridge.IsolationLevel, error) {
	switch token {
	case "", IsolationTokenDefault:
		return ifxbridge.IsolationDefault, nil
	case IsolationTokenDirtyRead:
		return ifxbridge.IsolationDirtyRead, nil
	case IsolationTokenCommittedRead:
		return ifxbridge.IsolationCommittedRead, nil
	case IsolationTokenRepeatableRead:
		return ifxbridge.IsolationRepeatableRead, nil
	case IsolationTokenUpdateLocks:
		return ifxbridge.IsolationCommittedReadWithUpdateLocks, nil
	default:
		return ifxbridge.IsolationDefault, fmt.Errorf("unknown isolation %q (expected one of: %s)",
			token, strings.Join(IsolationTokens(), ", "))
	}
}

// IsolationToken is the inverse of ParseIsolation. The default level maps to
// the empty string so the key is omitted from generated files.
func IsolationToken(level ifxbridge.IsolationLevel) string {
	switch level {
	case ifxbridge.IsolationDirtyRead:
		return IsolationTokenDirtyRead
	case ifxbridge.IsolationCommittedRead:
		return IsolationTokenCommittedRead
	case ifxbridge.IsolationRepeatableRead:
		return IsolationTokenRepeatableRead
	case ifxbridge.IsolationCommittedReadWithUpdateLocks:
		return IsolationTokenUpdateLocks
	default:
		return ""
	}
}
