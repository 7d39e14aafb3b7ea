package ifxbridge

import (
	"context"
	"fmt"
	"time"
)

// CredentialSource supplies credentials for connection attempts. Token-based
// sources mint short-lived passwords, so the factory asks again on every
// attempt instead of caching the first answer; a retry that reuses an
// expired token can never succeed.
type CredentialSource interface {
	// Credentials returns the material for one connection attempt along
	// with its expiry. A zero expiry means the credentials do not expire.
	Credentials(ctx context.Context) (Credentials, time.Time, error)

	// String returns a human-readable description for logging.
	// Must NOT include secrets. Example: "AzureServicePrincipal(tenant=xxx, client=yyy)"
	String() string
}

// StaticCredentials is a CredentialSource holding fixed credential material.
type StaticCredentials struct {
	creds Credentials
}

// NewStaticCredentials wraps a fixed username and password in a
// CredentialSource.
func NewStaticCredentials(username, password string) *StaticCredentials {
	return &StaticCredentials{
		creds: Credentials{Username: username, Password: password},
	}
}

// Credentials returns the fixed material. The expiry is zero: static
// credentials never expire.
func (s *StaticCredentials) Credentials(ctx context.Context) (Credentials, time.Time, error) {
	return s.creds, time.Time{}, nil
}

// String returns a description with the password redacted.
func (s *StaticCredentials) String() string {
	return fmt.Sprintf("Static(user=%s)", s.creds.Username)
}

// Compile-time interface check
var _ CredentialSource = (*StaticCredentials)(nil)
