package ifxbridge

import (
	"context"
	"strings"
	"testing"
)

func TestStaticCredentials(t *testing.T) {
	s := NewStaticCredentials("app", "secret")

	creds, expiresOn, err := s.Credentials(context.Background())
	if err != nil {
		t.Fatalf("Credentials failed: %v", err)
	}
	if creds.Username != "app" || creds.Password != "secret" {
		t.Errorf("Credentials = %v, want app/secret", creds)
	}
	if !expiresOn.IsZero() {
		t.Errorf("expiresOn = %v, static credentials never expire", expiresOn)
	}
}

func TestStaticCredentials_StringHidesPassword(t *testing.T) {
	s := NewStaticCredentials("app", "secret")

	got := s.String()
	if strings.Contains(got, "secret") {
		t.Errorf("String() = %q leaked the password", got)
	}
	if !strings.Contains(got, "app") {
		t.Errorf("String() = %q, want the username for diagnostics", got)
	}
}

func TestNewAWSIAMCredentials_Validation(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		region   string
		username string
		wantErr  string
	}{
		{"missing endpoint", "", "us-west-2", "app", "requires endpoint"},
		{"missing region", "db.rds.amazonaws.com:5432", "", "app", "requires region"},
		{"missing username", "db.rds.amazonaws.com:5432", "us-west-2", "", "requires database username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAWSIAMCredentials(tt.endpoint, tt.region, tt.username)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewAWSIAMCredentials = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewAWSIAMCredentials_String(t *testing.T) {
	s, err := NewAWSIAMCredentials("db.rds.amazonaws.com:5432", "us-west-2", "app")
	if err != nil {
		t.Fatalf("NewAWSIAMCredentials failed: %v", err)
	}

	got := s.String()
	for _, want := range []string{"db.rds.amazonaws.com:5432", "us-west-2", "app"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, want it to mention %q", got, want)
		}
	}
}

func TestNewAzureServicePrincipalCredentials_Validation(t *testing.T) {
	if _, err := NewAzureServicePrincipalCredentials("", "client", "secret", "app"); err == nil {
		t.Error("expected an error for a missing tenant ID")
	}
	if _, err := NewAzureServicePrincipalCredentials("tenant", "client", "secret", ""); err == nil {
		t.Error("expected an error for a missing database username")
	}
}

func TestNewAzureDefaultCredentials_Validation(t *testing.T) {
	if _, err := NewAzureDefaultCredentials(""); err == nil {
		t.Error("expected an error for a missing database username")
	}
}
