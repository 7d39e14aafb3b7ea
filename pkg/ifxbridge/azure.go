package ifxbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// AzureDatabaseScope is the OAuth scope for Azure-hosted databases using
// Entra ID authentication. This is the resource identifier Azure AD uses to
// issue database access tokens.
const AzureDatabaseScope = "https://ossrdbms-aad.database.windows.net/.default"

// AzureServicePrincipalCredentials acquires tokens using Service Principal
// credentials. This is the primary authentication method for CI/CD pipelines.
type AzureServicePrincipalCredentials struct {
	tenantID   string
	clientID   string
	username   string
	credential *azidentity.ClientSecretCredential
}

// NewAzureServicePrincipalCredentials creates a credential source for
// Service Principal auth. tenantID, clientID and clientSecret are required;
// username is the database user the token authenticates as.
func NewAzureServicePrincipalCredentials(tenantID, clientID, clientSecret, username string) (*AzureServicePrincipalCredentials, error) {
	if tenantID == "" || clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("azure service principal requires tenantID, clientID, and clientSecret")
	}
	if username == "" {
		return nil, fmt.Errorf("azure entra auth requires database username")
	}

	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	return &AzureServicePrincipalCredentials{
		tenantID:   tenantID,
		clientID:   clientID,
		username:   username,
		credential: cred,
	}, nil
}

// Credentials acquires a fresh Entra ID token to use as the password.
func (p *AzureServicePrincipalCredentials) Credentials(ctx context.Context) (Credentials, time.Time, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzureDatabaseScope},
	})
	if err != nil {
		return Credentials{}, time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return Credentials{Username: p.username, Password: token.Token}, token.ExpiresOn, nil
}

// String returns a human-readable representation of the source.
func (p *AzureServicePrincipalCredentials) String() string {
	return fmt.Sprintf("AzureServicePrincipal(tenant=%s, client=%s)", p.tenantID, p.clientID)
}

// AzureDefaultCredentials uses Azure's DefaultAzureCredential chain.
// This automatically tries multiple authentication methods in order:
// 1. Environment variables (AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_TENANT_ID)
// 2. Workload Identity (for Kubernetes)
// 3. Managed Identity (for Azure VMs, App Service, etc.)
// 4. Azure CLI (for local development)
// 5. Azure Developer CLI
// 6. Azure PowerShell
type AzureDefaultCredentials struct {
	username   string
	credential azcore.TokenCredential
}

// NewAzureDefaultCredentials creates a credential source using the default
// credential chain. username is the database user the token authenticates as.
func NewAzureDefaultCredentials(username string) (*AzureDefaultCredentials, error) {
	if username == "" {
		return nil, fmt.Errorf("azure entra auth requires database username")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure default credential: %w", err)
	}

	return &AzureDefaultCredentials{
		username:   username,
		credential: cred,
	}, nil
}

// Credentials acquires a fresh Entra ID token to use as the password.
func (p *AzureDefaultCredentials) Credentials(ctx context.Context) (Credentials, time.Time, error) {
	token, err := p.credential.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{AzureDatabaseScope},
	})
	if err != nil {
		return Credentials{}, time.Time{}, fmt.Errorf("azure token acquisition failed: %w", err)
	}
	return Credentials{Username: p.username, Password: token.Token}, token.ExpiresOn, nil
}

// String returns a human-readable representation of the source.
func (p *AzureDefaultCredentials) String() string {
	return "AzureDefaultCredential"
}

// Compile-time interface checks
var (
	_ CredentialSource = (*AzureServicePrincipalCredentials)(nil)
	_ CredentialSource = (*AzureDefaultCredentials)(nil)
)
