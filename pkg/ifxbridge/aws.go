package ifxbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// AWSIAMCredentials acquires IAM authentication tokens for RDS and hands
// them out as the connection password. Uses the default AWS credential
// chain (environment variables, config files, IAM roles, etc.)
type AWSIAMCredentials struct {
	endpoint string // host:port
	region   string
	username string
}

// NewAWSIAMCredentials creates a credential source for AWS RDS IAM
// authentication.
// endpoint is the RDS endpoint in host:port format (e.g., "mydb.cluster.region.rds.amazonaws.com:5432").
// region is the AWS region (e.g., "us-west-2").
// username is the database user configured for IAM authentication.
func NewAWSIAMCredentials(endpoint, region, username string) (*AWSIAMCredentials, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("AWS IAM auth requires endpoint (host:port)")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS IAM auth requires region (use --aws-region or $AWS_REGION)")
	}
	if username == "" {
		return nil, fmt.Errorf("AWS IAM auth requires database username")
	}

	return &AWSIAMCredentials{
		endpoint: endpoint,
		region:   region,
		username: username,
	}, nil
}

// Credentials acquires a fresh IAM authentication token from AWS.
// The token is valid for 15 minutes from acquisition time.
func (p *AWSIAMCredentials) Credentials(ctx context.Context) (Credentials, time.Time, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(p.region))
	if err != nil {
		return Credentials{}, time.Time{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, cfg.Credentials)
	if err != nil {
		return Credentials{}, time.Time{}, fmt.Errorf("failed to build RDS auth token: %w", err)
	}

	// RDS IAM tokens are valid for 15 minutes
	expiresOn := time.Now().Add(15 * time.Minute)

	return Credentials{Username: p.username, Password: token}, expiresOn, nil
}

// String returns a human-readable representation of the source.
func (p *AWSIAMCredentials) String() string {
	return fmt.Sprintf("AWSIAM(endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}

// Compile-time interface check
var _ CredentialSource = (*AWSIAMCredentials)(nil)
