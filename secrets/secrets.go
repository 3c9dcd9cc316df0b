// Package secrets retrieves the FactSet API credentials.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/client"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/pkg/errors"
)

// Credentials authenticate against the upstream API.
type Credentials struct {
	APIUser string `json:"APIUser"`
	APIKey  string `json:"APIKey"`
}

// Provider returns credentials. Implementations are called once per
// invocation.
type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// ProviderFunc adapts a function to a Provider.
type ProviderFunc func(ctx context.Context) (Credentials, error)

func (f ProviderFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// CredentialError is returned for any failure retrieving or parsing the
// secret. Code holds the AWS error code when the store reported one.
type CredentialError struct {
	SecretName string
	Code       string
	Err        error
}

func (e *CredentialError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("failed retrieving secret %s (%s): %v", e.SecretName, e.Code, e.Err)
	}

	return fmt.Sprintf("failed retrieving secret %s: %v", e.SecretName, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// SecretsManagerProvider reads credentials from an AWS Secrets Manager secret
// holding {"APIUser": "...", "APIKey": "..."} as string or binary.
type SecretsManagerProvider struct {
	Region     string `json:"region"`
	SecretName string `json:"secret-name"`

	svcFunc func(client.ConfigProvider) secretsmanageriface.SecretsManagerAPI
}

// NewSecretsManagerProvider returns a provider for secretName in region.
func NewSecretsManagerProvider(region, secretName string) *SecretsManagerProvider {
	return &SecretsManagerProvider{Region: region, SecretName: secretName}
}

// svc is used internally to assist stubs on secrets manager for testing
func (p *SecretsManagerProvider) svc(c client.ConfigProvider) secretsmanageriface.SecretsManagerAPI {
	if p.svcFunc != nil {
		return p.svcFunc(c)
	}

	return secretsmanager.New(c)
}

// Credentials fetches and parses the secret.
func (p *SecretsManagerProvider) Credentials(ctx context.Context) (Credentials, error) {
	s, err := session.NewSession(&aws.Config{
		Region: aws.String(p.Region),
	})

	if err != nil {
		return Credentials{}, &CredentialError{SecretName: p.SecretName, Err: errors.Wrap(err, "failed getting session")}
	}

	output, err := p.svc(s).GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.SecretName),
	})

	if err != nil {
		cerr := &CredentialError{SecretName: p.SecretName, Err: err}
		if aerr, ok := err.(awserr.Error); ok {
			cerr.Code = aerr.Code()
		}
		return Credentials{}, cerr
	}

	var raw []byte
	if output.SecretString != nil {
		raw = []byte(aws.StringValue(output.SecretString))
	} else {
		raw = output.SecretBinary
	}

	creds, err := Parse(raw)
	if err != nil {
		return Credentials{}, &CredentialError{SecretName: p.SecretName, Err: err}
	}

	return creds, nil
}

// Parse decodes a secret payload. Both fields are required.
func Parse(raw []byte) (Credentials, error) {
	var creds Credentials

	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, errors.Wrap(err, "failed to unmarshal secret")
	}

	if creds.APIUser == "" {
		return Credentials{}, errors.New("APIUser is required")
	}

	if creds.APIKey == "" {
		return Credentials{}, errors.New("APIKey is required")
	}

	return creds, nil
}
