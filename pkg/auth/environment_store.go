package auth

import (
	"os"
	"time"

	"followgraph/pkg/config"
)

// TokenEnv is the environment variable read by EnvironmentStore
const TokenEnv = config.EnvPrefix + "BEARER_TOKEN"

// EnvironmentStore exposes a bearer token from the environment as read-only
// credentials named DefaultName.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token for DefaultName or an empty name
func (e *EnvironmentStore) Retrieve(name string) (*Credentials, error) {
	token := os.Getenv(TokenEnv)
	if token == "" || (name != "" && name != DefaultName) {
		return nil, ErrCredentialsNotFound
	}

	return &Credentials{
		Name:         DefaultName,
		BearerToken:  token,
		BaseURL:      os.Getenv(config.EnvPrefix + "BASE_URL"),
		LastModified: time.Time{},
	}, nil
}

// List returns the environment credentials if the token is set
func (e *EnvironmentStore) List() ([]*Credentials, error) {
	creds, err := e.Retrieve("")
	if err != nil {
		return []*Credentials{}, nil
	}
	return []*Credentials{creds}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
