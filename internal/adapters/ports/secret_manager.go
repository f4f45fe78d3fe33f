package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value    string
	Version  string
	Metadata map[string]string
}

// SecretManagerAdapter defines the port for retrieving secrets, used to load
// the gateway API credentials outside of plain environment configuration.
// Path format depends on the backend:
//   - local: a file path relative to the configured base directory
//   - Vault: a KV v2 path under the configured mount
//   - AWS: the secret name or ARN
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
