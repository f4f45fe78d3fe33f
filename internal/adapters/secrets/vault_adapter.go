package secrets

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
)

// VaultConfig contains configuration for the HashiCorp Vault adapter
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Token authentication
	Token string

	// Vault namespace (Vault Enterprise)
	Namespace string

	// KV v2 secrets engine mount path (default: "secret")
	MountPath string
}

// DefaultVaultConfig returns default configuration for the Vault adapter
func DefaultVaultConfig(address, token string) *VaultConfig {
	return &VaultConfig{
		Address:   address,
		Token:     token,
		MountPath: "secret",
	}
}

// vaultAdapter implements the SecretManagerAdapter port for HashiCorp Vault
type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
}

// NewVaultAdapter creates a new HashiCorp Vault adapter
func NewVaultAdapter(cfg *VaultConfig, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required for Vault auth")
	}
	client.SetToken(cfg.Token)

	logger.Info("Vault adapter initialized",
		zap.String("address", cfg.Address),
		zap.String("mount_path", cfg.MountPath),
	)

	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// GetSecret retrieves a secret from the Vault KV v2 engine. The "value"
// field of the secret data holds the credential.
func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	kv := a.client.KVv2(a.config.MountPath)

	secret, err := kv.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	value, ok := secret.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("secret %s has no string value field", path)
	}

	metadata := make(map[string]string)
	for k, v := range secret.Data {
		if k == "value" {
			continue
		}
		if s, ok := v.(string); ok {
			metadata[k] = s
		}
	}

	version := ""
	if secret.VersionMetadata != nil {
		version = fmt.Sprintf("%d", secret.VersionMetadata.Version)
	}

	return &ports.Secret{
		Value:    value,
		Version:  version,
		Metadata: metadata,
	}, nil
}
