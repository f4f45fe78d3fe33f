package config

import (
	"fmt"
	"os"
	"strconv"
)

// SecretsBackend selects where gateway credentials are read from
type SecretsBackend string

const (
	SecretsBackendEnv   SecretsBackend = "env"
	SecretsBackendLocal SecretsBackend = "local"
	SecretsBackendVault SecretsBackend = "vault"
	SecretsBackendAWS   SecretsBackend = "aws"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Gateway  GatewayConfig
	Secrets  SecretsConfig
	Logger   LoggerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	Host        string
	MetricsPort int

	// Rate limiting on the public routes
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// GatewayConfig holds PayPal Pro gateway configuration. Live and sandbox
// carry fully separate credential sets; SandboxMode picks which set is used.
type GatewayConfig struct {
	SandboxMode bool

	LiveUsername  string
	LivePassword  string
	LiveSignature string

	SandboxUsername  string
	SandboxPassword  string
	SandboxSignature string

	// SaleMethod is "auth_capture" (immediate sale) or "auth" (capture later)
	SaleMethod string

	PurchaseButtonLabel string

	// NotifyURL receives gateway notifications, when set
	NotifyURL string

	TimeoutSeconds     int
	InsecureSkipVerify bool
}

// SecretsConfig selects and configures the credential backend. With the env
// backend the credentials come straight from GatewayConfig; the other
// backends resolve them by path at startup.
type SecretsConfig struct {
	Backend SecretsBackend

	// local backend
	LocalPath string

	// vault backend
	VaultAddress   string
	VaultToken     string
	VaultMountPath string

	// aws backend
	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			MetricsPort:        getEnvAsInt("METRICS_PORT", 9090),
			RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
			RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "paypalpro_payment"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Gateway: GatewayConfig{
			SandboxMode:         getEnvAsBool("PAYPAL_SANDBOX_MODE", true),
			LiveUsername:        getEnv("PAYPAL_LIVE_USERNAME", ""),
			LivePassword:        getEnv("PAYPAL_LIVE_PASSWORD", ""),
			LiveSignature:       getEnv("PAYPAL_LIVE_SIGNATURE", ""),
			SandboxUsername:     getEnv("PAYPAL_SANDBOX_USERNAME", ""),
			SandboxPassword:     getEnv("PAYPAL_SANDBOX_PASSWORD", ""),
			SandboxSignature:    getEnv("PAYPAL_SANDBOX_SIGNATURE", ""),
			SaleMethod:          getEnv("PAYPAL_SALE_METHOD", "auth_capture"),
			PurchaseButtonLabel: getEnv("PAYPAL_PURCHASE_BUTTON_LABEL", "Purchase"),
			NotifyURL:           getEnv("PAYPAL_NOTIFY_URL", ""),
			TimeoutSeconds:      getEnvAsInt("PAYPAL_TIMEOUT", 90),
			InsecureSkipVerify:  getEnvAsBool("PAYPAL_INSECURE_SKIP_VERIFY", false),
		},
		Secrets: SecretsConfig{
			Backend:        SecretsBackend(getEnv("SECRETS_BACKEND", string(SecretsBackendEnv))),
			LocalPath:      getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			VaultAddress:   getEnv("VAULT_ADDR", ""),
			VaultToken:     getEnv("VAULT_TOKEN", ""),
			VaultMountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
			AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
			AWSProfile:     getEnv("AWS_PROFILE", ""),
			AWSEndpoint:    getEnv("AWS_SECRETS_ENDPOINT", ""),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
	}

	switch cfg.Secrets.Backend {
	case SecretsBackendEnv, SecretsBackendLocal, SecretsBackendVault, SecretsBackendAWS:
	default:
		return nil, fmt.Errorf("SECRETS_BACKEND must be one of env, local, vault, aws")
	}

	if cfg.Secrets.Backend == SecretsBackendVault && cfg.Secrets.VaultAddress == "" {
		return nil, fmt.Errorf("VAULT_ADDR is required with the vault secrets backend")
	}

	switch cfg.Gateway.SaleMethod {
	case "auth_capture", "auth":
	default:
		return nil, fmt.Errorf("PAYPAL_SALE_METHOD must be auth_capture or auth")
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// Credentials returns the credential set for the active mode. Only meaningful
// with the env secrets backend; with the others the values come back empty
// and are resolved from the backend instead.
func (c *GatewayConfig) Credentials() (username, password, signature string) {
	if c.SandboxMode {
		return c.SandboxUsername, c.SandboxPassword, c.SandboxSignature
	}
	return c.LiveUsername, c.LivePassword, c.LiveSignature
}

// Mode returns the credential mode name, used as the secret path segment
func (c *GatewayConfig) Mode() string {
	if c.SandboxMode {
		return "sandbox"
	}
	return "live"
}

// ConnectionString returns PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
