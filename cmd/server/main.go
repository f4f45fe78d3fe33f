package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/logging"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/paypal"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/postgres"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/secrets"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/config"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	paymentHandler "github.com/prometheus-digital/paypalpro-payment-service/internal/handlers/payment"
	webhookHandler "github.com/prometheus-digital/paypalpro-payment-service/internal/handlers/webhook"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/hooks"
	paymentService "github.com/prometheus-digital/paypalpro-payment-service/internal/services/payment"
	subscriptionService "github.com/prometheus-digital/paypalpro-payment-service/internal/services/subscription"
	"github.com/prometheus-digital/paypalpro-payment-service/pkg/middleware"
	"github.com/prometheus-digital/paypalpro-payment-service/pkg/observability"
)

func main() {
	// Load .env for local development; missing files are fine
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting PayPal Pro payment service",
		zap.Bool("sandbox_mode", cfg.Gateway.SandboxMode),
		zap.String("secrets_backend", string(cfg.Secrets.Backend)),
	)

	dbPool, err := initDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbPool.Close()

	logger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	creds, err := resolveCredentials(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to resolve gateway credentials", zap.Error(err))
	}

	gatewayConfig := paypal.DefaultConfig(cfg.Gateway.SandboxMode, creds)
	gatewayConfig.NotifyURL = cfg.Gateway.NotifyURL
	gatewayConfig.Timeout = time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second
	gatewayConfig.InsecureSkipVerify = cfg.Gateway.InsecureSkipVerify
	if cfg.Gateway.SaleMethod == "auth" {
		gatewayConfig.PaymentAction = models.ActionAuthorization
	}

	adapterLogger := logging.NewZapLogger(logger)
	registry := hooks.NewRegistry()
	gateway := paypal.NewGateway(gatewayConfig, adapterLogger, registry)

	dbExec := postgres.NewDBExecutor(dbPool)
	ledger := postgres.NewTransactionRepository(dbExec)
	customers := postgres.NewCustomerRepository(dbExec)

	payments := paymentService.NewService(dbExec, ledger, customers, gateway, registry, adapterLogger)
	subscriptions := subscriptionService.NewService(ledger, gateway, adapterLogger)

	checkout := paymentHandler.NewCheckoutHandler(payments, subscriptions, logger)
	webhook := webhookHandler.NewHandler(payments, subscriptions, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)
	defer rateLimiter.Stop()

	router := mux.NewRouter()
	router.Handle("/checkout",
		observability.HTTPMetrics("checkout", rateLimiter.Middleware(http.HandlerFunc(checkout.Checkout))),
	).Methods(http.MethodPost)
	router.Handle("/webhook/paypal",
		observability.HTTPMetrics("webhook", webhook),
	).Methods(http.MethodPost)
	router.Handle("/subscriptions/{profileID}/cancel",
		observability.HTTPMetrics("subscription_cancel", rateLimiter.Middleware(http.HandlerFunc(checkout.CancelSubscription))),
	).Methods(http.MethodPost)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	metricsServer := observability.StartMetricsServer(fmt.Sprintf("%d", cfg.Server.MetricsPort))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // gateway calls can run up to the 90s timeout
	}

	go func() {
		logger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
			zap.Int("metrics_port", cfg.Server.MetricsPort),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		logger.Error("Metrics server shutdown error", zap.Error(err))
	}

	logger.Info("Servers stopped")
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	if cfg.Development {
		logger, _ := zap.NewDevelopment()
		return logger
	}

	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level = parsed
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, _ := zapCfg.Build()
	return logger
}

// initDatabase initializes the PostgreSQL connection pool
func initDatabase(cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// resolveCredentials reads the gateway credential set for the active mode
// from the configured secrets backend
func resolveCredentials(ctx context.Context, cfg *config.Config, logger *zap.Logger) (paypal.Credentials, error) {
	if cfg.Secrets.Backend == config.SecretsBackendEnv {
		username, password, signature := cfg.Gateway.Credentials()
		if username == "" || password == "" || signature == "" {
			return paypal.Credentials{}, fmt.Errorf("gateway credentials for %s mode are not set", cfg.Gateway.Mode())
		}
		return paypal.Credentials{Username: username, Password: password, Signature: signature}, nil
	}

	manager, err := newSecretManager(ctx, cfg, logger)
	if err != nil {
		return paypal.Credentials{}, err
	}

	mode := cfg.Gateway.Mode()
	read := func(name string) (string, error) {
		secret, err := manager.GetSecret(ctx, fmt.Sprintf("paypalpro/%s/%s", mode, name))
		if err != nil {
			return "", err
		}
		return secret.Value, nil
	}

	var creds paypal.Credentials
	if creds.Username, err = read("username"); err != nil {
		return paypal.Credentials{}, err
	}
	if creds.Password, err = read("password"); err != nil {
		return paypal.Credentials{}, err
	}
	if creds.Signature, err = read("signature"); err != nil {
		return paypal.Credentials{}, err
	}
	return creds, nil
}

func newSecretManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.SecretManagerAdapter, error) {
	switch cfg.Secrets.Backend {
	case config.SecretsBackendLocal:
		return secrets.NewLocalSecretManager(cfg.Secrets.LocalPath, logger), nil
	case config.SecretsBackendVault:
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress, cfg.Secrets.VaultToken)
		vaultCfg.MountPath = cfg.Secrets.VaultMountPath
		return secrets.NewVaultAdapter(vaultCfg, logger)
	case config.SecretsBackendAWS:
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Profile = cfg.Secrets.AWSProfile
		awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
		return secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend %q", cfg.Secrets.Backend)
	}
}
