// Package paypal implements the CreditCardGateway port against PayPal's
// classic Payments Pro NVP API: DoDirectPayment and
// CreateRecurringPaymentsProfile charges plus
// ManageRecurringPaymentsProfileStatus for recurring profiles.
package paypal

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/hooks"
)

const (
	// LiveEndpoint is the production NVP endpoint
	LiveEndpoint = "https://api-3t.paypal.com/nvp"

	// SandboxEndpoint is the sandbox NVP endpoint
	SandboxEndpoint = "https://api-3t.sandbox.paypal.com/nvp"

	// apiVersion is the NVP API version this client is written against
	apiVersion = "59.0"

	userAgent = "paypalpro-payment-service"
)

// NVP method names used by this client
const (
	methodDoDirectPayment                    = "DoDirectPayment"
	methodCreateRecurringPaymentsProfile     = "CreateRecurringPaymentsProfile"
	methodManageRecurringPaymentsProfileStatus = "ManageRecurringPaymentsProfileStatus"
)

// Credentials is one API credential set. Sandbox and live sets are fully
// distinct and must never be mixed.
type Credentials struct {
	Username  string
	Password  string
	Signature string
}

// Config contains configuration for the PayPal NVP client. Endpoint and
// credentials are resolved once from the sandbox/live mode flag so charge and
// profile-status calls cannot disagree about the mode.
type Config struct {
	Endpoint      string
	Credentials   Credentials
	PaymentAction models.PaymentAction

	// NotifyURL receives gateway webhook notifications
	NotifyURL string

	// Timeout bounds the single synchronous call; the gateway can be slow, so
	// the default is generous
	Timeout time.Duration

	// InsecureSkipVerify disables TLS verification on outbound calls. The
	// legacy integration always disabled it; here it is off unless asked for.
	InsecureSkipVerify bool
}

// DefaultConfig returns configuration for the given mode with the 90 second
// timeout the gateway integration has always used
func DefaultConfig(sandbox bool, creds Credentials) *Config {
	endpoint := LiveEndpoint
	if sandbox {
		endpoint = SandboxEndpoint
	}

	return &Config{
		Endpoint:      endpoint,
		Credentials:   creds,
		PaymentAction: models.ActionSale,
		Timeout:       90 * time.Second,
	}
}

// Gateway implements ports.CreditCardGateway over the NVP wire protocol
type Gateway struct {
	config     *Config
	httpClient ports.HTTPClient
	logger     ports.Logger
	hooks      *hooks.Registry
}

// NewGateway creates a new PayPal NVP gateway client. hooks may be nil.
func NewGateway(config *Config, logger ports.Logger, registry *hooks.Registry) *Gateway {
	if config.Timeout <= 0 {
		config.Timeout = 90 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Gateway{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		logger: logger,
		hooks:  registry,
	}
}
