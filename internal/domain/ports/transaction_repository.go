package ports

import (
	"context"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
)

// TransactionRepository is the host transaction ledger. One row is appended
// per acknowledged checkout attempt; webhook processing mutates status and
// appends refunds afterwards.
type TransactionRepository interface {
	// Create appends a new transaction. tx may be nil to run outside an
	// explicit database transaction.
	Create(ctx context.Context, tx DBTX, transaction *models.Transaction) error

	// GetByGatewayID looks a transaction up by the processor's identifier
	// (transaction id or recurring profile id)
	GetByGatewayID(ctx context.Context, tx DBTX, gatewayID string) (*models.Transaction, error)

	// GetStatus returns the current status of a transaction
	GetStatus(ctx context.Context, tx DBTX, id string) (models.TransactionStatus, error)

	// UpdateStatus replaces the status of a transaction
	UpdateStatus(ctx context.Context, tx DBTX, id string, status models.TransactionStatus) error

	// AddRefund appends one refund to a transaction
	AddRefund(ctx context.Context, tx DBTX, refund *models.Refund) error

	// ListRefunds returns all refunds recorded against a transaction
	ListRefunds(ctx context.Context, tx DBTX, transactionID string) ([]models.Refund, error)
}

// CustomerStore provides read-only access to the host store's customer
// profiles and addresses
type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)

	// GetBillingAddress returns the stored billing address, or a zero Address
	// when the customer has none on file
	GetBillingAddress(ctx context.Context, id string) (models.Address, error)

	// GetShippingAddress returns the stored shipping address and whether one
	// exists; callers fall back to the billing address when it does not
	GetShippingAddress(ctx context.Context, id string) (models.Address, bool, error)
}
