package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
)

// TransactionRepository implements the ledger port with hand-written pgx
// queries
type TransactionRepository struct {
	db dports.DBPort
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db dports.DBPort) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) querier(tx dports.DBTX) dports.DBTX {
	if tx != nil {
		return tx
	}
	return r.db.GetDB()
}

// Create appends a new transaction to the ledger
func (r *TransactionRepository) Create(ctx context.Context, tx dports.DBTX, transaction *models.Transaction) error {
	id, err := uuid.Parse(transaction.ID)
	if err != nil {
		return fmt.Errorf("invalid transaction ID: %w", err)
	}

	_, err = r.querier(tx).Exec(ctx, `
		INSERT INTO transactions (
			id, customer_id, gateway_id, method, amount, currency,
			description, status, card_brand, card_last_four, recurring,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())`,
		id,
		transaction.CustomerID,
		transaction.GatewayID,
		transaction.Method,
		transaction.Amount.String(),
		transaction.Currency,
		transaction.Description,
		string(transaction.Status),
		transaction.CardBrand,
		transaction.CardLastFour,
		transaction.Recurring,
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create transaction", err)
	}

	return nil
}

const transactionColumns = `
	id, customer_id, gateway_id, method, amount::text, currency,
	description, status, card_brand, card_last_four, recurring,
	created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var id uuid.UUID
	var amount string

	err := row.Scan(
		&id, &t.CustomerID, &t.GatewayID, &t.Method, &amount, &t.Currency,
		&t.Description, &t.Status, &t.CardBrand, &t.CardLastFour, &t.Recurring,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ID = id.String()
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}

	return &t, nil
}

// GetByGatewayID looks a transaction up by the processor's identifier
func (r *TransactionRepository) GetByGatewayID(ctx context.Context, tx dports.DBTX, gatewayID string) (*models.Transaction, error) {
	row := r.querier(tx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE gateway_id = $1`,
		gatewayID,
	)

	transaction, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
		}
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction by gateway id", err)
	}

	return transaction, nil
}

// GetStatus returns the current status of a transaction
func (r *TransactionRepository) GetStatus(ctx context.Context, tx dports.DBTX, id string) (models.TransactionStatus, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid transaction ID: %w", err)
	}

	var status models.TransactionStatus
	err = r.querier(tx).QueryRow(ctx,
		`SELECT status FROM transactions WHERE id = $1`, txID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
		}
		return "", domain.WrapError(domain.ErrorCodeDatabaseError, "get transaction status", err)
	}

	return status, nil
}

// UpdateStatus replaces the status of a transaction
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx dports.DBTX, id string, status models.TransactionStatus) error {
	txID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid transaction ID: %w", err)
	}

	tag, err := r.querier(tx).Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`,
		txID, string(status),
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "update transaction status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
	}

	return nil
}

// AddRefund appends one refund to a transaction
func (r *TransactionRepository) AddRefund(ctx context.Context, tx dports.DBTX, refund *models.Refund) error {
	id, err := uuid.Parse(refund.ID)
	if err != nil {
		return fmt.Errorf("invalid refund ID: %w", err)
	}
	txID, err := uuid.Parse(refund.TransactionID)
	if err != nil {
		return fmt.Errorf("invalid transaction ID: %w", err)
	}

	_, err = r.querier(tx).Exec(ctx, `
		INSERT INTO refunds (id, transaction_id, amount, created_at)
		VALUES ($1, $2, $3, now())`,
		id, txID, refund.Amount.String(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "add refund", err)
	}

	return nil
}

// ListRefunds returns all refunds recorded against a transaction, oldest
// first
func (r *TransactionRepository) ListRefunds(ctx context.Context, tx dports.DBTX, transactionID string) ([]models.Refund, error) {
	txID, err := uuid.Parse(transactionID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction ID: %w", err)
	}

	rows, err := r.querier(tx).Query(ctx, `
		SELECT id, transaction_id, amount::text, created_at
		FROM refunds WHERE transaction_id = $1 ORDER BY created_at`,
		txID,
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list refunds", err)
	}
	defer rows.Close()

	var refunds []models.Refund
	for rows.Next() {
		var refund models.Refund
		var id, refTxID uuid.UUID
		var amount string

		if err := rows.Scan(&id, &refTxID, &amount, &refund.CreatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan refund", err)
		}

		refund.ID = id.String()
		refund.TransactionID = refTxID.String()
		refund.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse refund amount: %w", err)
		}

		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}
