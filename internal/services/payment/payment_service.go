package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/card"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/hooks"
)

// methodSlug identifies this payment method in the ledger
const methodSlug = "paypal_pro"

// ChargeInput is one checkout submission: the cart snapshot plus the card
// the customer typed into the form. The card is used for the single gateway
// call and then discarded.
type ChargeInput struct {
	CustomerID string
	Cart       models.CartSnapshot
	Card       models.CardDetails
	ClientIP   string
}

// ChargeOutcome is the recorded result of an acknowledged checkout
type ChargeOutcome struct {
	Transaction *models.Transaction

	// StatusLabel is the storefront-facing label for the new status
	StatusLabel string
}

// Service drives the checkout flow: it resolves the customer, classifies the
// card, derives any recurring plan, calls the gateway once, and appends the
// acknowledged attempt to the ledger.
type Service struct {
	db        dports.DBPort
	ledger    dports.TransactionRepository
	customers dports.CustomerStore
	gateway   dports.CreditCardGateway
	hooks     *hooks.Registry
	logger    ports.Logger
}

// NewService creates a new payment service
func NewService(
	db dports.DBPort,
	ledger dports.TransactionRepository,
	customers dports.CustomerStore,
	gateway dports.CreditCardGateway,
	registry *hooks.Registry,
	logger ports.Logger,
) *Service {
	return &Service{
		db:        db,
		ledger:    ledger,
		customers: customers,
		gateway:   gateway,
		hooks:     registry,
		logger:    logger,
	}
}

// Charge runs one checkout attempt end to end. Failed attempts are surfaced
// as errors and never recorded in the ledger.
func (s *Service) Charge(ctx context.Context, input ChargeInput) (*ChargeOutcome, error) {
	customer, err := s.customers.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	billing, err := s.customers.GetBillingAddress(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	billing = billing.WithDefaults(*customer)

	shipping, hasShipping, err := s.customers.GetShippingAddress(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if !hasShipping {
		shipping = billing
	} else {
		shipping = shipping.WithDefaults(*customer)
	}

	brand, ok := card.Classify(input.Card.Number)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationInvalidCard, "Invalid Credit Card")
	}
	input.Card.Brand = brand

	cart := input.Cart
	transactionID := uuid.New().String()
	if cart.Reference == "" {
		cart.Reference = transactionID
	}

	// A single-item auto-renewing cart creates a recurring profile instead
	// of a one-time payment
	var plan *models.RecurringPlan
	if item, recurring := cart.RecurringItem(); recurring {
		derived := models.DefaultRecurringPlan(item.BillingInterval)
		derived = s.hooks.ApplyRecurringPlan(derived, item, cart)
		plan = &derived
	}

	result, err := s.gateway.Charge(ctx, &dports.ChargeRequest{
		Cart:            cart,
		Customer:        *customer,
		BillingAddress:  billing,
		ShippingAddress: shipping,
		Card:            input.Card,
		RecurringPlan:   plan,
		ClientIP:        input.ClientIP,
	})
	if err != nil {
		err = s.hooks.ApplyFailedPayment(ctx, cart, err)
		s.logger.Warn("Checkout attempt failed",
			ports.String("reference", cart.Reference),
			ports.String("customer_id", customer.ID),
			ports.Err(err),
		)
		return nil, err
	}

	now := time.Now()
	transaction := &models.Transaction{
		ID:           transactionID,
		CustomerID:   customer.ID,
		GatewayID:    result.GatewayID,
		Method:       methodSlug,
		Amount:       cart.Total,
		Currency:     cart.Currency,
		Description:  cart.Description,
		Status:       result.Status,
		CardBrand:    string(input.Card.Brand),
		CardLastFour: input.Card.LastFour(),
		Recurring:    result.Recurring,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.ledger.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		// The gateway accepted the payment but the ledger write failed;
		// surface the gateway id so the operator can reconcile by hand
		s.logger.Error("Ledger write failed after accepted payment",
			ports.String("gateway_id", result.GatewayID),
			ports.String("reference", cart.Reference),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "failed to record transaction", err)
	}

	s.logger.Info("Checkout recorded",
		ports.String("transaction_id", transaction.ID),
		ports.String("gateway_id", transaction.GatewayID),
		ports.String("status", string(transaction.Status)),
		ports.Bool("recurring", transaction.Recurring),
	)

	return &ChargeOutcome{
		Transaction: transaction,
		StatusLabel: transaction.Status.Label(),
	}, nil
}

// UpdateTransactionStatus applies a status reported by the gateway webhook to
// the ledger entry holding the given gateway identifier
func (s *Service) UpdateTransactionStatus(ctx context.Context, gatewayID string, status models.TransactionStatus) error {
	transaction, err := s.ledger.GetByGatewayID(ctx, nil, gatewayID)
	if err != nil {
		return err
	}

	if transaction.Status == status {
		return nil
	}

	if err := s.ledger.UpdateStatus(ctx, nil, transaction.ID, status); err != nil {
		return err
	}

	s.logger.Info("Transaction status updated",
		ports.String("transaction_id", transaction.ID),
		ports.String("gateway_id", gatewayID),
		ports.String("status", string(status)),
	)
	return nil
}

// ApplyRefund reconciles the gateway's cumulative refunded amount, given in
// the smallest currency unit, against the refunds already recorded. Only the
// delta is appended, so replaying the same notification is harmless.
func (s *Service) ApplyRefund(ctx context.Context, gatewayID string, totalRefundedCents int64) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		transaction, err := s.ledger.GetByGatewayID(ctx, tx, gatewayID)
		if err != nil {
			return err
		}

		total := decimal.NewFromInt(totalRefundedCents).Div(decimal.NewFromInt(100))

		refunds, err := s.ledger.ListRefunds(ctx, tx, transaction.ID)
		if err != nil {
			return err
		}
		recorded := decimal.Zero
		for _, r := range refunds {
			recorded = recorded.Add(r.Amount)
		}

		delta := total.Sub(recorded)
		if delta.IsPositive() {
			refund := &models.Refund{
				ID:            uuid.New().String(),
				TransactionID: transaction.ID,
				Amount:        delta,
				CreatedAt:     time.Now(),
			}
			if err := s.ledger.AddRefund(ctx, tx, refund); err != nil {
				return err
			}
		}

		status := models.StatusPartialRefund
		if total.GreaterThanOrEqual(transaction.Amount) {
			status = models.StatusRefunded
		}
		if err := s.ledger.UpdateStatus(ctx, tx, transaction.ID, status); err != nil {
			return err
		}

		s.logger.Info("Refund applied",
			ports.String("transaction_id", transaction.ID),
			ports.String("gateway_id", gatewayID),
			ports.String("refunded_total", total.StringFixed(2)),
			ports.String("status", string(status)),
		)
		return nil
	})
}
