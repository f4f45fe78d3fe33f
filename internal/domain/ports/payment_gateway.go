package ports

import (
	"context"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
)

// ChargeRequest carries everything the gateway needs for one checkout
// attempt. Exactly one request is built and sent per attempt; nothing is
// retained between the request and its response.
type ChargeRequest struct {
	Cart            models.CartSnapshot
	Customer        models.Customer
	BillingAddress  models.Address
	ShippingAddress models.Address
	Card            models.CardDetails

	// RecurringPlan switches the call from a direct payment to a
	// recurring-profile creation when non-nil
	RecurringPlan *models.RecurringPlan

	ClientIP string
}

// ChargeResult is the normalized gateway outcome of a successful exchange
type ChargeResult struct {
	// GatewayID is the transaction identifier, or the recurring profile
	// identifier when a profile was created
	GatewayID string

	// Status is succeeded, or pending for recurring profiles the gateway has
	// not activated yet
	Status models.TransactionStatus

	// Recurring is set when GatewayID names a recurring profile
	Recurring bool
}

// CreditCardGateway defines the interface for the card payment processor
type CreditCardGateway interface {
	// Charge performs a single synchronous payment call. Business failures
	// surface as *domain.GatewayError carrying the processor's messages.
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)

	// UpdateProfileStatus changes a recurring profile's status (typically
	// Cancel). There is no meaningful payload beyond success or failure.
	UpdateProfileStatus(ctx context.Context, profileID string, action models.ProfileAction, note string) error
}
