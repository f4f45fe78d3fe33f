// Package subscription manages recurring payment profiles after checkout:
// cancellation requested by the customer or storefront, and status changes
// reported by the gateway.
package subscription

import (
	"context"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
)

// defaultCancelNote accompanies every cancellation request sent to the gateway
const defaultCancelNote = "Customer cancelled the subscription"

// Service drives recurring-profile lifecycle operations
type Service struct {
	ledger  dports.TransactionRepository
	gateway dports.CreditCardGateway
	logger  ports.Logger
}

// NewService creates a new subscription service
func NewService(ledger dports.TransactionRepository, gateway dports.CreditCardGateway, logger ports.Logger) *Service {
	return &Service{
		ledger:  ledger,
		gateway: gateway,
		logger:  logger,
	}
}

// CancelSubscription cancels the recurring profile on the gateway and marks
// the originating ledger entry cancelled. The gateway call runs first: if it
// fails, the ledger keeps the old status so the operation can be retried.
func (s *Service) CancelSubscription(ctx context.Context, profileID, note string) error {
	if note == "" {
		note = defaultCancelNote
	}

	transaction, err := s.ledger.GetByGatewayID(ctx, nil, profileID)
	if err != nil {
		return err
	}

	if err := s.gateway.UpdateProfileStatus(ctx, profileID, models.ProfileActionCancel, note); err != nil {
		s.logger.Warn("Profile cancellation failed",
			ports.String("profile_id", profileID),
			ports.Err(err),
		)
		return err
	}

	if err := s.ledger.UpdateStatus(ctx, nil, transaction.ID, models.StatusCancelled); err != nil {
		return err
	}

	s.logger.Info("Subscription cancelled",
		ports.String("profile_id", profileID),
		ports.String("transaction_id", transaction.ID),
	)
	return nil
}

// MarkCancelled records a cancellation the gateway reported on its own,
// without issuing another gateway call
func (s *Service) MarkCancelled(ctx context.Context, profileID string) error {
	transaction, err := s.ledger.GetByGatewayID(ctx, nil, profileID)
	if err != nil {
		return err
	}
	if transaction.Status == models.StatusCancelled {
		return nil
	}
	if err := s.ledger.UpdateStatus(ctx, nil, transaction.ID, models.StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("Subscription marked cancelled from gateway notification",
		ports.String("profile_id", profileID),
		ports.String("transaction_id", transaction.ID),
	)
	return nil
}
