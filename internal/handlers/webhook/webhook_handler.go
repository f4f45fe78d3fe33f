// Package webhook ingests gateway notifications (IPN-style form posts) and
// applies them to the transaction ledger.
package webhook

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
)

// Notification field and value names used by the gateway
const (
	fieldTxnType            = "txn_type"
	fieldTxnID              = "txn_id"
	fieldParentTxnID        = "parent_txn_id"
	fieldRecurringProfileID = "recurring_payment_id"
	fieldPaymentStatus      = "payment_status"
	fieldTotalRefunded      = "total_refunded" // cumulative, in cents

	txnTypeProfileCancel = "recurring_payment_profile_cancel"
)

// LedgerUpdater is the slice of the payment service the webhook needs
type LedgerUpdater interface {
	UpdateTransactionStatus(ctx context.Context, gatewayID string, status models.TransactionStatus) error
	ApplyRefund(ctx context.Context, gatewayID string, totalRefundedCents int64) error
}

// SubscriptionCanceller marks subscriptions the gateway cancelled on its own
type SubscriptionCanceller interface {
	MarkCancelled(ctx context.Context, profileID string) error
}

// Handler processes gateway notifications. Notifications for transactions
// this service never recorded are acknowledged and dropped, matching how the
// gateway expects listeners to behave.
type Handler struct {
	ledger        LedgerUpdater
	subscriptions SubscriptionCanceller
	logger        *zap.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(ledger LedgerUpdater, subscriptions SubscriptionCanceller, logger *zap.Logger) *Handler {
	return &Handler{
		ledger:        ledger,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

// paymentStatusMap translates gateway payment stati to ledger stati. Refund
// stati are handled separately because they carry an amount.
var paymentStatusMap = map[string]models.TransactionStatus{
	"Completed": models.StatusSucceeded,
	"Pending":   models.StatusPending,
	"Denied":    models.StatusFailed,
	"Failed":    models.StatusFailed,
	"Voided":    models.StatusCancelled,
}

// ServeHTTP handles POST /webhook/paypal
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed notification", http.StatusBadRequest)
		return
	}

	txnType := r.PostFormValue(fieldTxnType)
	paymentStatus := r.PostFormValue(fieldPaymentStatus)

	h.logger.Info("Gateway notification received",
		zap.String("txn_type", txnType),
		zap.String("payment_status", paymentStatus),
	)

	var err error
	switch {
	case txnType == txnTypeProfileCancel:
		err = h.handleProfileCancel(r)
	case paymentStatus == "Refunded" || paymentStatus == "Reversed":
		err = h.handleRefund(r)
	case paymentStatus != "":
		err = h.handleStatusChange(r, paymentStatus)
	default:
		// Not a notification kind this service tracks
		w.WriteHeader(http.StatusOK)
		return
	}

	if err != nil {
		if domain.IsDomainError(err, domain.ErrorCodeValidationFailed) {
			http.Error(w, "malformed notification", http.StatusBadRequest)
			return
		}
		if domain.IsDomainError(err, domain.ErrorCodeTxnNotFound) {
			// Unknown transaction: acknowledge so the gateway stops retrying
			h.logger.Warn("Notification for unknown transaction dropped",
				zap.String("txn_type", txnType),
				zap.String("payment_status", paymentStatus),
			)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("Notification processing failed", zap.Error(err))
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleProfileCancel(r *http.Request) error {
	profileID := r.PostFormValue(fieldRecurringProfileID)
	if profileID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "notification carries no profile id")
	}
	return h.subscriptions.MarkCancelled(r.Context(), profileID)
}

func (h *Handler) handleRefund(r *http.Request) error {
	// Refund notifications reference the original transaction
	gatewayID := r.PostFormValue(fieldParentTxnID)
	if gatewayID == "" {
		gatewayID = r.PostFormValue(fieldTxnID)
	}
	if gatewayID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "notification carries no transaction id")
	}

	totalRefunded, err := strconv.ParseInt(r.PostFormValue(fieldTotalRefunded), 10, 64)
	if err != nil || totalRefunded < 0 {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "total_refunded must be a non-negative integer")
	}

	return h.ledger.ApplyRefund(r.Context(), gatewayID, totalRefunded)
}

func (h *Handler) handleStatusChange(r *http.Request, paymentStatus string) error {
	status, ok := paymentStatusMap[paymentStatus]
	if !ok {
		// Unrecognized stati are acknowledged without a ledger change
		h.logger.Debug("Ignoring unmapped payment status", zap.String("payment_status", paymentStatus))
		return nil
	}

	gatewayID := r.PostFormValue(fieldTxnID)
	if gatewayID == "" {
		gatewayID = r.PostFormValue(fieldRecurringProfileID)
	}
	if gatewayID == "" {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "notification carries no transaction id")
	}

	return h.ledger.UpdateTransactionStatus(r.Context(), gatewayID, status)
}
