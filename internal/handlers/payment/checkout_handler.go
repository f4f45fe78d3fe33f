// Package payment exposes the checkout and subscription endpoints of the
// payment service over HTTP.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/services/payment"
)

// ChargeService is the slice of the payment service the checkout handler needs
type ChargeService interface {
	Charge(ctx context.Context, input payment.ChargeInput) (*payment.ChargeOutcome, error)
}

// SubscriptionService is the slice of the subscription service the cancel
// handler needs
type SubscriptionService interface {
	CancelSubscription(ctx context.Context, profileID, note string) error
}

// CheckoutHandler serves checkout submissions and subscription cancellations
type CheckoutHandler struct {
	payments      ChargeService
	subscriptions SubscriptionService
	logger        *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(payments ChargeService, subscriptions SubscriptionService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		payments:      payments,
		subscriptions: subscriptions,
		logger:        logger,
	}
}

type lineItemRequest struct {
	ProductID       string `json:"product_id"`
	Name            string `json:"name"`
	Subtotal        string `json:"subtotal"`
	Quantity        int    `json:"quantity"`
	Digital         bool   `json:"digital"`
	AutoRenew       bool   `json:"auto_renew"`
	BillingInterval string `json:"billing_interval"`
}

type cardRequest struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVV      string `json:"cvv"`
}

type checkoutRequest struct {
	CustomerID  string            `json:"customer_id"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	LineItems   []lineItemRequest `json:"line_items"`
	Card        cardRequest       `json:"card"`
}

type checkoutResponse struct {
	TransactionID      string `json:"transaction_id"`
	GatewayID          string `json:"gateway_id"`
	Status             string `json:"status"`
	StatusLabel        string `json:"status_label"`
	Recurring          bool   `json:"recurring"`
	ClearedForDelivery bool   `json:"cleared_for_delivery"`
	CardBrand          string `json:"card_brand"`
	CardLastFour       string `json:"card_last_four"`
}

type errorResponse struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Messages []string `json:"messages,omitempty"`
}

// Checkout handles POST /checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, &errorResponse{
			Code: string(domain.ErrorCodeValidationFailed), Message: "invalid request body",
		})
		return
	}

	input, errResp := buildChargeInput(&req, clientIP(r))
	if errResp != nil {
		writeError(w, http.StatusBadRequest, errResp)
		return
	}

	outcome, err := h.payments.Charge(r.Context(), *input)
	if err != nil {
		h.writeChargeError(w, err)
		return
	}

	transaction := outcome.Transaction
	writeJSON(w, http.StatusCreated, checkoutResponse{
		TransactionID:      transaction.ID,
		GatewayID:          transaction.GatewayID,
		Status:             string(transaction.Status),
		StatusLabel:        outcome.StatusLabel,
		Recurring:          transaction.Recurring,
		ClearedForDelivery: transaction.Status.ClearedForDelivery(),
		CardBrand:          transaction.CardBrand,
		CardLastFour:       transaction.CardLastFour,
	})
}

// CancelSubscription handles POST /subscriptions/{profileID}/cancel
func (h *CheckoutHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	profileID := mux.Vars(r)["profileID"]
	if profileID == "" {
		writeError(w, http.StatusBadRequest, &errorResponse{
			Code: string(domain.ErrorCodeValidationFailed), Message: "profile id is required",
		})
		return
	}

	var body struct {
		Note string `json:"note"`
	}
	if r.Body != nil {
		// A missing or empty body means no note
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if err := h.subscriptions.CancelSubscription(r.Context(), profileID, body.Note); err != nil {
		h.writeChargeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCancelled)})
}

func buildChargeInput(req *checkoutRequest, ip string) (*payment.ChargeInput, *errorResponse) {
	if req.CustomerID == "" {
		return nil, &errorResponse{Code: string(domain.ErrorCodeValidationFailed), Message: "customer_id is required"}
	}
	if req.Card.Number == "" {
		return nil, &errorResponse{Code: string(domain.ErrorCodeValidationFailed), Message: "card number is required"}
	}
	if req.Currency == "" {
		return nil, &errorResponse{Code: string(domain.ErrorCodeValidationFailed), Message: "currency is required"}
	}

	total, err := decimal.NewFromString(req.Amount)
	if err != nil || !total.IsPositive() {
		return nil, &errorResponse{Code: string(domain.ErrorCodeValidationFailed), Message: "amount must be a positive decimal"}
	}

	items := make([]models.LineItem, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		subtotal, err := decimal.NewFromString(item.Subtotal)
		if err != nil {
			return nil, &errorResponse{Code: string(domain.ErrorCodeValidationFailed), Message: "line item subtotal must be a decimal"}
		}
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, models.LineItem{
			ProductID:       item.ProductID,
			Name:            item.Name,
			Subtotal:        subtotal,
			Quantity:        quantity,
			Digital:         item.Digital,
			AutoRenew:       item.AutoRenew,
			BillingInterval: item.BillingInterval,
		})
	}

	return &payment.ChargeInput{
		CustomerID: req.CustomerID,
		Cart: models.CartSnapshot{
			Total:       total,
			Currency:    req.Currency,
			Description: req.Description,
			Items:       items,
		},
		Card: models.CardDetails{
			Number:   req.Card.Number,
			ExpMonth: req.Card.ExpMonth,
			ExpYear:  req.Card.ExpYear,
			CVV:      req.Card.CVV,
		},
		ClientIP: ip,
	}, nil
}

// writeChargeError maps service errors to HTTP responses. Gateway declines
// carry the processor's customer-facing messages through.
func (h *CheckoutHandler) writeChargeError(w http.ResponseWriter, err error) {
	code := domain.GetErrorCode(err)
	switch code {
	case domain.ErrorCodeValidationFailed, domain.ErrorCodeValidationInvalidCard:
		writeError(w, http.StatusUnprocessableEntity, &errorResponse{Code: string(code), Message: errMessage(err)})
	case domain.ErrorCodeCustomerNotFound, domain.ErrorCodeTxnNotFound:
		writeError(w, http.StatusNotFound, &errorResponse{Code: string(code), Message: errMessage(err)})
	case domain.ErrorCodeGatewayDeclined:
		resp := &errorResponse{Code: string(code), Message: "payment was declined"}
		var gatewayErr *domain.GatewayError
		if errors.As(err, &gatewayErr) {
			resp.Messages = gatewayErr.Messages
		}
		writeError(w, http.StatusPaymentRequired, resp)
	case domain.ErrorCodeGatewayUnavailable, domain.ErrorCodeGatewayProtocol:
		writeError(w, http.StatusBadGateway, &errorResponse{Code: string(code), Message: errMessage(err)})
	default:
		h.logger.Error("Unhandled checkout error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, &errorResponse{
			Code: string(domain.ErrorCodeInternalError), Message: "internal error",
		})
	}
}

// errMessage prefers the structured message over the full error chain so
// internals never leak into responses
func errMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, resp *errorResponse) {
	writeJSON(w, status, resp)
}
