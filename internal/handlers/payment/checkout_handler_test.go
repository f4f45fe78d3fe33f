package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/services/payment"
)

type stubPayments struct {
	lastInput payment.ChargeInput
	outcome   *payment.ChargeOutcome
	err       error
}

func (s *stubPayments) Charge(ctx context.Context, input payment.ChargeInput) (*payment.ChargeOutcome, error) {
	s.lastInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome, nil
}

type stubSubscriptions struct {
	lastProfileID string
	lastNote      string
	err           error
}

func (s *stubSubscriptions) CancelSubscription(ctx context.Context, profileID, note string) error {
	s.lastProfileID = profileID
	s.lastNote = note
	return s.err
}

func setupRouter(payments *stubPayments, subscriptions *stubSubscriptions) *mux.Router {
	handler := NewCheckoutHandler(payments, subscriptions, zap.NewNop())
	router := mux.NewRouter()
	router.HandleFunc("/checkout", handler.Checkout).Methods(http.MethodPost)
	router.HandleFunc("/subscriptions/{profileID}/cancel", handler.CancelSubscription).Methods(http.MethodPost)
	return router
}

func validCheckoutBody() map[string]any {
	return map[string]any{
		"customer_id": "cust-1",
		"amount":      "49.99",
		"currency":    "USD",
		"description": "Pro membership",
		"line_items": []map[string]any{
			{"product_id": "prod-9", "name": "Pro membership", "subtotal": "49.99", "quantity": 1, "digital": true},
		},
		"card": map[string]any{
			"number": "4111111111111111", "exp_month": 4, "exp_year": 2027, "cvv": "123",
		},
	}
}

func postJSON(t *testing.T, router *mux.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckout_Success(t *testing.T) {
	payments := &stubPayments{
		outcome: &payment.ChargeOutcome{
			Transaction: &models.Transaction{
				ID:           "txn-1",
				GatewayID:    "5KJ72957GD027625W",
				Status:       models.StatusSucceeded,
				CardBrand:    "Visa",
				CardLastFour: "1111",
			},
			StatusLabel: "Paid",
		},
	}
	router := setupRouter(payments, &stubSubscriptions{})

	rec := postJSON(t, router, "/checkout", validCheckoutBody())

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "txn-1", resp.TransactionID)
	assert.Equal(t, "Paid", resp.StatusLabel)
	assert.True(t, resp.ClearedForDelivery)
	assert.Equal(t, "1111", resp.CardLastFour)

	assert.Equal(t, "cust-1", payments.lastInput.CustomerID)
	assert.True(t, payments.lastInput.Cart.Total.Equal(decimal.RequireFromString("49.99")))
	require.Len(t, payments.lastInput.Cart.Items, 1)
	assert.True(t, payments.lastInput.Cart.Items[0].Digital)
}

func TestCheckout_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(body map[string]any)
	}{
		{"missing customer", func(b map[string]any) { b["customer_id"] = "" }},
		{"missing card number", func(b map[string]any) { b["card"] = map[string]any{} }},
		{"bad amount", func(b map[string]any) { b["amount"] = "forty" }},
		{"negative amount", func(b map[string]any) { b["amount"] = "-1.00" }},
		{"missing currency", func(b map[string]any) { b["currency"] = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := &stubPayments{}
			router := setupRouter(payments, &stubSubscriptions{})

			body := validCheckoutBody()
			tt.mutate(body)

			rec := postJSON(t, router, "/checkout", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, payments.lastInput.CustomerID, "service must not be called")
		})
	}
}

func TestCheckout_InvalidCard(t *testing.T) {
	payments := &stubPayments{err: domain.NewDomainError(domain.ErrorCodeValidationInvalidCard, "Invalid Credit Card")}
	router := setupRouter(payments, &stubSubscriptions{})

	rec := postJSON(t, router, "/checkout", validCheckoutBody())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_INVALID_CARD", resp.Code)
	assert.Equal(t, "Invalid Credit Card", resp.Message)
}

func TestCheckout_Declined(t *testing.T) {
	payments := &stubPayments{err: domain.NewGatewayError(domain.ErrorCodeGatewayDeclined,
		[]string{"Bad: Card declined (Error Code #15005)"})}
	router := setupRouter(payments, &stubSubscriptions{})

	rec := postJSON(t, router, "/checkout", validCheckoutBody())

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "GATEWAY_DECLINED", resp.Code)
	assert.Equal(t, []string{"Bad: Card declined (Error Code #15005)"}, resp.Messages)
}

func TestCheckout_GatewayUnavailable(t *testing.T) {
	payments := &stubPayments{err: domain.NewDomainError(domain.ErrorCodeGatewayUnavailable,
		"Payment API unavailable, please try again")}
	router := setupRouter(payments, &stubSubscriptions{})

	rec := postJSON(t, router, "/checkout", validCheckoutBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCheckout_UnknownCustomer(t *testing.T) {
	payments := &stubPayments{err: domain.NewDomainError(domain.ErrorCodeCustomerNotFound, "customer not found")}
	router := setupRouter(payments, &stubSubscriptions{})

	rec := postJSON(t, router, "/checkout", validCheckoutBody())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSubscription(t *testing.T) {
	subscriptions := &stubSubscriptions{}
	router := setupRouter(&stubPayments{}, subscriptions)

	rec := postJSON(t, router, "/subscriptions/I-PROFILE1/cancel", map[string]string{"note": "moving away"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "I-PROFILE1", subscriptions.lastProfileID)
	assert.Equal(t, "moving away", subscriptions.lastNote)
}

func TestCancelSubscription_UnknownProfile(t *testing.T) {
	subscriptions := &stubSubscriptions{err: domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")}
	router := setupRouter(&stubPayments{}, subscriptions)

	rec := postJSON(t, router, "/subscriptions/I-MISSING/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
