package paypal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/card"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/hooks"
	"github.com/prometheus-digital/paypalpro-payment-service/test/mocks"
)

func setupGatewayTest(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	config := DefaultConfig(true, Credentials{
		Username:  "api.sandbox.example.com",
		Password:  "sandbox-password",
		Signature: "sandbox-signature",
	})
	config.Endpoint = server.URL
	config.NotifyURL = "https://store.example.com/webhook/paypal"

	gateway := NewGateway(config, mocks.NewMockLogger(), hooks.NewRegistry())

	return gateway, server
}

func testChargeRequest() *dports.ChargeRequest {
	return &dports.ChargeRequest{
		Cart: models.CartSnapshot{
			Reference:   "1042",
			Total:       decimal.NewFromFloat(25.00),
			Currency:    "USD",
			Description: "Test order",
			Items: []models.LineItem{
				{
					ProductID: "77",
					Name:      "Annual membership",
					Subtotal:  decimal.NewFromFloat(25.00),
					Quantity:  1,
				},
			},
		},
		Customer: models.Customer{
			ID:        "9",
			FirstName: "John",
			LastName:  "Doe",
			Email:     "john@example.com",
		},
		BillingAddress: models.Address{
			FirstName: "John",
			LastName:  "Doe",
			Address1:  "1 Main St",
			City:      "Springfield",
			State:     "IL",
			Zip:       "62704",
			Country:   "US",
		},
		ShippingAddress: models.Address{
			FirstName: "John",
			LastName:  "Doe",
		},
		Card: models.CardDetails{
			Brand:    card.BrandVisa,
			Number:   "4111111111111111",
			ExpMonth: 4,
			ExpYear:  27,
			CVV:      "123",
		},
		ClientIP: "203.0.113.9",
	}
}

func TestGateway_Charge_Success(t *testing.T) {
	var received url.Values

	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		received = r.PostForm

		w.Write([]byte("ACK=Success&TRANSACTIONID=T1&AMT=25.00"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	result, err := gateway.Charge(context.Background(), testChargeRequest())

	require.NoError(t, err)
	assert.Equal(t, "T1", result.GatewayID)
	assert.Equal(t, models.StatusSucceeded, result.Status)
	assert.False(t, result.Recurring)

	// Request assembly
	assert.Equal(t, "DoDirectPayment", received.Get("METHOD"))
	assert.Equal(t, "Sale", received.Get("PAYMENTACTION"))
	assert.Equal(t, "25.00", received.Get("AMT"))
	assert.Equal(t, "USD", received.Get("CURRENCYCODE"))
	assert.Equal(t, "Visa", received.Get("CREDITCARDTYPE"))
	assert.Equal(t, "4111111111111111", received.Get("ACCT"))
	assert.Equal(t, "042027", received.Get("EXPDATE"))
	assert.Equal(t, "123", received.Get("CVV2"))
	assert.Equal(t, "59.0", received.Get("VERSION"))
	assert.Equal(t, "api.sandbox.example.com", received.Get("USER"))
	assert.Equal(t, "John Doe", received.Get("SHIPTONAME"))
	assert.Equal(t, "203.0.113.9", received.Get("IPADDRESS"))
	assert.Equal(t, "https://store.example.com/webhook/paypal", received.Get("NOTIFYURL"))
	assert.Contains(t, received.Get("INVNUM"), "1042|")

	// Line items carry no prefix for direct payments
	assert.Equal(t, "77", received.Get("L_NUMBER0"))
	assert.Equal(t, "Annual membership", received.Get("L_NAME0"))
	assert.Equal(t, "25.00", received.Get("L_AMT0"))
	assert.Equal(t, "1", received.Get("L_QTY0"))
	assert.False(t, received.Has("L_ITEMCATEGORY0"))
}

func TestGateway_Charge_RecurringProfile(t *testing.T) {
	var received url.Values

	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte("ACK=Success&PROFILEID=I-ABC123&PROFILESTATUS=ActiveProfile"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	req := testChargeRequest()
	req.Cart.Items[0].AutoRenew = true
	req.Cart.Items[0].BillingInterval = "yearly"
	req.Cart.Items[0].Digital = true
	plan := models.DefaultRecurringPlan("yearly")
	req.RecurringPlan = &plan

	result, err := gateway.Charge(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "I-ABC123", result.GatewayID)
	assert.Equal(t, models.StatusSucceeded, result.Status)
	assert.True(t, result.Recurring)

	assert.Equal(t, "CreateRecurringPaymentsProfile", received.Get("METHOD"))
	assert.Equal(t, "Year", received.Get("BILLINGPERIOD"))
	assert.Equal(t, "1", received.Get("BILLINGFREQUENCY"))
	assert.Equal(t, "0", received.Get("TOTALBILLINGCYCLES"))
	assert.Equal(t, "0", received.Get("MAXFAILEDPAYMENTS"))
	assert.Equal(t, "John Doe", received.Get("SUBSCRIBERNAME"))
	assert.Equal(t, "1042", received.Get("PROFILEREFERENCE"))
	assert.NotEmpty(t, received.Get("PROFILESTARTDATE"))

	// Line items move under the payment request prefix
	assert.Equal(t, "77", received.Get("L_PAYMENTREQUEST_0_NUMBER0"))
	assert.Equal(t, "Digital", received.Get("L_PAYMENTREQUEST_0_ITEMCATEGORY0"))
	assert.False(t, received.Has("L_NUMBER0"))
}

func TestGateway_Charge_PendingProfile(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ACK=Success&PROFILEID=I-PEND1&PROFILESTATUS=PendingProfile"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	req := testChargeRequest()
	plan := models.DefaultRecurringPlan("monthly")
	req.RecurringPlan = &plan

	result, err := gateway.Charge(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "I-PEND1", result.GatewayID)
	assert.Equal(t, models.StatusPending, result.Status)
}

func TestGateway_Charge_Declined(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ACK=Failure&L_SHORTMESSAGE0=Bad&L_LONGMESSAGE0=Card+declined&L_ERRORCODE0=15005"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	result, err := gateway.Charge(context.Background(), testChargeRequest())

	require.Error(t, err)
	assert.Nil(t, result)

	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, domain.ErrorCodeGatewayDeclined, gatewayErr.Code)
	require.Len(t, gatewayErr.Messages, 1)
	assert.Equal(t, "Bad: Card declined (Error Code #15005)", gatewayErr.Messages[0])
}

func TestGateway_Charge_EmptyBody(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		// No body at all
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	_, err := gateway.Charge(context.Background(), testChargeRequest())

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayProtocol))
}

func TestGateway_Charge_Unreachable(t *testing.T) {
	gateway, server := setupGatewayTest(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close() // connection refused from here on

	_, err := gateway.Charge(context.Background(), testChargeRequest())

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayUnavailable))
}

func TestGateway_Charge_SuccessWithoutIdentifier(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ACK=Success"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	_, err := gateway.Charge(context.Background(), testChargeRequest())

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeGatewayProtocol))
}

func TestGateway_Charge_HookMutatesRequest(t *testing.T) {
	var received url.Values

	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte("ACK=Success&TRANSACTIONID=T2"))
	}

	server := httptest.NewServer(http.HandlerFunc(handler))
	defer server.Close()

	registry := hooks.NewRegistry()
	registry.OnChargeData(func(data url.Values, cart models.CartSnapshot, customer models.Customer) {
		data.Set("CUSTOM", "addon-"+customer.ID)
	})

	config := DefaultConfig(true, Credentials{Username: "u", Password: "p", Signature: "s"})
	config.Endpoint = server.URL
	gateway := NewGateway(config, mocks.NewMockLogger(), registry)

	_, err := gateway.Charge(context.Background(), testChargeRequest())

	require.NoError(t, err)
	assert.Equal(t, "addon-9", received.Get("CUSTOM"))
}

func TestGateway_UpdateProfileStatus_Success(t *testing.T) {
	var received url.Values

	handler := func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		received = r.PostForm
		w.Write([]byte("ACK=Success&PROFILEID=I-ABC123"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	err := gateway.UpdateProfileStatus(context.Background(), "I-ABC123", models.ProfileActionCancel, "customer request")

	require.NoError(t, err)
	assert.Equal(t, "ManageRecurringPaymentsProfileStatus", received.Get("METHOD"))
	assert.Equal(t, "I-ABC123", received.Get("PROFILEID"))
	assert.Equal(t, "Cancel", received.Get("ACTION"))
	assert.Equal(t, "customer request", received.Get("NOTE"))
	assert.Equal(t, "59.0", received.Get("VERSION"))
}

func TestGateway_UpdateProfileStatus_Failure(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ACK=Failure&L_SHORTMESSAGE0=Profile+not+found&L_ERRORCODE0=11552"))
	}

	gateway, server := setupGatewayTest(t, handler)
	defer server.Close()

	err := gateway.UpdateProfileStatus(context.Background(), "I-NOPE", models.ProfileActionCancel, "")

	var gatewayErr *domain.GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	require.Len(t, gatewayErr.Messages, 1)
	assert.Equal(t, "Profile not found (Error Code #11552)", gatewayErr.Messages[0])
}

func TestDefaultConfig_ModeResolution(t *testing.T) {
	live := DefaultConfig(false, Credentials{Username: "live-user"})
	sandbox := DefaultConfig(true, Credentials{Username: "sandbox-user"})

	assert.Equal(t, LiveEndpoint, live.Endpoint)
	assert.Equal(t, SandboxEndpoint, sandbox.Endpoint)
	assert.Equal(t, "live-user", live.Credentials.Username)
	assert.Equal(t, "sandbox-user", sandbox.Credentials.Username)
}
