package payment

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/hooks"
	"github.com/prometheus-digital/paypalpro-payment-service/test/mocks"
)

// fakeDB runs transaction functions directly without a database
type fakeDB struct{}

func (f *fakeDB) GetDB() *pgxpool.Pool { return nil }

func (f *fakeDB) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

// fakeLedger is an in-memory TransactionRepository
type fakeLedger struct {
	transactions map[string]*models.Transaction
	refunds      map[string][]models.Refund
	createErr    error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		transactions: make(map[string]*models.Transaction),
		refunds:      make(map[string][]models.Refund),
	}
}

func (f *fakeLedger) Create(ctx context.Context, tx dports.DBTX, transaction *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *transaction
	f.transactions[transaction.ID] = &copied
	return nil
}

func (f *fakeLedger) GetByGatewayID(ctx context.Context, tx dports.DBTX, gatewayID string) (*models.Transaction, error) {
	for _, t := range f.transactions {
		if t.GatewayID == gatewayID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
}

func (f *fakeLedger) GetStatus(ctx context.Context, tx dports.DBTX, id string) (models.TransactionStatus, error) {
	t, ok := f.transactions[id]
	if !ok {
		return "", domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
	}
	return t.Status, nil
}

func (f *fakeLedger) UpdateStatus(ctx context.Context, tx dports.DBTX, id string, status models.TransactionStatus) error {
	t, ok := f.transactions[id]
	if !ok {
		return domain.NewDomainError(domain.ErrorCodeTxnNotFound, "transaction not found")
	}
	t.Status = status
	return nil
}

func (f *fakeLedger) AddRefund(ctx context.Context, tx dports.DBTX, refund *models.Refund) error {
	f.refunds[refund.TransactionID] = append(f.refunds[refund.TransactionID], *refund)
	return nil
}

func (f *fakeLedger) ListRefunds(ctx context.Context, tx dports.DBTX, transactionID string) ([]models.Refund, error) {
	return f.refunds[transactionID], nil
}

// fakeCustomers serves one customer with optional stored addresses
type fakeCustomers struct {
	customer    models.Customer
	billing     models.Address
	shipping    models.Address
	hasShipping bool
}

func (f *fakeCustomers) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if id != f.customer.ID {
		return nil, domain.NewDomainError(domain.ErrorCodeCustomerNotFound, "customer not found")
	}
	c := f.customer
	return &c, nil
}

func (f *fakeCustomers) GetBillingAddress(ctx context.Context, id string) (models.Address, error) {
	return f.billing, nil
}

func (f *fakeCustomers) GetShippingAddress(ctx context.Context, id string) (models.Address, bool, error) {
	return f.shipping, f.hasShipping, nil
}

// MockGateway implements ports.CreditCardGateway for testing
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req *dports.ChargeRequest) (*dports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dports.ChargeResult), args.Error(1)
}

func (m *MockGateway) UpdateProfileStatus(ctx context.Context, profileID string, action models.ProfileAction, note string) error {
	args := m.Called(ctx, profileID, action, note)
	return args.Error(0)
}

func setupPaymentService() (*Service, *fakeLedger, *fakeCustomers, *MockGateway, *hooks.Registry) {
	ledger := newFakeLedger()
	customers := &fakeCustomers{
		customer: models.Customer{ID: "cust-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		billing:  models.Address{Address1: "1 Analytical Way", City: "London", Country: "GB", Zip: "N1 9GU"},
	}
	gateway := new(MockGateway)
	registry := hooks.NewRegistry()
	service := NewService(&fakeDB{}, ledger, customers, gateway, registry, mocks.NewMockLogger())
	return service, ledger, customers, gateway, registry
}

func testCart() models.CartSnapshot {
	return models.CartSnapshot{
		Total:       decimal.RequireFromString("49.99"),
		Currency:    "USD",
		Description: "Pro membership",
		Items: []models.LineItem{
			{ProductID: "prod-9", Name: "Pro membership", Subtotal: decimal.RequireFromString("49.99"), Quantity: 1, Digital: true},
		},
	}
}

func testCard() models.CardDetails {
	return models.CardDetails{Number: "4111111111111111", ExpMonth: 4, ExpYear: 2027, CVV: "123"}
}

func TestCharge_Success(t *testing.T) {
	service, ledger, _, gateway, _ := setupPaymentService()

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req *dports.ChargeRequest) bool {
		return req.Card.Brand == "Visa" &&
			req.RecurringPlan == nil &&
			req.BillingAddress.FirstName == "Ada" &&
			req.ShippingAddress == req.BillingAddress
	})).Return(&dports.ChargeResult{GatewayID: "5KJ72957GD027625W", Status: models.StatusSucceeded}, nil)

	outcome, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       testCart(),
		Card:       testCard(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, outcome.Transaction.Status)
	assert.Equal(t, "Paid", outcome.StatusLabel)
	assert.Equal(t, "Visa", outcome.Transaction.CardBrand)
	assert.Equal(t, "1111", outcome.Transaction.CardLastFour)
	assert.Equal(t, "paypal_pro", outcome.Transaction.Method)

	stored, ok := ledger.transactions[outcome.Transaction.ID]
	require.True(t, ok, "transaction must be recorded")
	assert.Equal(t, outcome.Transaction.GatewayID, stored.GatewayID)
	gateway.AssertExpectations(t)
}

func TestCharge_InvalidCard(t *testing.T) {
	service, ledger, _, gateway, _ := setupPaymentService()

	card := testCard()
	card.Number = "4111111111111112" // checksum failure

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       testCart(),
		Card:       card,
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeValidationInvalidCard))
	assert.Empty(t, ledger.transactions)
	gateway.AssertNotCalled(t, "Charge")
}

func TestCharge_UnknownCustomer(t *testing.T) {
	service, _, _, gateway, _ := setupPaymentService()

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-unknown",
		Cart:       testCart(),
		Card:       testCard(),
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeCustomerNotFound))
	gateway.AssertNotCalled(t, "Charge")
}

func TestCharge_RecurringSingleItem(t *testing.T) {
	service, _, _, gateway, registry := setupPaymentService()

	registry.OnRecurringPlan(func(plan models.RecurringPlan, item models.LineItem, cart models.CartSnapshot) models.RecurringPlan {
		plan.MaxFailedPayments = 3
		return plan
	})

	cart := testCart()
	cart.Items[0].AutoRenew = true
	cart.Items[0].BillingInterval = "yearly"

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req *dports.ChargeRequest) bool {
		return req.RecurringPlan != nil &&
			req.RecurringPlan.Unit == models.BillingUnitYear &&
			req.RecurringPlan.Frequency == 1 &&
			req.RecurringPlan.MaxFailedPayments == 3
	})).Return(&dports.ChargeResult{GatewayID: "I-PROFILE1", Status: models.StatusPending, Recurring: true}, nil)

	outcome, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       cart,
		Card:       testCard(),
	})

	require.NoError(t, err)
	assert.True(t, outcome.Transaction.Recurring)
	assert.Equal(t, models.StatusPending, outcome.Transaction.Status)
	gateway.AssertExpectations(t)
}

func TestCharge_MultiItemCartNeverRecurring(t *testing.T) {
	service, _, _, gateway, _ := setupPaymentService()

	cart := testCart()
	second := cart.Items[0]
	second.ProductID = "prod-10"
	second.AutoRenew = true
	cart.Items = append(cart.Items, second)
	cart.Items[0].AutoRenew = true

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req *dports.ChargeRequest) bool {
		return req.RecurringPlan == nil
	})).Return(&dports.ChargeResult{GatewayID: "TXN-2", Status: models.StatusSucceeded}, nil)

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       cart,
		Card:       testCard(),
	})

	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestCharge_StoredShippingAddressUsed(t *testing.T) {
	service, _, customers, gateway, _ := setupPaymentService()

	customers.hasShipping = true
	customers.shipping = models.Address{Address1: "9 Depot Rd", City: "Leeds", Country: "GB"}

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req *dports.ChargeRequest) bool {
		return req.ShippingAddress.Address1 == "9 Depot Rd" &&
			req.ShippingAddress.FirstName == "Ada" // defaulted from the profile
	})).Return(&dports.ChargeResult{GatewayID: "TXN-3", Status: models.StatusSucceeded}, nil)

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       testCart(),
		Card:       testCard(),
	})

	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestCharge_GatewayDeclineNotRecorded(t *testing.T) {
	service, ledger, _, gateway, registry := setupPaymentService()

	var hookCart models.CartSnapshot
	registry.OnFailedPayment(func(ctx context.Context, cart models.CartSnapshot, err error) error {
		hookCart = cart
		return err
	})

	declined := domain.NewGatewayError(domain.ErrorCodeGatewayDeclined, []string{"Bad: Card declined (Error Code #15005)"})
	gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, declined)

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       testCart(),
		Card:       testCard(),
	})

	require.Error(t, err)
	assert.True(t, domain.IsGatewayDeclined(err))
	assert.Empty(t, ledger.transactions)
	assert.NotEmpty(t, hookCart.Reference, "failed-payment hook must see the referenced cart")
}

func TestCharge_LedgerFailureAfterAcceptedPayment(t *testing.T) {
	service, ledger, _, gateway, _ := setupPaymentService()

	ledger.createErr = domain.NewDomainError(domain.ErrorCodeDatabaseError, "insert failed")
	gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&dports.ChargeResult{GatewayID: "TXN-4", Status: models.StatusSucceeded}, nil)

	_, err := service.Charge(context.Background(), ChargeInput{
		CustomerID: "cust-1",
		Cart:       testCart(),
		Card:       testCard(),
	})

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeDatabaseError))
}

func TestUpdateTransactionStatus(t *testing.T) {
	service, ledger, _, _, _ := setupPaymentService()

	ledger.transactions["txn-1"] = &models.Transaction{
		ID: "txn-1", GatewayID: "GW-1", Status: models.StatusPending,
		Amount: decimal.RequireFromString("10.00"),
	}

	err := service.UpdateTransactionStatus(context.Background(), "GW-1", models.StatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSucceeded, ledger.transactions["txn-1"].Status)

	err = service.UpdateTransactionStatus(context.Background(), "GW-missing", models.StatusSucceeded)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTxnNotFound))
}

func TestApplyRefund_PartialThenFull(t *testing.T) {
	service, ledger, _, _, _ := setupPaymentService()

	ledger.transactions["txn-1"] = &models.Transaction{
		ID: "txn-1", GatewayID: "GW-1", Status: models.StatusSucceeded,
		Amount: decimal.RequireFromString("50.00"),
	}

	require.NoError(t, service.ApplyRefund(context.Background(), "GW-1", 1000))
	assert.Equal(t, models.StatusPartialRefund, ledger.transactions["txn-1"].Status)
	require.Len(t, ledger.refunds["txn-1"], 1)
	assert.True(t, ledger.refunds["txn-1"][0].Amount.Equal(decimal.RequireFromString("10")))

	// Gateway reports the cumulative total; only the delta is appended
	require.NoError(t, service.ApplyRefund(context.Background(), "GW-1", 5000))
	assert.Equal(t, models.StatusRefunded, ledger.transactions["txn-1"].Status)
	require.Len(t, ledger.refunds["txn-1"], 2)
	assert.True(t, ledger.refunds["txn-1"][1].Amount.Equal(decimal.RequireFromString("40")))
}

func TestApplyRefund_ReplayIsIdempotent(t *testing.T) {
	service, ledger, _, _, _ := setupPaymentService()

	ledger.transactions["txn-1"] = &models.Transaction{
		ID: "txn-1", GatewayID: "GW-1", Status: models.StatusSucceeded,
		Amount: decimal.RequireFromString("50.00"),
	}

	require.NoError(t, service.ApplyRefund(context.Background(), "GW-1", 1000))
	require.NoError(t, service.ApplyRefund(context.Background(), "GW-1", 1000))

	assert.Len(t, ledger.refunds["txn-1"], 1)
	assert.Equal(t, models.StatusPartialRefund, ledger.transactions["txn-1"].Status)
}
