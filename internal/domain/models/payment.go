package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/card"
)

// TransactionStatus represents the current state of a transaction
type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusSucceeded     TransactionStatus = "succeeded"
	StatusRefunded      TransactionStatus = "refunded"
	StatusPartialRefund TransactionStatus = "partial-refund"
	StatusCancelled     TransactionStatus = "cancelled"
	StatusFailed        TransactionStatus = "failed"

	// Dispute stati reported by the gateway webhook
	StatusNeedsResponse TransactionStatus = "needs_response"
	StatusUnderReview   TransactionStatus = "under_review"
	StatusWon           TransactionStatus = "won"
)

// Label returns the human readable label shown in the storefront admin
func (s TransactionStatus) Label() string {
	switch s {
	case StatusSucceeded:
		return "Paid"
	case StatusRefunded:
		return "Refunded"
	case StatusPartialRefund:
		return "Partially Refunded"
	case StatusNeedsResponse:
		return "Disputed: needs a response"
	case StatusUnderReview:
		return "Disputed: under review"
	case StatusWon:
		return "Disputed: won, Paid"
	default:
		return "Unknown"
	}
}

// ClearedForDelivery reports whether goods attached to a transaction in this
// status may be handed over to the customer
func (s TransactionStatus) ClearedForDelivery() bool {
	switch s {
	case StatusSucceeded, StatusPartialRefund, StatusWon:
		return true
	}
	return false
}

// PaymentAction selects between an immediate sale and a delayed-capture
// authorization on the gateway
type PaymentAction string

const (
	ActionSale          PaymentAction = "Sale"
	ActionAuthorization PaymentAction = "Authorization"
)

// Transaction is one ledger entry: a single checkout attempt that the gateway
// acknowledged. Failed attempts are never recorded.
type Transaction struct {
	ID          string
	CustomerID  string
	GatewayID   string // TRANSACTIONID or recurring PROFILEID
	Method      string // payment method slug, e.g. "paypal_pro"
	Amount      decimal.Decimal
	Currency    string
	Description string
	Status      TransactionStatus
	CardBrand   string
	CardLastFour string
	Recurring   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Refund is one refund appended to a transaction
type Refund struct {
	ID            string
	TransactionID string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// Customer is the read-only profile of the buyer as known to the host store
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// Address is a billing or shipping address block. Unset fields stay empty
// strings so the outbound request always carries the full block.
type Address struct {
	FirstName   string
	LastName    string
	CompanyName string
	Address1    string
	Address2    string
	City        string
	State       string
	Zip         string
	Country     string
	Phone       string
}

// WithDefaults fills first/last name from the customer profile when the
// stored address leaves them empty
func (a Address) WithDefaults(customer Customer) Address {
	if a.FirstName == "" {
		a.FirstName = customer.FirstName
	}
	if a.LastName == "" {
		a.LastName = customer.LastName
	}
	return a
}

// CardDetails is the card submitted on the checkout form. Transient only:
// never persisted, never logged.
type CardDetails struct {
	Brand    card.Brand
	Number   string
	ExpMonth int
	ExpYear  int
	CVV      string
}

// LastFour returns the trailing digits safe for the ledger and logs
func (c CardDetails) LastFour() string {
	n := card.Normalize(c.Number)
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}

// LineItem is one cart line in the transaction snapshot
type LineItem struct {
	ProductID string
	Name      string
	Subtotal  decimal.Decimal // base price * quantity, after plugin adjustments
	Quantity  int
	Digital   bool

	// Recurring product configuration, only meaningful when AutoRenew is set
	AutoRenew       bool
	BillingInterval string // "monthly", "yearly", ...
}

// UnitAmount is the final per-unit price derived from the subtotal
func (l LineItem) UnitAmount() decimal.Decimal {
	if l.Quantity <= 1 {
		return l.Subtotal
	}
	return l.Subtotal.Div(decimal.NewFromInt(int64(l.Quantity)))
}

// CartSnapshot is the immutable description of what was in the customer's
// cart when they hit purchase
type CartSnapshot struct {
	Reference   string // host transaction reference, carried as INVNUM/PROFILEREFERENCE
	Total       decimal.Decimal
	Currency    string
	Description string
	Items       []LineItem
}

// RecurringItem returns the single auto-renewing line item, if and only if
// the cart holds exactly one line item and it auto-renews. Multi-item carts
// are always charged as one-time payments.
func (c CartSnapshot) RecurringItem() (LineItem, bool) {
	if len(c.Items) != 1 || !c.Items[0].AutoRenew {
		return LineItem{}, false
	}
	return c.Items[0], true
}
