package paypal

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/card"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
)

// FormatExpiry normalizes a card expiry to the MMYYYY wire format, zero
// padding the month and expanding two-digit years into the 2000s
func FormatExpiry(month, year int) string {
	if year < 100 {
		year += 2000
	}
	return fmt.Sprintf("%02d%d", month, year)
}

// buildChargeData assembles the full NVP mapping for one charge attempt
func (g *Gateway) buildChargeData(req *dports.ChargeRequest) url.Values {
	method := methodDoDirectPayment
	if req.RecurringPlan != nil {
		method = methodCreateRecurringPaymentsProfile
	}

	billing := req.BillingAddress
	shipping := req.ShippingAddress

	data := url.Values{}

	// Base cart
	data.Set("AMT", req.Cart.Total.StringFixed(2))
	data.Set("CURRENCYCODE", req.Cart.Currency)
	data.Set("DESC", req.Cart.Description)
	data.Set("INVNUM", fmt.Sprintf("%s|%d", req.Cart.Reference, time.Now().Unix()))

	// Credit card information
	data.Set("CREDITCARDTYPE", string(req.Card.Brand))
	data.Set("ACCT", card.Normalize(req.Card.Number))
	data.Set("EXPDATE", FormatExpiry(req.Card.ExpMonth, req.Card.ExpYear))
	data.Set("CVV2", req.Card.CVV)

	// Customer information
	data.Set("EMAIL", req.Customer.Email)
	data.Set("PAYERID", req.Customer.ID)
	data.Set("FIRSTNAME", billing.FirstName)
	data.Set("LASTNAME", billing.LastName)
	data.Set("STREET", billing.Address1)
	data.Set("STREET2", billing.Address2)
	data.Set("CITY", billing.City)
	data.Set("STATE", billing.State)
	data.Set("ZIP", billing.Zip)
	data.Set("COUNTRYCODE", billing.Country)

	// Shipping information
	data.Set("SHIPTONAME", shipping.FirstName+" "+shipping.LastName)
	data.Set("SHIPTOSTREET", shipping.Address1)
	data.Set("SHIPTOSTREET2", shipping.Address2)
	data.Set("SHIPTOCITY", shipping.City)
	data.Set("SHIPTOSTATE", shipping.State)
	data.Set("SHIPTOZIP", shipping.Zip)
	data.Set("SHIPTOCOUNTRYCODE", shipping.Country)

	// API settings
	data.Set("METHOD", method)
	data.Set("PAYMENTACTION", string(g.config.PaymentAction))
	data.Set("RETURNFMFDETAILS", "0")
	data.Set("USER", g.config.Credentials.Username)
	data.Set("PWD", g.config.Credentials.Password)
	data.Set("SIGNATURE", g.config.Credentials.Signature)
	if g.config.NotifyURL != "" {
		data.Set("NOTIFYURL", g.config.NotifyURL)
	}
	if req.ClientIP != "" {
		data.Set("IPADDRESS", req.ClientIP)
	}
	data.Set("VERSION", apiVersion)

	// Recurring profile creation carries the plan block and moves line items
	// under the PAYMENTREQUEST_0_ prefix
	itemPrefix := ""
	if req.RecurringPlan != nil {
		itemPrefix = "PAYMENTREQUEST_0_"

		plan := *req.RecurringPlan

		data.Set("SUBSCRIBERNAME", billing.FirstName+" "+billing.LastName)
		data.Set("PROFILESTARTDATE", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
		data.Set("PROFILEREFERENCE", req.Cart.Reference)

		data.Set("BILLINGPERIOD", string(plan.Unit))
		data.Set("BILLINGFREQUENCY", strconv.Itoa(plan.Frequency))
		data.Set("TOTALBILLINGCYCLES", strconv.Itoa(plan.TotalCycles))
		data.Set("MAXFAILEDPAYMENTS", strconv.Itoa(plan.MaxFailedPayments))
	}

	for i, item := range req.Cart.Items {
		idx := strconv.Itoa(i)
		data.Set("L_"+itemPrefix+"NUMBER"+idx, item.ProductID)
		data.Set("L_"+itemPrefix+"NAME"+idx, item.Name)
		data.Set("L_"+itemPrefix+"AMT"+idx, item.UnitAmount().StringFixed(2))
		data.Set("L_"+itemPrefix+"QTY"+idx, strconv.Itoa(item.Quantity))
		if item.Digital {
			data.Set("L_"+itemPrefix+"ITEMCATEGORY"+idx, "Digital")
		}
	}

	return data
}

// buildProfileStatusData assembles the NVP mapping for a profile status
// change
func (g *Gateway) buildProfileStatusData(profileID string, action models.ProfileAction, note string) url.Values {
	data := url.Values{}

	data.Set("METHOD", methodManageRecurringPaymentsProfileStatus)
	data.Set("PROFILEID", profileID)
	data.Set("ACTION", string(action))
	data.Set("NOTE", note)

	data.Set("USER", g.config.Credentials.Username)
	data.Set("PWD", g.config.Credentials.Password)
	data.Set("SIGNATURE", g.config.Credentials.Signature)
	data.Set("VERSION", apiVersion)

	return data
}
