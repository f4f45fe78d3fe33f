package paypal

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
)

// ackSuccess reports whether the lowercased acknowledgement field is one of
// the two success values; anything else is a failure
func ackSuccess(values url.Values) bool {
	switch strings.ToLower(values.Get("ACK")) {
	case "success", "successwithwarning":
		return true
	}
	return false
}

// collectErrorMessages aggregates the indexed error lists from a failure
// response. The lists are tried in order of decreasing detail and the first
// non-empty one wins: paired short+long messages, short messages only, then
// bare severity codes. Each entry is annotated with its numeric error code.
func collectErrorMessages(values url.Values) []string {
	var messages []string

	for i := 0; values.Has("L_LONGMESSAGE" + strconv.Itoa(i)); i++ {
		idx := strconv.Itoa(i)
		messages = append(messages, fmt.Sprintf("%s: %s (Error Code #%s)",
			values.Get("L_SHORTMESSAGE"+idx),
			values.Get("L_LONGMESSAGE"+idx),
			values.Get("L_ERRORCODE"+idx)))
	}

	if len(messages) == 0 {
		for i := 0; values.Has("L_SHORTMESSAGE" + strconv.Itoa(i)); i++ {
			idx := strconv.Itoa(i)
			messages = append(messages, fmt.Sprintf("%s (Error Code #%s)",
				values.Get("L_SHORTMESSAGE"+idx),
				values.Get("L_ERRORCODE"+idx)))
		}
	}

	if len(messages) == 0 {
		for i := 0; values.Has("L_SEVERITYCODE" + strconv.Itoa(i)); i++ {
			idx := strconv.Itoa(i)
			messages = append(messages, fmt.Sprintf("%s (Error Code #%s)",
				values.Get("L_SEVERITYCODE"+idx),
				values.Get("L_ERRORCODE"+idx)))
		}
	}

	return messages
}

// parseChargeResult normalizes a successful charge acknowledgement into the
// transaction or profile identifier the ledger records
func parseChargeResult(values url.Values) (*dports.ChargeResult, error) {
	if id := values.Get("TRANSACTIONID"); id != "" {
		return &dports.ChargeResult{
			GatewayID: id,
			Status:    models.StatusSucceeded,
		}, nil
	}

	if id := values.Get("PROFILEID"); id != "" {
		status := models.StatusSucceeded
		if values.Get("PROFILESTATUS") == string(models.ProfileStatusPending) {
			status = models.StatusPending
		}
		return &dports.ChargeResult{
			GatewayID: id,
			Status:    status,
			Recurring: true,
		}, nil
	}

	// A success acknowledgement without an identifier cannot be recorded;
	// treat it as a malformed response rather than inventing an outcome.
	return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
		"gateway acknowledged success without a transaction or profile identifier")
}
