package paypal

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/adapters/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain"
	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
	dports "github.com/prometheus-digital/paypalpro-payment-service/internal/domain/ports"
	"github.com/prometheus-digital/paypalpro-payment-service/pkg/observability"
)

// Charge performs a single synchronous payment call: DoDirectPayment, or
// CreateRecurringPaymentsProfile when the request carries a recurring plan.
// There are no retries; any failure terminates the attempt and the checkout
// must be resubmitted from scratch.
func (g *Gateway) Charge(ctx context.Context, req *dports.ChargeRequest) (*dports.ChargeResult, error) {
	method := methodDoDirectPayment
	if req.RecurringPlan != nil {
		method = methodCreateRecurringPaymentsProfile
	}

	g.logger.Info("Sending payment request",
		ports.String("method", method),
		ports.String("reference", req.Cart.Reference),
		ports.String("amount", req.Cart.Total.StringFixed(2)),
		ports.String("currency", req.Cart.Currency),
		ports.String("card_brand", string(req.Card.Brand)),
		ports.String("card_last_four", req.Card.LastFour()),
	)

	data := g.buildChargeData(req)

	// Feature add-ons get the last word on the outbound mapping
	g.hooks.ApplyChargeData(data, req.Cart, req.Customer)

	values, err := g.call(ctx, method, data)
	if err != nil {
		return nil, err
	}

	if !ackSuccess(values) {
		messages := collectErrorMessages(values)
		g.logger.Warn("Payment request declined",
			ports.String("method", method),
			ports.String("reference", req.Cart.Reference),
			ports.Int("message_count", len(messages)),
		)
		return nil, domain.NewGatewayError(domain.ErrorCodeGatewayDeclined, messages)
	}

	result, err := parseChargeResult(values)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Payment request acknowledged",
		ports.String("method", method),
		ports.String("gateway_id", result.GatewayID),
		ports.String("status", string(result.Status)),
		ports.Bool("recurring", result.Recurring),
	)

	return result, nil
}

// UpdateProfileStatus changes a recurring profile's status through
// ManageRecurringPaymentsProfileStatus, using the same credential resolution,
// transport, and error aggregation as Charge
func (g *Gateway) UpdateProfileStatus(ctx context.Context, profileID string, action models.ProfileAction, note string) error {
	g.logger.Info("Updating recurring profile status",
		ports.String("profile_id", profileID),
		ports.String("action", string(action)),
	)

	data := g.buildProfileStatusData(profileID, action, note)
	g.hooks.ApplyProfileStatusData(data, profileID)

	values, err := g.call(ctx, methodManageRecurringPaymentsProfileStatus, data)
	if err != nil {
		return err
	}

	if !ackSuccess(values) {
		messages := collectErrorMessages(values)
		g.logger.Warn("Profile status update rejected",
			ports.String("profile_id", profileID),
			ports.Int("message_count", len(messages)),
		)
		return domain.NewGatewayError(domain.ErrorCodeGatewayDeclined, messages)
	}

	return nil
}

// call transmits one NVP request and parses the reply. The response body is
// the same ampersand-delimited key=value encoding as the request.
func (g *Gateway) call(ctx context.Context, method string, data url.Values) (url.Values, error) {
	start := time.Now()
	outcome := "transport_error"
	defer func() {
		observability.RecordGatewayRequest(method, outcome, time.Since(start))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "build gateway request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		g.logger.Error("Gateway unreachable",
			ports.String("method", method),
			ports.Err(err),
		)
		return nil, domain.WrapError(domain.ErrorCodeGatewayUnavailable,
			"Payment API unavailable, please try again", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "protocol_error"
		return nil, domain.WrapError(domain.ErrorCodeGatewayProtocol, "read gateway response", err)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		outcome = "protocol_error"
		g.logger.Error("Empty gateway response",
			ports.String("method", method),
			ports.Int("status_code", resp.StatusCode),
		)
		return nil, domain.NewDomainError(domain.ErrorCodeGatewayProtocol,
			"Payment API error, please try again")
	}

	values, err := url.ParseQuery(trimmed)
	if err != nil {
		outcome = "protocol_error"
		return nil, domain.WrapError(domain.ErrorCodeGatewayProtocol, "parse gateway response", err)
	}

	if ackSuccess(values) {
		outcome = "success"
	} else {
		outcome = "failure"
	}

	g.logger.Debug("Gateway call completed",
		ports.String("method", method),
		ports.String("ack", values.Get("ACK")),
		ports.String("elapsed", time.Since(start).String()),
	)

	return values, nil
}
