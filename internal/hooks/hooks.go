// Package hooks is the extension-point registry for feature add-ons. Add-ons
// register callbacks at startup; the payment flow applies them at the same
// points the host store exposed to plugins: recurring-plan parameters, the
// outbound request mapping, and failed-payment handling.
package hooks

import (
	"context"
	"net/url"
	"sync"

	"github.com/prometheus-digital/paypalpro-payment-service/internal/domain/models"
)

// PlanFunc may adjust the recurring plan derived from product configuration
// before the profile is created
type PlanFunc func(plan models.RecurringPlan, item models.LineItem, cart models.CartSnapshot) models.RecurringPlan

// ChargeDataFunc may mutate the assembled request mapping before transmission
type ChargeDataFunc func(data url.Values, cart models.CartSnapshot, customer models.Customer)

// ProfileStatusDataFunc may mutate a profile-status request before transmission
type ProfileStatusDataFunc func(data url.Values, profileID string)

// FailedPaymentFunc may replace the error surfaced for a failed charge.
// Returning the error unchanged keeps the default handling.
type FailedPaymentFunc func(ctx context.Context, cart models.CartSnapshot, err error) error

// Registry holds registered extension callbacks. The zero value is usable and
// a nil *Registry applies no hooks.
type Registry struct {
	mu                sync.RWMutex
	planHooks         []PlanFunc
	chargeDataHooks   []ChargeDataFunc
	profileDataHooks  []ProfileStatusDataFunc
	failedPaymentHooks []FailedPaymentFunc
}

// NewRegistry creates an empty hook registry
func NewRegistry() *Registry {
	return &Registry{}
}

// OnRecurringPlan registers a recurring-plan override
func (r *Registry) OnRecurringPlan(fn PlanFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.planHooks = append(r.planHooks, fn)
}

// OnChargeData registers an outbound charge request mutation
func (r *Registry) OnChargeData(fn ChargeDataFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chargeDataHooks = append(r.chargeDataHooks, fn)
}

// OnProfileStatusData registers a profile-status request mutation
func (r *Registry) OnProfileStatusData(fn ProfileStatusDataFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profileDataHooks = append(r.profileDataHooks, fn)
}

// OnFailedPayment registers a failed-payment handler override
func (r *Registry) OnFailedPayment(fn FailedPaymentFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedPaymentHooks = append(r.failedPaymentHooks, fn)
}

// ApplyRecurringPlan runs all plan overrides in registration order
func (r *Registry) ApplyRecurringPlan(plan models.RecurringPlan, item models.LineItem, cart models.CartSnapshot) models.RecurringPlan {
	if r == nil {
		return plan
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.planHooks {
		plan = fn(plan, item, cart)
	}
	return plan
}

// ApplyChargeData runs all charge request mutations in registration order
func (r *Registry) ApplyChargeData(data url.Values, cart models.CartSnapshot, customer models.Customer) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.chargeDataHooks {
		fn(data, cart, customer)
	}
}

// ApplyProfileStatusData runs all profile-status request mutations
func (r *Registry) ApplyProfileStatusData(data url.Values, profileID string) {
	if r == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.profileDataHooks {
		fn(data, profileID)
	}
}

// ApplyFailedPayment runs failed-payment overrides, threading the error
// through each handler
func (r *Registry) ApplyFailedPayment(ctx context.Context, cart models.CartSnapshot, err error) error {
	if r == nil {
		return err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, fn := range r.failedPaymentHooks {
		err = fn(ctx, cart, err)
	}
	return err
}
