package models

// BillingUnit is the recurring billing period unit understood by the gateway
type BillingUnit string

const (
	BillingUnitMonth BillingUnit = "Month"
	BillingUnitYear  BillingUnit = "Year"
)

// BillingUnitForInterval maps a product's billing interval setting to a
// gateway billing unit. Anything that is not yearly bills monthly.
func BillingUnitForInterval(interval string) BillingUnit {
	if interval == "yearly" {
		return BillingUnitYear
	}
	return BillingUnitMonth
}

// RecurringPlan describes the recurring profile to create for an
// auto-renewing product. Values start from product configuration and may be
// overridden through extension hooks before use.
type RecurringPlan struct {
	Unit             BillingUnit
	Frequency        int // billing frequency within the unit
	TotalCycles      int // 0 = until cancelled
	MaxFailedPayments int
}

// DefaultRecurringPlan returns the plan derived from a product's billing
// interval: bill once per unit, forever, with no failed-payment allowance.
func DefaultRecurringPlan(interval string) RecurringPlan {
	return RecurringPlan{
		Unit:             BillingUnitForInterval(interval),
		Frequency:        1,
		TotalCycles:      0,
		MaxFailedPayments: 0,
	}
}

// ProfileStatus is the recurring profile status reported by the gateway
type ProfileStatus string

const (
	ProfileStatusActive  ProfileStatus = "ActiveProfile"
	ProfileStatusPending ProfileStatus = "PendingProfile"
)

// ProfileAction is a status change request for a recurring profile
type ProfileAction string

const (
	ProfileActionCancel     ProfileAction = "Cancel"
	ProfileActionSuspend    ProfileAction = "Suspend"
	ProfileActionReactivate ProfileAction = "Reactivate"
)
