package domain

import "time"

// KeyStatus represents the stored status of a license key. Expiry is never
// materialized into the stored status; see LicenseKey.EffectiveStatus.
type KeyStatus string

const (
	KeyStatusActive   KeyStatus = "active"
	KeyStatusInactive KeyStatus = "inactive"

	// KeyStatusExpired is a derived display status only. It is returned by
	// EffectiveStatus and never written to the store.
	KeyStatusExpired KeyStatus = "expired"
)

// Plan codes select the license duration policy applied at issuance.
const (
	Plan3Days    = "3days"
	Plan5Days    = "5days"
	Plan30Days   = "30days"
	Plan3Months  = "3months"
	Plan6Months  = "6months"
	Plan1Year    = "1year"
	PlanLifetime = "lifetime"
)

// PlanCodes lists every recognized plan code in display order.
var PlanCodes = []string{
	Plan3Days, Plan5Days, Plan30Days, Plan3Months, Plan6Months, Plan1Year, PlanLifetime,
}

// LicenseKey represents an issued license for one product, held by a named
// end customer under one owning mentor account.
//
// Invariants: Code is globally unique; the referenced product belongs to
// OwnerID; stored Status only ever moves active -> inactive.
type LicenseKey struct {
	ID          string    `json:"id" validate:"required"`
	Code        string    `json:"code" validate:"required"`
	OwnerID     string    `json:"owner_id" validate:"required"`
	HolderName  string    `json:"holder_name" validate:"required"`
	ProductID   string    `json:"product_id" validate:"required"`
	ProductName string    `json:"product_name"`
	PlanCode    string    `json:"plan_code" validate:"required"`
	Status      KeyStatus `json:"status" validate:"required,oneof=active inactive"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsActive reports whether the stored status is active.
func (k LicenseKey) IsActive() bool {
	return k.Status == KeyStatusActive
}

// EffectiveStatus returns the status as it should be displayed at the given
// instant: an active key past its expiry date reads as expired, but the
// stored status is left untouched.
func (k LicenseKey) EffectiveStatus(now time.Time) KeyStatus {
	if k.Status == KeyStatusActive && k.ExpiresAt.Before(now) {
		return KeyStatusExpired
	}
	return k.Status
}
