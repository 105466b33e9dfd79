package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// PricingPlan grants a phone-identified user a feature tier for a bounded
// duration. Expiry is always derived from created_at + duration_days; it is
// never stored.
type PricingPlan struct {
	ID           string         `json:"id" db:"id"`
	OwnerPhones  pq.StringArray `json:"owner_phones" db:"owner_phones"`
	PhoneKeys    pq.StringArray `json:"-" db:"phone_keys"`
	PlanName     string         `json:"plan_name" db:"plan_name"`
	PackageType  string         `json:"package_type" db:"package_type"`
	DurationDays int            `json:"duration_days" db:"duration_days"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// IsFree reports whether the plan grants only the free tier. A nil plan is
// free by definition.
func (p *PricingPlan) IsFree() bool {
	if p == nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(p.PlanName), "free")
}
