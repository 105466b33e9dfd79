// Package interest resolves what happens when a property owner expresses
// interest in a buyer request. The outcome depends on the owner's pricing
// plan: paid plans produce a live connection, free or absent plans record
// the attempt so sales can follow up.
package interest

import (
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
)

// Outcome is the buyer-request status that an interest registration lands on.
type Outcome struct {
	Status models.RequestStatus
	// Connected is true when the owner holds a paid plan and the buyer's
	// contact may be released.
	Connected bool
}

// Decide maps the interested owner's pricing plan to an outcome. A nil plan
// or a free-tier plan records a tried-but-not-connected state.
func Decide(plan *models.PricingPlan) Outcome {
	if plan == nil || plan.IsFree() {
		return Outcome{Status: models.RequestStatusInterestTried, Connected: false}
	}
	return Outcome{Status: models.RequestStatusInterest, Connected: true}
}

// AppendInterested adds the owner's normalized phone key to the request's
// interested set. Duplicate and empty keys are dropped; the slice keeps
// first-seen order so the earliest interest stays first. The bool reports
// whether the set actually changed, letting callers skip redundant writes.
func AppendInterested(existing []string, ownerPhone string) ([]string, bool) {
	key := phone.Key(ownerPhone)
	if key == "" {
		return existing, false
	}
	for _, p := range existing {
		if p == key {
			return existing, false
		}
	}
	return append(existing, key), true
}
