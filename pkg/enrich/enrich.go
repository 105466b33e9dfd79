// Package enrich assembles the buyer-request admin views: each request joined
// with its owner's pricing plan, the linked listing, that listing's latest
// bill and latest follow-up. Joins are left joins; a missing side renders as
// "N/A" rather than dropping the request.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/trellis/pkg/expiry"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const dateLayout = "2006-01-02"

// PlanReader fetches pricing plans for a set of phone keys.
type PlanReader interface {
	ListByPhoneKeys(ctx context.Context, keys []string) ([]models.PricingPlan, error)
}

// BillReader fetches the latest bill per listing.
type BillReader interface {
	LatestByListingIDs(ctx context.Context, listingIDs []string) (map[string]models.Bill, error)
}

// FollowUpReader fetches the latest follow-up per listing.
type FollowUpReader interface {
	LatestByListingIDs(ctx context.Context, listingIDs []string) (map[string]models.FollowUp, error)
}

// ListingReader fetches listings by business id.
type ListingReader interface {
	ListByListingIDs(ctx context.Context, listingIDs []string) ([]models.Listing, error)
}

// View is a buyer request with its joined context flattened for the admin
// surface. String fields fall back to "N/A" when the joined record is absent.
type View struct {
	models.BuyerRequest

	PlanName      string     `json:"plan_name"`
	PackageType   string     `json:"package_type"`
	PlanExpiresOn string     `json:"plan_expires_on"`
	PlanCountdown string     `json:"plan_countdown"`
	PlanExpiry    *time.Time `json:"-"`

	BillAmount  *int64 `json:"bill_amount,omitempty"`
	BillStatus  string `json:"bill_status"`
	BillValidTo string `json:"bill_valid_to"`

	FollowUpStatus string `json:"follow_up_status"`
	FollowUpType   string `json:"follow_up_type"`
	FollowUpDate   string `json:"follow_up_date"`
	FollowUpAdmin  string `json:"follow_up_admin"`

	Listing *models.Listing `json:"listing,omitempty"`
}

// Builder runs the enrichment joins.
type Builder struct {
	plans     PlanReader
	bills     BillReader
	followUps FollowUpReader
	listings  ListingReader
	logger    ectologger.Logger
}

// NewBuilder creates an enrichment builder over the readers.
func NewBuilder(plans PlanReader, bills BillReader, followUps FollowUpReader, listings ListingReader, logger ectologger.Logger) *Builder {
	return &Builder{
		plans:     plans,
		bills:     bills,
		followUps: followUps,
		listings:  listings,
		logger:    logger,
	}
}

// Views enriches the requests. The caller captures today once per request so
// every countdown in one response is computed against the same reference day.
func (b *Builder) Views(ctx context.Context, requests []models.BuyerRequest, today time.Time) ([]View, error) {
	ctx, span := tracing.StartSpan(ctx, "enrich.Builder.Views")
	defer span.End()

	if len(requests) == 0 {
		return []View{}, nil
	}

	phoneKeys := make([]string, 0, len(requests))
	listingIDs := make([]string, 0, len(requests))
	for _, req := range requests {
		phoneKeys = append(phoneKeys, req.PhoneKey)
		if req.ListingID != "" {
			listingIDs = append(listingIDs, req.ListingID)
		}
	}
	phoneKeys = phone.Keys(phoneKeys)
	listingIDs = dedupe(listingIDs)

	// the four reads are independent, fetch them in parallel
	var (
		wg        sync.WaitGroup
		plans     []models.PricingPlan
		bills     map[string]models.Bill
		followUps map[string]models.FollowUp
		listings  []models.Listing
		errs      [4]error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		plans, errs[0] = b.plans.ListByPhoneKeys(ctx, phoneKeys)
	}()
	go func() {
		defer wg.Done()
		bills, errs[1] = b.bills.LatestByListingIDs(ctx, listingIDs)
	}()
	go func() {
		defer wg.Done()
		followUps, errs[2] = b.followUps.LatestByListingIDs(ctx, listingIDs)
	}()
	go func() {
		defer wg.Done()
		listings, errs[3] = b.listings.ListByListingIDs(ctx, listingIDs)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			b.logger.WithContext(ctx).WithError(err).Error("Failed to fetch enrichment data")
			return nil, err
		}
	}

	// build lookup tables once, then probe per request
	planByKey := make(map[string]models.PricingPlan, len(plans))
	for _, plan := range plans {
		for _, key := range plan.PhoneKeys {
			// plans arrive newest-first; keep the newest per key
			if _, ok := planByKey[key]; !ok {
				planByKey[key] = plan
			}
		}
	}
	listingByID := make(map[string]models.Listing, len(listings))
	for _, l := range listings {
		listingByID[l.ListingID] = l
	}

	views := make([]View, 0, len(requests))
	for _, req := range requests {
		v := View{
			BuyerRequest:   req,
			PlanName:       expiry.NA,
			PackageType:    expiry.NA,
			PlanExpiresOn:  expiry.NA,
			PlanCountdown:  expiry.NA,
			BillStatus:     expiry.NA,
			BillValidTo:    expiry.NA,
			FollowUpStatus: expiry.NA,
			FollowUpType:   expiry.NA,
			FollowUpDate:   expiry.NA,
			FollowUpAdmin:  expiry.NA,
		}

		if plan, ok := planByKey[req.PhoneKey]; ok {
			v.PlanName = plan.PlanName
			v.PackageType = plan.PackageType
			created := plan.CreatedAt
			v.PlanExpiry = expiry.Date(&created, plan.DurationDays)
			if v.PlanExpiry != nil {
				v.PlanExpiresOn = v.PlanExpiry.Format(dateLayout)
			}
			v.PlanCountdown = expiry.Countdown(v.PlanExpiry, today)
		}

		if req.ListingID != "" {
			if bill, ok := bills[req.ListingID]; ok {
				amount := bill.Amount
				v.BillAmount = &amount
				v.BillStatus = string(bill.Status)
				if bill.ValidTo != nil {
					v.BillValidTo = bill.ValidTo.Format(dateLayout)
				}
			}
			if fu, ok := followUps[req.ListingID]; ok {
				v.FollowUpStatus = string(fu.Status)
				v.FollowUpType = string(fu.Type)
				v.FollowUpDate = fu.FollowUpDate.Format(dateLayout)
				if fu.AdminName != "" {
					v.FollowUpAdmin = fu.AdminName
				}
			}
			if l, ok := listingByID[req.ListingID]; ok {
				listing := l
				v.Listing = &listing
			}
		}

		views = append(views, v)
	}

	return views, nil
}

// FilterExpiring keeps the views whose plan expiry falls inside the window.
func FilterExpiring(views []View, w expiry.Window, today time.Time) []View {
	out := make([]View, 0, len(views))
	for _, v := range views {
		if w.Contains(v.PlanExpiry, today) {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
