package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/trellis/pkg/expiry"
	"github.com/Ramsey-B/trellis/pkg/models"
)

type fakePlanReader struct{ plans []models.PricingPlan }

func (f *fakePlanReader) ListByPhoneKeys(_ context.Context, _ []string) ([]models.PricingPlan, error) {
	return f.plans, nil
}

type fakeBillReader struct{ bills map[string]models.Bill }

func (f *fakeBillReader) LatestByListingIDs(_ context.Context, _ []string) (map[string]models.Bill, error) {
	return f.bills, nil
}

type fakeFollowUpReader struct{ followUps map[string]models.FollowUp }

func (f *fakeFollowUpReader) LatestByListingIDs(_ context.Context, _ []string) (map[string]models.FollowUp, error) {
	return f.followUps, nil
}

type fakeListingReader struct{ listings []models.Listing }

func (f *fakeListingReader) ListByListingIDs(_ context.Context, _ []string) ([]models.Listing, error) {
	return f.listings, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func newBuilder(plans []models.PricingPlan, bills map[string]models.Bill, followUps map[string]models.FollowUp, listings []models.Listing) *Builder {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewBuilder(
		&fakePlanReader{plans: plans},
		&fakeBillReader{bills: bills},
		&fakeFollowUpReader{followUps: followUps},
		&fakeListingReader{listings: listings},
		logger,
	)
}

func TestViewsJoinsAllSides(t *testing.T) {
	today := day(2024, time.March, 10)
	validTo := day(2024, time.June, 1)

	requests := []models.BuyerRequest{
		{ID: "r1", RequestID: 100, PhoneKey: "9876543210", ListingID: "LST-1"},
	}
	plans := []models.PricingPlan{
		{
			PhoneKeys:    pq.StringArray{"9876543210"},
			PlanName:     "Gold",
			PackageType:  "premium",
			DurationDays: 5,
			CreatedAt:    day(2024, time.March, 8),
		},
	}
	bills := map[string]models.Bill{
		"LST-1": {ListingID: "LST-1", Amount: 4999, Status: models.BillStatusPaid, ValidTo: &validTo},
	}
	followUps := map[string]models.FollowUp{
		"LST-1": {
			ListingID:    "LST-1",
			Status:       models.FollowUpStatusReadyToPay,
			Type:         models.FollowUpTypePayment,
			FollowUpDate: day(2024, time.March, 9),
			AdminName:    "priya",
		},
	}
	listings := []models.Listing{{ListingID: "LST-1", City: "Chennai"}}

	views, err := newBuilder(plans, bills, followUps, listings).Views(context.Background(), requests, today)
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, "Gold", v.PlanName)
	assert.Equal(t, "premium", v.PackageType)
	assert.Equal(t, "2024-03-13", v.PlanExpiresOn)
	assert.Equal(t, "expires in 3 days", v.PlanCountdown)

	require.NotNil(t, v.BillAmount)
	assert.Equal(t, int64(4999), *v.BillAmount)
	assert.Equal(t, "paid", v.BillStatus)
	assert.Equal(t, "2024-06-01", v.BillValidTo)

	assert.Equal(t, "Ready To Pay", v.FollowUpStatus)
	assert.Equal(t, "Payment Followup", v.FollowUpType)
	assert.Equal(t, "2024-03-09", v.FollowUpDate)
	assert.Equal(t, "priya", v.FollowUpAdmin)

	require.NotNil(t, v.Listing)
	assert.Equal(t, "Chennai", v.Listing.City)
}

func TestViewsMissingJoinsFallBackToNA(t *testing.T) {
	today := day(2024, time.March, 10)
	requests := []models.BuyerRequest{
		{ID: "r1", RequestID: 100, PhoneKey: "1111111111"},
	}

	views, err := newBuilder(nil, nil, nil, nil).Views(context.Background(), requests, today)
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, expiry.NA, v.PlanName)
	assert.Equal(t, expiry.NA, v.PlanExpiresOn)
	assert.Equal(t, expiry.NA, v.PlanCountdown)
	assert.Nil(t, v.BillAmount)
	assert.Equal(t, expiry.NA, v.BillStatus)
	assert.Equal(t, expiry.NA, v.FollowUpStatus)
	assert.Nil(t, v.Listing)
}

func TestViewsNewestPlanWinsPerKey(t *testing.T) {
	today := day(2024, time.March, 10)
	requests := []models.BuyerRequest{{ID: "r1", PhoneKey: "9876543210"}}

	// reader returns newest-first, mirroring the repository's ordering
	plans := []models.PricingPlan{
		{PhoneKeys: pq.StringArray{"9876543210"}, PlanName: "Gold", DurationDays: 30, CreatedAt: day(2024, time.March, 1)},
		{PhoneKeys: pq.StringArray{"9876543210"}, PlanName: "Free", DurationDays: 30, CreatedAt: day(2024, time.January, 1)},
	}

	views, err := newBuilder(plans, nil, nil, nil).Views(context.Background(), requests, today)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Gold", views[0].PlanName)
}

func TestViewsEmptyInput(t *testing.T) {
	views, err := newBuilder(nil, nil, nil, nil).Views(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestFilterExpiring(t *testing.T) {
	today := day(2024, time.March, 10)
	w := expiry.DefaultWindow

	inWindow := day(2024, time.March, 15)
	outWindow := day(2024, time.April, 20)

	views := []View{
		{PlanExpiry: &inWindow},
		{PlanExpiry: &outWindow},
		{PlanExpiry: nil},
	}

	got := FilterExpiring(views, w, today)
	require.Len(t, got, 1)
	assert.Equal(t, &inWindow, got[0].PlanExpiry)
}
