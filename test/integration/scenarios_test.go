package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billrepo "github.com/Ramsey-B/trellis/internal/repositories/bill"
	buyerrequestrepo "github.com/Ramsey-B/trellis/internal/repositories/buyerrequest"
	followuprepo "github.com/Ramsey-B/trellis/internal/repositories/followup"
	listingrepo "github.com/Ramsey-B/trellis/internal/repositories/listing"
	pricingplanrepo "github.com/Ramsey-B/trellis/internal/repositories/pricingplan"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/enrich"
	"github.com/Ramsey-B/trellis/pkg/matching"
	"github.com/Ramsey-B/trellis/pkg/models"
)

// testContext holds shared test context
type testContext struct {
	ctx      context.Context
	db       database.DB
	requests *buyerrequestrepo.Repository
	listings *listingrepo.Repository
	plans    *pricingplanrepo.Repository
	bills    *billrepo.Repository
	follows  *followuprepo.Repository
	matcher  *matching.Service
	builder  *enrich.Builder
}

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// setupTestContext connects to the test database named by DB_* env vars.
// Tests are skipped entirely when DB_HOST is unset.
func setupTestContext(t *testing.T) *testContext {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("Database not configured")
	}

	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER_NAME", "user")
	dbPass := envOr("DB_PASSWORD", "password")
	dbName := envOr("DB_NAME", "trellis_test")

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPass, dbName)
	sqlxDB, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqlxDB.Close() })

	logger := getTestLogger()
	db := database.NewDatabaseInstance(sqlxDB, logger)

	tc := &testContext{
		ctx:      context.Background(),
		db:       db,
		requests: buyerrequestrepo.NewRepository(db, logger),
		listings: listingrepo.NewRepository(db, logger),
		plans:    pricingplanrepo.NewRepository(db, logger),
		bills:    billrepo.NewRepository(db, logger),
		follows:  followuprepo.NewRepository(db, logger),
	}
	tc.matcher = matching.NewService(tc.listings, tc.requests, logger, 4)
	tc.builder = enrich.NewBuilder(tc.plans, tc.bills, tc.follows, tc.listings, logger)
	return tc
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func uniquePhone(t *testing.T) string {
	// ten digits derived from the clock keep parallel runs apart
	return fmt.Sprintf("9%09d", time.Now().UnixNano()%1000000000)
}

func TestCreateAndMatchScenario(t *testing.T) {
	tc := setupTestContext(t)

	area := fmt.Sprintf("Anna Nagar %d", time.Now().UnixNano())
	ownerPhone := uniquePhone(t)
	buyerPhone := uniquePhone(t)

	// a listing inside the buyer's budget
	inBudget, err := tc.listings.Create(tc.ctx, models.CreateListingRequest{
		ListingID:    fmt.Sprintf("LST-%d", time.Now().UnixNano()),
		OwnerPhone:   "+91 " + ownerPhone,
		PropertyType: "Flat",
		PropertyMode: "sale",
		City:         "Chennai",
		Area:         area,
		Price:        3000000,
	})
	require.NoError(t, err)

	// and one priced out of range
	_, err = tc.listings.Create(tc.ctx, models.CreateListingRequest{
		ListingID:    fmt.Sprintf("LST-%d", time.Now().UnixNano()+1),
		OwnerPhone:   uniquePhone(t),
		PropertyType: "Flat",
		PropertyMode: "sale",
		City:         "Chennai",
		Area:         area,
		Price:        9000000,
	})
	require.NoError(t, err)

	created, err := tc.requests.Create(tc.ctx, models.CreateBuyerRequestRequest{
		PhoneNumber:  buyerPhone,
		PropertyType: "Flat",
		PropertyMode: "sale",
		City:         "Chennai",
		Area:         area,
		MinPrice:     "2000000",
		MaxPrice:     "4000000",
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, created.RequestID, int64(100), "request numbers start at 100")
	assert.Equal(t, models.RequestStatusPending, created.Status)

	matches, err := tc.matcher.MatchListings(tc.ctx, *created)
	require.NoError(t, err)
	require.Len(t, matches, 1, "only the in-budget listing should match")
	assert.Equal(t, inBudget.ListingID, matches[0].ListingID)

	// the reverse direction finds the request from the listing
	reverse, err := tc.matcher.MatchRequests(tc.ctx, *inBudget)
	require.NoError(t, err)
	found := false
	for _, r := range reverse {
		if r.ID == created.ID {
			found = true
		}
	}
	assert.True(t, found, "listing should match back to the buyer request")
}

func TestSoftDeleteRoundTrip(t *testing.T) {
	tc := setupTestContext(t)

	created, err := tc.requests.Create(tc.ctx, models.CreateBuyerRequestRequest{
		PhoneNumber:  uniquePhone(t),
		PropertyType: "Plot",
		PropertyMode: "sale",
		City:         "Pondicherry",
	})
	require.NoError(t, err)

	require.NoError(t, tc.requests.SoftDelete(tc.ctx, models.RequestKeyID, created.ID))

	// deleted rows are invisible to normal reads
	_, err = tc.requests.Get(tc.ctx, models.RequestKeyID, created.ID, false)
	require.Error(t, err)

	// but stay reachable by identifier when deleted rows are requested
	deleted, err := tc.requests.Get(tc.ctx, models.RequestKeyID, created.ID, true)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.NotNil(t, deleted.DeletedAt)

	// and the restore path can still see them
	require.NoError(t, tc.requests.Restore(tc.ctx, models.RequestKeyID, created.ID))

	got, err := tc.requests.Get(tc.ctx, models.RequestKeyID, created.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)

	// a second delete then a permanent removal
	require.NoError(t, tc.requests.SoftDelete(tc.ctx, models.RequestKeyID, created.ID))
	require.NoError(t, tc.requests.HardDelete(tc.ctx, models.RequestKeyID, created.ID))

	err = tc.requests.HardDelete(tc.ctx, models.RequestKeyID, created.ID)
	require.Error(t, err, "hard deleting twice should report not found")
}

func TestInterestUpdatesStatusAndArray(t *testing.T) {
	tc := setupTestContext(t)

	created, err := tc.requests.Create(tc.ctx, models.CreateBuyerRequestRequest{
		PhoneNumber:  uniquePhone(t),
		PropertyType: "Flat",
		PropertyMode: "rent",
		City:         "Chennai",
	})
	require.NoError(t, err)

	ownerKey := uniquePhone(t)
	err = tc.requests.RegisterInterest(tc.ctx, created.ID, []string{ownerKey}, models.RequestStatusInterestTried)
	require.NoError(t, err)

	got, err := tc.requests.Get(tc.ctx, models.RequestKeyID, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInterestTried, got.Status)
	require.Len(t, got.InterestedPhones, 1)
	assert.Equal(t, ownerKey, got.InterestedPhones[0])
}

func TestEnrichmentAgainstStore(t *testing.T) {
	tc := setupTestContext(t)

	buyerPhone := uniquePhone(t)
	_, err := tc.plans.Create(tc.ctx, []string{"+91 " + buyerPhone}, "Gold", "premium", 30)
	require.NoError(t, err)

	created, err := tc.requests.Create(tc.ctx, models.CreateBuyerRequestRequest{
		PhoneNumber:  buyerPhone,
		PropertyType: "Flat",
		PropertyMode: "sale",
		City:         "Chennai",
	})
	require.NoError(t, err)

	views, err := tc.builder.Views(tc.ctx, []models.BuyerRequest{*created}, time.Now())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Gold", views[0].PlanName)
	assert.NotEqual(t, "N/A", views[0].PlanCountdown)
}

func TestBillFlowFlipsListing(t *testing.T) {
	tc := setupTestContext(t)

	listingID := fmt.Sprintf("LST-%d", time.Now().UnixNano())
	_, err := tc.listings.Create(tc.ctx, models.CreateListingRequest{
		ListingID:    listingID,
		OwnerPhone:   uniquePhone(t),
		PropertyType: "Flat",
		PropertyMode: "sale",
		City:         "Chennai",
		Price:        2500000,
	})
	require.NoError(t, err)

	_, err = tc.bills.Create(tc.ctx, models.CreateBillRequest{
		ListingID:   listingID,
		PhoneNumber: uniquePhone(t),
		Amount:      4999,
		ValidDays:   365,
	})
	require.NoError(t, err)

	require.NoError(t, tc.listings.UpdateStatus(tc.ctx, listingID, models.ListingStatusBilled))

	got, err := tc.listings.Get(tc.ctx, listingID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusBilled, got.Status)

	bills, err := tc.bills.ListByListingID(tc.ctx, listingID)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, int64(4999), bills[0].Amount)
}
