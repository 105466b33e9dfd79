package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/trellis/pkg/criteria"
	"github.com/Ramsey-B/trellis/pkg/models"
)

type fakeListingFinder struct {
	lastPredicate criteria.Predicate
	listings      []models.Listing
	counts        map[string]int // keyed by city, distinguishes fan-out inputs
	failCity      string
}

func (f *fakeListingFinder) FindByConditions(_ context.Context, p criteria.Predicate) ([]models.Listing, error) {
	f.lastPredicate = p
	return f.listings, nil
}

func (f *fakeListingFinder) CountByConditions(_ context.Context, p criteria.Predicate) (int, error) {
	city := ""
	for _, c := range p {
		if c.Field == "city" {
			city, _ = c.Value.(string)
		}
	}
	if city != "" && city == f.failCity {
		return 0, errors.New("store unavailable")
	}
	return f.counts[city], nil
}

type fakeRequestFinder struct {
	lastPredicate criteria.Predicate
	requests      []models.BuyerRequest
}

func (f *fakeRequestFinder) FindByConditions(_ context.Context, p criteria.Predicate) ([]models.BuyerRequest, error) {
	f.lastPredicate = p
	return f.requests, nil
}

func newService(lf *fakeListingFinder, rf *fakeRequestFinder) *Service {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewService(lf, rf, logger, 4)
}

func TestMatchListings(t *testing.T) {
	lf := &fakeListingFinder{listings: []models.Listing{{ListingID: "LST-1"}}}
	svc := newService(lf, &fakeRequestFinder{})

	min := int64(2000000)
	max := int64(4000000)
	got, err := svc.MatchListings(context.Background(), models.BuyerRequest{
		City:     "Chennai",
		MinPrice: &min,
		MaxPrice: &max,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	fields := map[string]criteria.Condition{}
	for _, c := range lf.lastPredicate {
		fields[c.Field+c.Operator] = c
	}
	assert.Equal(t, "Chennai", fields["city"].Value)
	assert.Equal(t, int64(2000000), fields["price"+criteria.OpGte].Value)
	assert.Equal(t, int64(4000000), fields["price"+criteria.OpLte].Value)
}

func TestMatchRequests(t *testing.T) {
	rf := &fakeRequestFinder{requests: []models.BuyerRequest{{RequestID: 101}}}
	svc := newService(&fakeListingFinder{}, rf)

	got, err := svc.MatchRequests(context.Background(), models.Listing{
		City:  "Chennai",
		Price: 3000000,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	fields := map[string]criteria.Condition{}
	for _, c := range rf.lastPredicate {
		fields[c.Field+c.Operator] = c
	}
	assert.Equal(t, int64(3000000), fields["min_price"+criteria.OpLte].Value)
	assert.Equal(t, int64(3000000), fields["max_price"+criteria.OpGte].Value)
}

func TestMatchCountsForRequests(t *testing.T) {
	lf := &fakeListingFinder{
		counts:   map[string]int{"Chennai": 3, "Madurai": 1, "Salem": 7},
		failCity: "Madurai",
	}
	svc := newService(lf, &fakeRequestFinder{})

	reqs := []models.BuyerRequest{
		{ID: "a", RequestID: 100, City: "Chennai"},
		{ID: "b", RequestID: 101, City: "Madurai"},
		{ID: "c", RequestID: 102, City: "Salem"},
	}

	results := svc.MatchCountsForRequests(context.Background(), reqs)
	require.Len(t, results, 3)

	// input order is preserved regardless of completion order
	assert.Equal(t, int64(100), results[0].RequestID)
	assert.Equal(t, int64(101), results[1].RequestID)
	assert.Equal(t, int64(102), results[2].RequestID)

	assert.Equal(t, 3, results[0].Count)
	assert.NoError(t, results[0].Err)

	// the failing request records its error without affecting siblings
	assert.Error(t, results[1].Err)
	assert.Equal(t, 7, results[2].Count)
	assert.NoError(t, results[2].Err)
}

func TestMatchCountsForRequestsEmpty(t *testing.T) {
	svc := newService(&fakeListingFinder{}, &fakeRequestFinder{})
	assert.Empty(t, svc.MatchCountsForRequests(context.Background(), nil))
}
