// Package matching finds listings for buyer requests and buyer requests for
// listings. Both directions build a predicate from the anchor record and run
// it against the opposite collection; the match engine itself holds no state.
package matching

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/trellis/pkg/criteria"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

// ListingFinder is the listing-side store the matcher reads.
type ListingFinder interface {
	FindByConditions(ctx context.Context, conditions criteria.Predicate) ([]models.Listing, error)
	CountByConditions(ctx context.Context, conditions criteria.Predicate) (int, error)
}

// RequestFinder is the buyer-request-side store the matcher reads.
type RequestFinder interface {
	FindByConditions(ctx context.Context, conditions criteria.Predicate) ([]models.BuyerRequest, error)
}

// MatchCount is the per-request result of a fan-out count. Err is set when
// that request's count failed; sibling requests are unaffected.
type MatchCount struct {
	ID        string `json:"id"`
	RequestID int64  `json:"request_id"`
	Count     int    `json:"count"`
	Err       error  `json:"-"`
}

// Service runs the two match directions over the finders.
type Service struct {
	listings ListingFinder
	requests RequestFinder
	logger   ectologger.Logger
	workers  int
}

// NewService creates a matcher. workers bounds the fan-out concurrency; a
// non-positive value falls back to 8.
func NewService(listings ListingFinder, requests RequestFinder, logger ectologger.Logger, workers int) *Service {
	if workers <= 0 {
		workers = 8
	}
	return &Service{
		listings: listings,
		requests: requests,
		logger:   logger,
		workers:  workers,
	}
}

// BuyerSource projects the fields the predicate builder reads from a request.
func BuyerSource(req models.BuyerRequest) criteria.BuyerSource {
	return criteria.BuyerSource{
		PropertyType: req.PropertyType,
		PropertyMode: req.PropertyMode,
		City:         req.City,
		State:        req.State,
		District:     req.District,
		Area:         req.Area,
		Facing:       req.Facing,
		PropertyAge:  req.PropertyAge,
		Approval:     req.Approval,
		Loan:         req.Loan,
		Bedrooms:     req.Bedrooms,
		MinPrice:     req.MinPrice,
		MaxPrice:     req.MaxPrice,
	}
}

// ListingSource projects the fields the predicate builder reads from a listing.
func ListingSource(l models.Listing) criteria.ListingSource {
	return criteria.ListingSource{
		PropertyType: l.PropertyType,
		PropertyMode: l.PropertyMode,
		City:         l.City,
		State:        l.State,
		District:     l.District,
		Area:         l.Area,
		Facing:       l.Facing,
		PropertyAge:  l.PropertyAge,
		Approval:     l.Approval,
		Loan:         l.Loan,
		Bedrooms:     l.Bedrooms,
		Price:        l.Price,
	}
}

// MatchListings returns the active listings satisfying a buyer request's
// criteria. Zero matches is an empty result, never an error.
func (s *Service) MatchListings(ctx context.Context, req models.BuyerRequest) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.MatchListings")
	defer span.End()

	return s.listings.FindByConditions(ctx, criteria.ForBuyerRequest(BuyerSource(req)))
}

// MatchRequests returns the live buyer requests a listing satisfies.
func (s *Service) MatchRequests(ctx context.Context, l models.Listing) ([]models.BuyerRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.MatchRequests")
	defer span.End()

	return s.requests.FindByConditions(ctx, criteria.ForListing(ListingSource(l)))
}

// CountListings counts a request's matching listings store-side, without
// materializing the rows.
func (s *Service) CountListings(ctx context.Context, req models.BuyerRequest) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.CountListings")
	defer span.End()

	return s.listings.CountByConditions(ctx, criteria.ForBuyerRequest(BuyerSource(req)))
}

// MatchCountsForRequests counts matches for each request concurrently. The
// result slice preserves input order; a failed count records its error on
// that entry only.
func (s *Service) MatchCountsForRequests(ctx context.Context, reqs []models.BuyerRequest) []MatchCount {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.MatchCountsForRequests")
	defer span.End()

	results := make([]MatchCount, len(reqs))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req models.BuyerRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			count, err := s.CountListings(ctx, req)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"request_id": req.RequestID,
				}).Warn("Match count failed for buyer request")
			}
			results[i] = MatchCount{
				ID:        req.ID,
				RequestID: req.RequestID,
				Count:     count,
				Err:       err,
			}
		}(i, req)
	}

	wg.Wait()
	return results
}
