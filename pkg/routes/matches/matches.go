package matches

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/trellis/internal/repositories/buyerrequest"
	"github.com/Ramsey-B/trellis/pkg/matching"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/routes/envelope"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

// Register registers match lookup routes
func Register(g *echo.Group) {
	g.GET("/by-phone/:phone", ByPhone)
}

// RequestMatches groups one buyer request with its matched listings.
type RequestMatches struct {
	Request    models.BuyerRequest `json:"request"`
	Matches    []models.Listing    `json:"matches"`
	MatchCount int                 `json:"match_count"`
	Failed     bool                `json:"failed,omitempty"`
}

// ByPhone returns every live request of a subscriber, each with its matched
// listings. Grouping is per request; one request's match failure does not
// abort the others.
func ByPhone(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "matches_handler.ByPhone")
	defer span.End()

	phoneParam := c.Param("phone")
	if phone.Key(phoneParam) == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "phone must contain digits")
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, totalCount, err := repo.List(ctx, phoneParam, 1, 500)
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	groups := make([]RequestMatches, 0, len(requests))
	failed := 0
	for _, req := range requests {
		listings, err := matcher.MatchListings(ctx, req)
		if err != nil {
			failed++
			groups = append(groups, RequestMatches{Request: req, Matches: []models.Listing{}, Failed: true})
			continue
		}
		if listings == nil {
			listings = []models.Listing{}
		}
		groups = append(groups, RequestMatches{Request: req, Matches: listings, MatchCount: len(listings)})
	}

	resp := envelope.New("matches by phone", map[string]any{"items": groups})
	if failed > 0 {
		resp = resp.WithMeta("match_failed", failed)
	}
	if totalCount > len(requests) {
		resp = resp.WithMeta("scanned", len(requests)).WithMeta("total_count", totalCount)
	}
	return c.JSON(http.StatusOK, resp)
}
