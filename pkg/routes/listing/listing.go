package listing

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/trellis/internal/repositories/listing"
	"github.com/Ramsey-B/trellis/pkg/matching"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/routes/envelope"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

var validate = validator.New()

// Register registers listing routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("/:id", Get)
	g.GET("/:id/matched-requests", MatchedRequests)
}

// Create seeds a listing (admin/import path).
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "listing_handler.Create")
	defer span.End()

	var req models.CreateListingRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*listing.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, envelope.New("listing created", created))
}

// Get returns one listing by its business id.
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "listing_handler.Get")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*listing.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	l, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("listing", l))
}

// MatchedRequests returns the live buyer requests a listing satisfies — the
// owner-side direction of the match. A missing listing is a 404; a listing
// with no takers is a 200 with an empty list.
func MatchedRequests(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "listing_handler.MatchedRequests")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*listing.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	l, err := repo.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, err := matcher.MatchRequests(ctx, *l)
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []models.BuyerRequest{}
	}

	return c.JSON(http.StatusOK, envelope.New("matched buyer requests", map[string]any{
		"listing":     l,
		"matches":     requests,
		"match_count": len(requests),
	}))
}
