package bill

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/trellis/internal/repositories/bill"
	"github.com/Ramsey-B/trellis/internal/repositories/listing"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/routes/envelope"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

var validate = validator.New()

// Register registers billing routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
}

// Create raises a bill, then flips the listing to billed. The listing flip
// is the status-defining write and goes last: if it fails the bill survives
// and the partial failure is surfaced in the meta.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.Create")
	defer span.End()

	var req models.CreateBillRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, listings, err := ectoinject.GetContext[*listing.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// the listing must exist before any write happens
	if _, err := listings.Get(ctx, req.ListingID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	resp := envelope.New("bill created", created)

	if err := listings.UpdateStatus(ctx, req.ListingID, models.ListingStatusBilled); err != nil {
		ctx, logger, lerr := ectoinject.GetContext[ectologger.Logger](ctx)
		if lerr == nil {
			logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"listing_id": req.ListingID,
				"bill_id":    created.ID,
			}).Warn("Bill created but listing status flip failed")
		}
		resp = resp.WithMeta("listing_update_failed", true)
	}

	return c.JSON(http.StatusCreated, resp)
}

// List returns the bills for a listing, newest first.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "bill_handler.List")
	defer span.End()

	listingID := c.QueryParam("listing_id")
	if listingID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "listing_id query parameter is required")
	}

	ctx, repo, err := ectoinject.GetContext[*bill.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	bills, err := repo.ListByListingID(ctx, listingID)
	if err != nil {
		return err
	}
	if bills == nil {
		bills = []models.Bill{}
	}

	return c.JSON(http.StatusOK, envelope.New("bills", map[string]any{"items": bills}))
}
