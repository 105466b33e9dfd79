package followup

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/trellis/internal/repositories/followup"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/routes/envelope"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

var validate = validator.New()

// Register registers follow-up routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
}

// Create logs a follow-up event against a listing/phone.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "followup_handler.Create")
	defer span.End()

	var req models.CreateFollowUpRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*followup.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, envelope.New("follow-up created", created))
}

// List returns follow-ups filtered by listing id, phone and/or status.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "followup_handler.List")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*followup.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	followUps, err := repo.ListByFilter(ctx, c.QueryParam("listing_id"), c.QueryParam("phone"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	if followUps == nil {
		followUps = []models.FollowUp{}
	}

	return c.JSON(http.StatusOK, envelope.New("follow-ups", map[string]any{"items": followUps}))
}
