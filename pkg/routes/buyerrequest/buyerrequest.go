package buyerrequest

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/trellis/internal/repositories/buyerrequest"
	"github.com/Ramsey-B/trellis/internal/repositories/pricingplan"
	"github.com/Ramsey-B/trellis/pkg/enrich"
	"github.com/Ramsey-B/trellis/pkg/events"
	"github.com/Ramsey-B/trellis/pkg/expiry"
	"github.com/Ramsey-B/trellis/pkg/interest"
	"github.com/Ramsey-B/trellis/pkg/matching"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/routes/envelope"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

var validate = validator.New()

// scanCap bounds the unpaged scan endpoints (expiring, match-counts); when
// more requests exist the response meta reports the truncation.
const scanCap = 500

// Register registers buyer request routes
func Register(g *echo.Group) {
	g.POST("", Create)
	g.GET("", List)
	g.GET("/expiring", ListExpiring)
	g.GET("/match-counts", MatchCounts)
	g.GET("/:id", Get)
	g.GET("/:id/matches", Matches)
	g.PUT("/:id/status", UpdateStatus)
	g.POST("/:id/interest", RegisterInterest)
	g.DELETE("/:id", Delete)
	g.PUT("/:id/restore", Restore)
	g.DELETE("/:id/permanent", HardDelete)
}

// keySelector reads the optional ?key= parameter that names which identifier
// the path value refers to. Defaults to the surrogate id.
func keySelector(c echo.Context) (models.RequestKeySelector, error) {
	key := models.RequestKeySelector(c.QueryParam("key"))
	if key == "" {
		key = models.RequestKeyID
	}
	if !key.Valid() {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "key must be one of id, request_id, listing_id")
	}
	return key, nil
}

// Create registers buyer criteria, matches listings and notifies both sides.
// The request row is committed before any notification is attempted, so a
// broker outage can only cost messages, never the request.
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.Create")
	defer span.End()

	var req models.CreateBuyerRequestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := matcher.MatchListings(ctx, *created)
	if err != nil {
		// the request exists even when matching failed; report it with
		// the failure noted rather than erroring the whole create
		resp := envelope.New("buyer request created", map[string]any{
			"request": created,
		}).WithMeta("match_failed", true)
		return c.JSON(http.StatusCreated, resp)
	}

	resp := envelope.New("buyer request created", map[string]any{
		"request":     created,
		"matches":     matches,
		"match_count": len(matches),
	})

	ctx, notifier, err := ectoinject.GetContext[*events.Notifier](ctx)
	if err == nil {
		if failed := notifier.NotifyRequestMatched(ctx, created, matches); failed > 0 {
			resp = resp.WithMeta("notify_failed", failed)
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

// List returns enriched buyer requests, optionally narrowed to one phone.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, totalCount, err := repo.List(ctx, c.QueryParam("phone_number"), page, pageSize)
	if err != nil {
		return err
	}

	views, err := enrichViews(ctx, requests)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("buyer requests", map[string]any{
		"items":       views,
		"total_count": totalCount,
	}))
}

// ListExpiring returns enriched requests whose plan expiry falls inside the
// window, soonest expiry first. ahead_days/overdue_days override the default
// 10/7 window; overdue_days=0 gives the strictly-ahead view.
func ListExpiring(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.ListExpiring")
	defer span.End()

	window := expiry.DefaultWindow
	if v := c.QueryParam("ahead_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "ahead_days must be a non-negative integer")
		}
		window.AheadDays = n
	}
	if v := c.QueryParam("overdue_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return httperror.NewHTTPError(http.StatusBadRequest, "overdue_days must be a non-negative integer")
		}
		window.OverdueDays = n
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, totalCount, err := repo.List(ctx, c.QueryParam("phone_number"), 1, scanCap)
	if err != nil {
		return err
	}

	today := time.Now()
	ctx, builder, err := ectoinject.GetContext[*enrich.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	views, err := builder.Views(ctx, requests, today)
	if err != nil {
		return err
	}

	expiring := enrich.FilterExpiring(views, window, today)
	sort.SliceStable(expiring, func(i, j int) bool {
		return expiring[i].PlanExpiry.Before(*expiring[j].PlanExpiry)
	})

	resp := envelope.New("expiring buyer requests", map[string]any{
		"items": expiring,
		"window": map[string]int{
			"ahead_days":   window.AheadDays,
			"overdue_days": window.OverdueDays,
		},
	})
	if totalCount > len(requests) {
		resp = resp.WithMeta("scanned", len(requests)).WithMeta("total_count", totalCount)
	}
	return c.JSON(http.StatusOK, resp)
}

// MatchCounts fans out a listing count per live buyer request.
func MatchCounts(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.MatchCounts")
	defer span.End()

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	requests, totalCount, err := repo.List(ctx, c.QueryParam("phone_number"), 1, scanCap)
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	counts := matcher.MatchCountsForRequests(ctx, requests)

	failed := 0
	for _, r := range counts {
		if r.Err != nil {
			failed++
		}
	}

	resp := envelope.New("match counts", map[string]any{"items": counts})
	if failed > 0 {
		resp = resp.WithMeta("count_failed", failed)
	}
	if totalCount > len(requests) {
		resp = resp.WithMeta("scanned", len(requests)).WithMeta("total_count", totalCount)
	}
	return c.JSON(http.StatusOK, resp)
}

// Get returns a single enriched buyer request. Soft-deleted requests stay
// reachable by identifier with ?include_deleted=true.
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.Get")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}
	includeDeleted, _ := strconv.ParseBool(c.QueryParam("include_deleted"))

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := repo.Get(ctx, key, c.Param("id"), includeDeleted)
	if err != nil {
		return err
	}

	views, err := enrichViews(ctx, []models.BuyerRequest{*request})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("buyer request", views[0]))
}

// Matches returns the listings matching one buyer request. Zero matches is a
// 200 with an empty list; only a missing request is a 404.
func Matches(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.Matches")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := repo.Get(ctx, key, c.Param("id"), false)
	if err != nil {
		return err
	}

	ctx, matcher, err := ectoinject.GetContext[*matching.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	matches, err := matcher.MatchListings(ctx, *request)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("matched listings", map[string]any{
		"request":     request,
		"matches":     matches,
		"match_count": len(matches),
	}))
}

// UpdateStatus writes a caller-supplied lifecycle status.
func UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.UpdateStatus")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}

	var req models.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if !req.Status.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.UpdateStatus(ctx, key, c.Param("id"), req.Status); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("status updated", map[string]any{
		"status": req.Status,
	}))
}

// RegisterInterest records a listing owner's interest in a buyer request.
// The owner's pricing plan decides the landed status; the array append and
// the status write go down as one update, then the buyer is notified.
func RegisterInterest(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.RegisterInterest")
	defer span.End()

	var req models.RegisterInterestRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	request, err := repo.Get(ctx, models.RequestKeyID, c.Param("id"), false)
	if err != nil {
		return err
	}

	ctx, plans, err := ectoinject.GetContext[*pricingplan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	plan, err := plans.GetByPhone(ctx, req.PhoneNumber)
	if err != nil {
		return err
	}

	outcome := interest.Decide(plan)
	phones, changed := interest.AppendInterested(request.InterestedPhones, req.PhoneNumber)
	if changed || request.Status != outcome.Status {
		if err := repo.RegisterInterest(ctx, request.ID, phones, outcome.Status); err != nil {
			return err
		}
	}

	resp := envelope.New("interest registered", map[string]any{
		"status":    outcome.Status,
		"connected": outcome.Connected,
	})

	ctx, notifier, err := ectoinject.GetContext[*events.Notifier](ctx)
	if err == nil {
		if failed := notifier.NotifyInterestRegistered(ctx, request, req.PhoneNumber, outcome.Connected); failed > 0 {
			resp = resp.WithMeta("notify_failed", failed)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// Delete soft deletes a buyer request.
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.Delete")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SoftDelete(ctx, key, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// Restore brings back a soft-deleted buyer request.
func Restore(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.Restore")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Restore(ctx, key, c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, envelope.New("buyer request restored", nil))
}

// HardDelete permanently removes a buyer request.
func HardDelete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "buyerrequest_handler.HardDelete")
	defer span.End()

	key, err := keySelector(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*buyerrequest.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.HardDelete(ctx, key, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// enrichViews joins the requests with their plan/bill/follow-up context,
// capturing "today" once so the whole response shares a reference day.
func enrichViews(ctx context.Context, requests []models.BuyerRequest) ([]enrich.View, error) {
	ctx, builder, err := ectoinject.GetContext[*enrich.Builder](ctx)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	return builder.Views(ctx, requests, time.Now())
}
