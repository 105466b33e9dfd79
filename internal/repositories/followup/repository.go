package followup

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	appctx "github.com/Ramsey-B/trellis/pkg/context"
	"github.com/Ramsey-B/trellis/pkg/criteria"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const table = "follow_ups"

var columns = []string{
	"id", "listing_id", "phone_number", "phone_key", "status", "type",
	"follow_up_date", "admin_name", "created_at",
}

// Repository handles follow-up persistence. Follow-ups are append-only;
// there is no update or delete path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new follow-up repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends a follow-up event.
func (r *Repository) Create(ctx context.Context, req models.CreateFollowUpRequest) (*models.FollowUp, error) {
	ctx, span := tracing.StartSpan(ctx, "followup.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"listing_id": req.ListingID,
	})

	status := models.FollowUpStatus(req.Status)
	if !status.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid follow-up status %q", req.Status))
	}
	fuType := models.FollowUpType(req.Type)
	if !fuType.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid follow-up type %q", req.Type))
	}

	now := time.Now().UTC()
	date := now
	if req.FollowUpDate != nil {
		date = *req.FollowUpDate
	}

	fu := &models.FollowUp{
		ID:           uuid.New().String(),
		ListingID:    req.ListingID,
		PhoneNumber:  req.PhoneNumber,
		PhoneKey:     phone.Key(req.PhoneNumber),
		Status:       status,
		Type:         fuType,
		FollowUpDate: date,
		AdminName:    appctx.GetAdminID(ctx),
		CreatedAt:    now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		fu.ID, fu.ListingID, fu.PhoneNumber, fu.PhoneKey, fu.Status,
		fu.Type, fu.FollowUpDate, fu.AdminName, fu.CreatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create follow-up")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create follow-up")
	}

	log.WithFields(map[string]any{"id": fu.ID}).Info("Created follow-up")
	return fu, nil
}

// ListByFilter returns follow-ups narrowed by any of listing id, phone and
// status, newest follow-up date first.
func (r *Repository) ListByFilter(ctx context.Context, listingID, phoneNumber, status string) ([]models.FollowUp, error) {
	ctx, span := tracing.StartSpan(ctx, "followup.Repository.ListByFilter")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)

	var where []string
	if listingID != "" {
		where = append(where, sb.Equal("listing_id", listingID))
	}
	if key := phone.Key(phoneNumber); key != "" {
		// rows written before key backfill carry only the raw number, so
		// the key match falls back to a trailing-digits comparison
		suffix := criteria.SQLClauses(sb, criteria.Predicate{}.Suffix("phone_number", key))
		where = append(where, sb.Or(append(suffix, sb.Equal("phone_key", key))...))
	}
	if status != "" {
		if !models.FollowUpStatus(status).Valid() {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid follow-up status %q", status))
		}
		where = append(where, sb.Equal("status", status))
	}
	if len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("follow_up_date DESC", "created_at DESC")

	query, args := sb.Build()
	var followUps []models.FollowUp
	if err := r.db.SelectContext(ctx, &followUps, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list follow-ups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list follow-ups")
	}

	return followUps, nil
}

// LatestByListingIDs returns the most recent follow-up per listing, ties on
// the follow-up date broken by creation time.
func (r *Repository) LatestByListingIDs(ctx context.Context, listingIDs []string) (map[string]models.FollowUp, error) {
	ctx, span := tracing.StartSpan(ctx, "followup.Repository.LatestByListingIDs")
	defer span.End()

	if len(listingIDs) == 0 {
		return map[string]models.FollowUp{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.In("listing_id", sqlbuilder.Flatten(listingIDs)...))
	sb.OrderBy("follow_up_date DESC", "created_at DESC")

	query, args := sb.Build()
	var followUps []models.FollowUp
	if err := r.db.SelectContext(ctx, &followUps, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to fetch follow-ups")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fetch follow-ups")
	}

	latest := make(map[string]models.FollowUp, len(listingIDs))
	for _, fu := range followUps {
		if _, ok := latest[fu.ListingID]; !ok {
			latest[fu.ListingID] = fu
		}
	}
	return latest, nil
}
