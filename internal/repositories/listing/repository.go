package listing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/trellis/pkg/criteria"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const table = "listings"

var columns = []string{
	"id", "listing_id", "owner_phone", "phone_key", "property_type",
	"property_mode", "city", "state", "district", "area", "price", "bedrooms",
	"facing", "property_age", "approval", "loan", "status", "media_urls",
	"created_at", "updated_at",
}

// Repository handles listing persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new listing repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create seeds a listing row. Listings are otherwise owned by the listing
// subsystem; this path exists for admin and import use.
func (r *Repository) Create(ctx context.Context, req models.CreateListingRequest) (*models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"listing_id": req.ListingID,
		"city":       req.City,
	})

	price, ok := criteria.CoerceAmount(req.Price)
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "price must be a number")
	}

	status := models.ListingStatus(req.Status)
	if status == "" {
		status = models.ListingStatusActive
	}

	now := time.Now().UTC()
	listing := &models.Listing{
		ID:           uuid.New().String(),
		ListingID:    req.ListingID,
		OwnerPhone:   req.OwnerPhone,
		PhoneKey:     phone.Key(req.OwnerPhone),
		PropertyType: req.PropertyType,
		PropertyMode: req.PropertyMode,
		City:         req.City,
		State:        req.State,
		District:     req.District,
		Area:         req.Area,
		Price:        price,
		Bedrooms:     req.Bedrooms,
		Facing:       req.Facing,
		PropertyAge:  req.PropertyAge,
		Approval:     req.Approval,
		Loan:         req.Loan,
		Status:       status,
		MediaURLs:    pq.StringArray(req.MediaURLs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		listing.ID, listing.ListingID, listing.OwnerPhone, listing.PhoneKey,
		listing.PropertyType, listing.PropertyMode, listing.City, listing.State,
		listing.District, listing.Area, listing.Price, listing.Bedrooms,
		listing.Facing, listing.PropertyAge, listing.Approval, listing.Loan,
		listing.Status, listing.MediaURLs, listing.CreatedAt, listing.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create listing")
	}

	log.WithFields(map[string]any{"id": listing.ID}).Info("Created listing")
	return listing, nil
}

// Get retrieves a listing by its business listing id.
func (r *Repository) Get(ctx context.Context, listingID string) (*models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("listing_id", listingID))

	query, args := sb.Build()
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("listing %s not found", listingID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get listing")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get listing")
	}

	return &listing, nil
}

// FindByConditions retrieves active listings matching the predicate. Zero
// matches is an empty slice, not an error.
func (r *Repository) FindByConditions(ctx context.Context, conditions criteria.Predicate) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.FindByConditions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := append([]string{sb.Equal("status", models.ListingStatusActive)}, criteria.SQLClauses(sb, conditions)...)
	sb.Where(where...)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find listings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find listings")
	}

	return listings, nil
}

// CountByConditions counts active listings matching the predicate.
func (r *Repository) CountByConditions(ctx context.Context, conditions criteria.Predicate) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.CountByConditions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	where := append([]string{sb.Equal("status", models.ListingStatusActive)}, criteria.SQLClauses(sb, conditions)...)
	sb.Where(where...)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count listings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count listings")
	}

	return count, nil
}

// ListByListingIDs fetches listings for an id set, for enrichment joins.
func (r *Repository) ListByListingIDs(ctx context.Context, listingIDs []string) ([]models.Listing, error) {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.ListByListingIDs")
	defer span.End()

	if len(listingIDs) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(criteria.SQLClauses(sb, criteria.Predicate{}.In("listing_id", listingIDs))...)

	query, args := sb.Build()
	var listings []models.Listing
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list listings by ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list listings")
	}

	return listings, nil
}

// UpdateStatus flips the publication status of a listing. Used by the billing
// flow after the bill row is committed.
func (r *Repository) UpdateStatus(ctx context.Context, listingID string, status models.ListingStatus) error {
	ctx, span := tracing.StartSpan(ctx, "listing.Repository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("listing_id", listingID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update listing status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update listing status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("listing %s not found", listingID))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"listing_id": listingID, "status": status}).Info("Updated listing status")
	return nil
}
