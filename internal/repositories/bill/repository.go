package bill

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	appctx "github.com/Ramsey-B/trellis/pkg/context"
	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const table = "bills"

var columns = []string{
	"id", "listing_id", "phone_number", "phone_key", "amount", "valid_from",
	"valid_to", "status", "created_by", "created_at",
}

// Repository handles bill persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new bill repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a bill row. The listing status flip happens after this
// returns, so a failed insert leaves the listing untouched.
func (r *Repository) Create(ctx context.Context, req models.CreateBillRequest) (*models.Bill, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":     "Create",
		"listing_id": req.ListingID,
	})

	status := models.BillStatus(req.Status)
	if status == "" {
		status = models.BillStatusPending
	}

	now := time.Now().UTC()
	b := &models.Bill{
		ID:          uuid.New().String(),
		ListingID:   req.ListingID,
		PhoneNumber: req.PhoneNumber,
		PhoneKey:    phone.Key(req.PhoneNumber),
		Amount:      req.Amount,
		Status:      status,
		CreatedBy:   appctx.GetAdminID(ctx),
		CreatedAt:   now,
	}

	if req.ValidDays > 0 {
		from := now
		to := now.AddDate(0, 0, req.ValidDays)
		b.ValidFrom = &from
		b.ValidTo = &to
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		b.ID, b.ListingID, b.PhoneNumber, b.PhoneKey, b.Amount,
		b.ValidFrom, b.ValidTo, b.Status, b.CreatedBy, b.CreatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create bill")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create bill")
	}

	log.WithFields(map[string]any{"id": b.ID}).Info("Created bill")
	return b, nil
}

// ListByListingID returns all bills for a listing, newest first.
func (r *Repository) ListByListingID(ctx context.Context, listingID string) ([]models.Bill, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.ListByListingID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("listing_id", listingID))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var bills []models.Bill
	if err := r.db.SelectContext(ctx, &bills, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list bills")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list bills")
	}

	return bills, nil
}

// LatestByListingIDs returns the newest bill per listing for the given ids,
// for the enrichment join.
func (r *Repository) LatestByListingIDs(ctx context.Context, listingIDs []string) (map[string]models.Bill, error) {
	ctx, span := tracing.StartSpan(ctx, "bill.Repository.LatestByListingIDs")
	defer span.End()

	if len(listingIDs) == 0 {
		return map[string]models.Bill{}, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.In("listing_id", sqlbuilder.Flatten(listingIDs)...))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var bills []models.Bill
	if err := r.db.SelectContext(ctx, &bills, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to fetch bills")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to fetch bills")
	}

	// rows come newest-first, so the first bill seen per listing wins
	latest := make(map[string]models.Bill, len(listingIDs))
	for _, b := range bills {
		if _, ok := latest[b.ListingID]; !ok {
			latest[b.ListingID] = b
		}
	}
	return latest, nil
}
