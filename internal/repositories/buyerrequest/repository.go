package buyerrequest

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

const table = "buyer_requests"

var columns = []string{
	"id", "request_id", "phone_number", "phone_key", "property_type",
	"property_mode", "city", "state", "district", "area", "min_price",
	"max_price", "bedrooms", "facing", "property_age", "approval", "loan",
	"listing_id", "status", "interested_phones", "is_deleted", "deleted_at",
	"created_at", "updated_at",
}

// Repository handles buyer request persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new buyer request repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new buyer request, assigning the next human-facing
// request number from the database sequence.
func (r *Repository) Create(ctx context.Context, req models.CreateBuyerRequestRequest) (*models.BuyerRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":        "Create",
		"city":          req.City,
		"property_type": req.PropertyType,
	})

	// the number allocation and the insert go down as one transaction
	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Failed to start transaction")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create buyer request")
	}
	defer tx.Rollback(ctx)

	var requestID int64
	if err := tx.GetContext(ctx, &requestID, "SELECT nextval('buyer_request_seq')"); err != nil {
		log.WithError(err).Error("Failed to allocate request number")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create buyer request")
	}

	now := time.Now().UTC()
	request := &models.BuyerRequest{
		ID:               uuid.New().String(),
		RequestID:        requestID,
		PhoneNumber:      req.PhoneNumber,
		PhoneKey:         phone.Key(req.PhoneNumber),
		PropertyType:     req.PropertyType,
		PropertyMode:     req.PropertyMode,
		City:             req.City,
		State:            req.State,
		District:         req.District,
		Area:             req.Area,
		Bedrooms:         req.Bedrooms,
		Facing:           req.Facing,
		PropertyAge:      req.PropertyAge,
		Approval:         req.Approval,
		Loan:             req.Loan,
		ListingID:        req.ListingID,
		Status:           models.RequestStatusPending,
		InterestedPhones: pq.StringArray{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if v, ok := criteria.CoerceAmount(req.MinPrice); ok {
		request.MinPrice = &v
	}
	if v, ok := criteria.CoerceAmount(req.MaxPrice); ok {
		request.MaxPrice = &v
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		request.ID, request.RequestID, request.PhoneNumber, request.PhoneKey,
		request.PropertyType, request.PropertyMode, request.City, request.State,
		request.District, request.Area, request.MinPrice, request.MaxPrice,
		request.Bedrooms, request.Facing, request.PropertyAge, request.Approval,
		request.Loan, request.ListingID, request.Status, request.InterestedPhones,
		request.IsDeleted, request.DeletedAt, request.CreatedAt, request.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create buyer request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create buyer request")
	}

	if err := tx.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit buyer request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create buyer request")
	}

	log.WithFields(map[string]any{"id": request.ID, "request_id": requestID}).Info("Created buyer request")
	return request, nil
}

// Get retrieves a buyer request by the given key selector. Soft-deleted rows
// are excluded unless includeDeleted is set (restore needs to see them).
func (r *Repository) Get(ctx context.Context, key models.RequestKeySelector, value string, includeDeleted bool) (*models.BuyerRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.Get")
	defer span.End()

	if !key.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid key selector %q", key))
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := []string{sb.Equal(string(key), value)}
	if !includeDeleted {
		where = append(where, sb.Equal("is_deleted", false))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var request models.BuyerRequest
	if err := r.db.GetContext(ctx, &request, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("buyer request %s not found", value))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get buyer request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get buyer request")
	}

	return &request, nil
}

// List retrieves buyer requests, newest first, excluding soft-deleted rows.
// A non-empty phoneNumber narrows the list to that subscriber's requests.
func (r *Repository) List(ctx context.Context, phoneNumber string, page, pageSize int) ([]models.BuyerRequest, int, error) {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 500 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(table)
	countWhere := []string{countSb.Equal("is_deleted", false)}
	if key := phone.Key(phoneNumber); key != "" {
		countWhere = append(countWhere, countSb.Equal("phone_key", key))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count buyer requests")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count buyer requests")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := []string{sb.Equal("is_deleted", false)}
	if key := phone.Key(phoneNumber); key != "" {
		where = append(where, sb.Equal("phone_key", key))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var requests []models.BuyerRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list buyer requests")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list buyer requests")
	}

	return requests, totalCount, nil
}

// FindByConditions retrieves non-deleted buyer requests matching the
// predicate, newest first. Zero matches is an empty slice, not an error.
func (r *Repository) FindByConditions(ctx context.Context, conditions criteria.Predicate) ([]models.BuyerRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.FindByConditions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := append([]string{sb.Equal("is_deleted", false)}, criteria.SQLClauses(sb, conditions)...)
	sb.Where(where...)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var requests []models.BuyerRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find buyer requests")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find buyer requests")
	}

	return requests, nil
}

// CountByConditions counts non-deleted buyer requests matching the predicate
// without materializing rows.
func (r *Repository) CountByConditions(ctx context.Context, conditions criteria.Predicate) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.CountByConditions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(table)
	where := append([]string{sb.Equal("is_deleted", false)}, criteria.SQLClauses(sb, conditions)...)
	sb.Where(where...)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count buyer requests")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count buyer requests")
	}

	return count, nil
}

// UpdateStatus sets the lifecycle status on a live buyer request.
func (r *Repository) UpdateStatus(ctx context.Context, key models.RequestKeySelector, value string, status models.RequestStatus) error {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.UpdateStatus")
	defer span.End()

	if !key.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid key selector %q", key))
	}
	if !status.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid status %q", status))
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal(string(key), value),
		sb.Equal("is_deleted", false),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update buyer request status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update buyer request status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("buyer request %s not found", value))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{string(key): value, "status": status}).Info("Updated buyer request status")
	return nil
}

// RegisterInterest writes the interested-phone set and the decided status in
// a single update so the status-defining write cannot land without the set.
func (r *Repository) RegisterInterest(ctx context.Context, id string, phones pq.StringArray, status models.RequestStatus) error {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.RegisterInterest")
	defer span.End()

	if !status.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid status %q", status))
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("interested_phones", phones),
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("is_deleted", false),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to register interest")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to register interest")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("buyer request %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": status}).Info("Registered interest on buyer request")
	return nil
}

// SoftDelete marks a buyer request deleted without losing the row.
func (r *Repository) SoftDelete(ctx context.Context, key models.RequestKeySelector, value string) error {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.SoftDelete")
	defer span.End()

	if !key.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid key selector %q", key))
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("is_deleted", true),
		sb.Assign("deleted_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal(string(key), value),
		sb.Equal("is_deleted", false),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to soft delete buyer request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete buyer request")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("buyer request %s not found", value))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{string(key): value}).Info("Soft deleted buyer request")
	return nil
}

// Restore brings a soft-deleted buyer request back.
func (r *Repository) Restore(ctx context.Context, key models.RequestKeySelector, value string) error {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.Restore")
	defer span.End()

	if !key.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid key selector %q", key))
	}

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(table)
	sb.Set(
		sb.Assign("is_deleted", false),
		sb.Assign("deleted_at", nil),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal(string(key), value),
		sb.Equal("is_deleted", true),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to restore buyer request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to restore buyer request")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("deleted buyer request %s not found", value))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{string(key): value}).Info("Restored buyer request")
	return nil
}

// HardDelete permanently removes a buyer request row.
func (r *Repository) HardDelete(ctx context.Context, key models.RequestKeySelector, value string) error {
	ctx, span := tracing.StartSpan(ctx, "buyerrequest.Repository.HardDelete")
	defer span.End()

	if !key.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid key selector %q", key))
	}

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(table)
	sb.Where(sb.Equal(string(key), value))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to hard delete buyer request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete buyer request")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("buyer request %s not found", value))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{string(key): value}).Info("Hard deleted buyer request")
	return nil
}
