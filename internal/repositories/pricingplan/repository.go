package pricingplan

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

	"github.com/Ramsey-B/trellis/pkg/database"
	"github.com/Ramsey-B/trellis/pkg/models"
	"github.com/Ramsey-B/trellis/pkg/phone"
	"github.com/Ramsey-B/trellis/pkg/tracing"
)

const table = "pricing_plans"

var columns = []string{
	"id", "owner_phones", "phone_keys", "plan_name", "package_type",
	"duration_days", "created_at",
}

// Repository handles pricing plan persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new pricing plan repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a pricing plan, normalizing the owner phones into keys so
// later lookups can join on the trailing digits.
func (r *Repository) Create(ctx context.Context, ownerPhones []string, planName, packageType string, durationDays int) (*models.PricingPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "pricingplan.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"plan_name": planName,
	})

	plan := &models.PricingPlan{
		ID:           uuid.New().String(),
		OwnerPhones:  pq.StringArray(ownerPhones),
		PhoneKeys:    pq.StringArray(phone.Keys(ownerPhones)),
		PlanName:     planName,
		PackageType:  packageType,
		DurationDays: durationDays,
		CreatedAt:    time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(table)
	sb.Cols(columns...)
	sb.Values(
		plan.ID, plan.OwnerPhones, plan.PhoneKeys, plan.PlanName,
		plan.PackageType, plan.DurationDays, plan.CreatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create pricing plan")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create pricing plan")
	}

	log.WithFields(map[string]any{"id": plan.ID}).Info("Created pricing plan")
	return plan, nil
}

// GetByPhone returns the most recent plan whose owner set contains the
// subscriber, or nil when the subscriber has none. Absence is a normal
// outcome here, not a 404: callers treat no plan as the free tier.
func (r *Repository) GetByPhone(ctx context.Context, phoneNumber string) (*models.PricingPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "pricingplan.Repository.GetByPhone")
	defer span.End()

	key := phone.Key(phoneNumber)
	if key == "" {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(fmt.Sprintf("%s = ANY(phone_keys)", sb.Var(key)))
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var plan models.PricingPlan
	if err := r.db.GetContext(ctx, &plan, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get pricing plan")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get pricing plan")
	}

	return &plan, nil
}

// ListByPhoneKeys fetches every plan owned by any of the given keys, newest
// first, for the enrichment join.
func (r *Repository) ListByPhoneKeys(ctx context.Context, keys []string) ([]models.PricingPlan, error) {
	ctx, span := tracing.StartSpan(ctx, "pricingplan.Repository.ListByPhoneKeys")
	defer span.End()

	if len(keys) == 0 {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(fmt.Sprintf("phone_keys && %s", sb.Var(pq.StringArray(keys))))
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var plans []models.PricingPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pricing plans")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pricing plans")
	}

	return plans, nil
}
