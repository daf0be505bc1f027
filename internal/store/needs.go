package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"
)

const (
	queryGetNeeds = `
		SELECT customer_id, COALESCE(industry, ''), COALESCE(location, ''), COALESCE(budget, ''),
		       COALESCE(other_requirements, ''), updated_at
		FROM customer_needs
		WHERE customer_id = $1`

	queryUpsertNeeds = `
		INSERT INTO customer_needs (customer_id, industry, location, budget, other_requirements, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id) DO UPDATE SET
			industry = EXCLUDED.industry,
			location = EXCLUDED.location,
			budget = EXCLUDED.budget,
			other_requirements = EXCLUDED.other_requirements,
			updated_at = EXCLUDED.updated_at`
)

// NeedsRepository reads and writes the one-row-per-customer needs table.
type NeedsRepository struct {
	db *sql.DB
}

func NewNeedsRepository(db *sql.DB) *NeedsRepository {
	return &NeedsRepository{db: db}
}

func (r *NeedsRepository) GetNeeds(ctx context.Context, customerID string) (*models.NeedsRecord, error) {
	var (
		rec    models.NeedsRecord
		budget string
	)
	err := r.db.QueryRowContext(ctx, queryGetNeeds, customerID).Scan(
		&rec.CustomerID, &rec.Industry, &rec.Location, &budget, &rec.OtherRequirements, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNeedsNotFoundError(customerID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_needs", err)
	}

	rec.Budget = models.ParseBudget(budget)
	return &rec, nil
}

// UpsertNeeds replaces the customer's needs; no history is kept.
func (r *NeedsRepository) UpsertNeeds(ctx context.Context, rec *models.NeedsRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, queryUpsertNeeds,
		rec.CustomerID, rec.Industry, rec.Location, rec.Budget.Raw, rec.OtherRequirements, rec.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}
