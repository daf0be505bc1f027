package store

import (
	"context"
	"database/sql"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"
)

const (
	queryInsertMatch = `
		INSERT INTO matches (id, customer_id, business_id, score, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	queryMatchesByCustomer = `
		SELECT id, customer_id, business_id, score, status, created_at
		FROM matches
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	queryRecentMatches = `
		SELECT id, customer_id, business_id, score, status, created_at
		FROM matches
		ORDER BY created_at DESC
		LIMIT $1`

	queryPendingMatchViews = `
		SELECT m.id, m.customer_id, m.business_id, m.score, m.status, m.created_at,
		       b.company_name, COALESCE(b.services, '{}'::jsonb), COALESCE(b.service_areas, '[]'::jsonb)
		FROM matches m
		JOIN business_profiles b ON b.id = m.business_id
		WHERE m.customer_id = $1 AND m.status = 'pending'
		ORDER BY m.score DESC, m.created_at DESC`
)

type MatchRepository struct {
	db *sql.DB
}

func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// InsertMatch writes one row inside the caller's transaction.
func InsertMatch(ctx context.Context, tx *sql.Tx, m models.MatchRecord) error {
	_, err := tx.ExecContext(ctx, queryInsertMatch,
		m.ID, m.CustomerID, m.BusinessID, m.Score, string(m.Status), m.CreatedAt,
	)
	return err
}

// ListByCustomer returns the customer's matches, newest first.
func (r *MatchRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, queryMatchesByCustomer, customerID, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("matches_by_customer", err)
	}
	return scanMatches(rows, "matches_by_customer")
}

// ListRecent returns the newest matches across all customers.
func (r *MatchRepository) ListRecent(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, queryRecentMatches, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent_matches", err)
	}
	return scanMatches(rows, "recent_matches")
}

// ListPendingViews returns the customer's pending matches joined with the
// matched business, best score first.
func (r *MatchRepository) ListPendingViews(ctx context.Context, customerID string) ([]models.MatchView, error) {
	rows, err := r.db.QueryContext(ctx, queryPendingMatchViews, customerID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("pending_match_views", err)
	}
	defer rows.Close()

	views := make([]models.MatchView, 0)
	for rows.Next() {
		var (
			v                    models.MatchView
			status               string
			servicesRaw, areaRaw []byte
		)
		if err := rows.Scan(&v.ID, &v.CustomerID, &v.BusinessID, &v.Score, &status, &v.CreatedAt,
			&v.CompanyName, &servicesRaw, &areaRaw); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("pending_match_views", err)
		}
		v.Status = models.MatchStatus(status)
		v.Services = decodeServices(servicesRaw)
		v.ServiceAreas = decodeAreas(areaRaw)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("pending_match_views", err)
	}
	return views, nil
}

func scanMatches(rows *sql.Rows, queryType string) ([]models.MatchRecord, error) {
	defer rows.Close()

	out := make([]models.MatchRecord, 0)
	for rows.Next() {
		var (
			m      models.MatchRecord
			status string
		)
		if err := rows.Scan(&m.ID, &m.CustomerID, &m.BusinessID, &m.Score, &status, &m.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError(queryType, err)
		}
		m.Status = models.MatchStatus(status)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError(queryType, err)
	}
	return out, nil
}
