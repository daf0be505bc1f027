package store

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"
)

const (
	queryRecentTransactions = `
		SELECT id, COALESCE(customer_id, ''), COALESCE(business_id, ''), amount,
		       COALESCE(category, ''), COALESCE(status, ''), created_at
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1`

	queryInsertRecommendation = `
		INSERT INTO recommendations (id, user_id, recommendations, degraded, generated_at)
		VALUES ($1, $2, $3, $4, $5)`

	queryInsertReport = `
		INSERT INTO analysis_reports (id, report, created_at)
		VALUES ($1, $2, $3)`
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) ListRecent(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx, queryRecentTransactions, limit)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent_transactions", err)
	}
	defer rows.Close()

	out := make([]models.TransactionRecord, 0)
	for rows.Next() {
		var tx models.TransactionRecord
		if err := rows.Scan(&tx.ID, &tx.CustomerID, &tx.BusinessID, &tx.Amount, &tx.Category, &tx.Status, &tx.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("recent_transactions", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("recent_transactions", err)
	}
	return out, nil
}

type RecommendationRepository struct {
	db *sql.DB
}

func NewRecommendationRepository(db *sql.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

func (r *RecommendationRepository) Save(ctx context.Context, id string, set models.RecommendationSet) error {
	items, err := json.Marshal(set.Items)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := r.db.ExecContext(ctx, queryInsertRecommendation, id, set.UserID, items, set.Degraded, set.GeneratedAt); err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

type reportBody struct {
	Summary         models.UsageSummary `json:"summary"`
	Recommendations []string            `json:"recommendations"`
}

// Save appends a snapshot; earlier reports are never modified.
func (r *ReportRepository) Save(ctx context.Context, report models.AnalysisReport) error {
	body, err := json.Marshal(reportBody{
		Summary:         report.Summary,
		Recommendations: report.Recommendations,
	})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if _, err := r.db.ExecContext(ctx, queryInsertReport, report.ID, body, report.CreatedAt); err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}
