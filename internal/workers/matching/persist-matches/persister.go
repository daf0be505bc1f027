// internal/workers/matching/persist-matches/persister.go
package persistmatches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"marketplace-matching/internal/common/database"
	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"
	"marketplace-matching/internal/store"

	"github.com/google/uuid"
)

var ErrInvalidMatch = errors.New("INVALID_MATCH")

// Persister writes a ranked list as pending matches. The batch is one
// transaction: either every row lands or none does.
type Persister struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewPersister(db *sql.DB) *Persister {
	return &Persister{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
}

func (p *Persister) Persist(ctx context.Context, customerID string, ranked []models.RankedMatch) ([]models.MatchRecord, error) {
	if customerID == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%v: customerId is required", ErrInvalidMatch))
	}
	for i, m := range ranked {
		if m.BusinessID == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%v: entry %d has no businessId", ErrInvalidMatch, i))
		}
		if math.IsNaN(m.Score) || m.Score < 0 || m.Score > 1 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%v: entry %d score %v outside [0,1]", ErrInvalidMatch, i, m.Score))
		}
	}
	if len(ranked) == 0 {
		return []models.MatchRecord{}, nil
	}

	createdAt := p.now()
	records := make([]models.MatchRecord, len(ranked))
	for i, m := range ranked {
		records[i] = models.MatchRecord{
			ID:          p.newID(),
			CustomerID:  customerID,
			BusinessID:  m.BusinessID,
			CompanyName: m.CompanyName,
			Score:       m.Score,
			Status:      models.MatchStatusPending,
			CreatedAt:   createdAt,
		}
	}

	err := database.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		for i, rec := range records {
			if err := store.InsertMatch(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert match %d (%s): %w", i, rec.BusinessID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError(err)
	}
	return records, nil
}
