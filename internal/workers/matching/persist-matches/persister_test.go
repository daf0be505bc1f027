// internal/workers/matching/persist-matches/persister_test.go
package persistmatches

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"testing"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestPersister(t *testing.T) (*Persister, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	p := NewPersister(db)
	p.now = func() time.Time { return fixedNow }
	seq := 0
	p.newID = func() string {
		seq++
		return fmt.Sprintf("m%d", seq)
	}
	return p, mock
}

func fiveRanked() []models.RankedMatch {
	return []models.RankedMatch{
		{BusinessID: "b3", CompanyName: "C社", Score: 0.91},
		{BusinessID: "b1", CompanyName: "A社", Score: 0.85},
		{BusinessID: "b5", CompanyName: "E社", Score: 0.72},
		{BusinessID: "b7", CompanyName: "G社", Score: 0.72},
		{BusinessID: "b6", CompanyName: "F社", Score: 0.40},
	}
}

var insertMatch = regexp.QuoteMeta("INSERT INTO matches")

func TestPersister_Persist_AllRowsPending(t *testing.T) {
	p, mock := newTestPersister(t)
	ranked := fiveRanked()

	mock.ExpectBegin()
	for i, m := range ranked {
		mock.ExpectExec(insertMatch).
			WithArgs(fmt.Sprintf("m%d", i+1), "c1", m.BusinessID, m.Score, "pending", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	records, err := p.Persist(context.Background(), "c1", ranked)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, "c1", rec.CustomerID)
		assert.Equal(t, models.MatchStatusPending, rec.Status)
		assert.Equal(t, ranked[i].BusinessID, rec.BusinessID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersister_Persist_RollsBackOnThirdRow(t *testing.T) {
	p, mock := newTestPersister(t)

	mock.ExpectBegin()
	mock.ExpectExec(insertMatch).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertMatch).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertMatch).WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	records, err := p.Persist(context.Background(), "c1", fiveRanked())
	assert.Nil(t, records)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseInsertFailed))
	assert.Contains(t, err.Error(), "b5")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersister_Persist_EmptyIsNoop(t *testing.T) {
	p, mock := newTestPersister(t)

	records, err := p.Persist(context.Background(), "c1", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersister_Persist_Validation(t *testing.T) {
	tests := []struct {
		name       string
		customerID string
		ranked     []models.RankedMatch
	}{
		{name: "missing customer", customerID: "", ranked: fiveRanked()},
		{name: "score above one", customerID: "c1", ranked: []models.RankedMatch{{BusinessID: "b1", Score: 1.2}}},
		{name: "negative score", customerID: "c1", ranked: []models.RankedMatch{{BusinessID: "b1", Score: -0.1}}},
		{name: "score not a number", customerID: "c1", ranked: []models.RankedMatch{{BusinessID: "b1", Score: math.NaN()}}},
		{name: "missing business", customerID: "c1", ranked: []models.RankedMatch{{Score: 0.5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newTestPersister(t)
			_, err := p.Persist(context.Background(), tt.customerID, tt.ranked)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidationFailed), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute(t *testing.T) {
	p, mock := newTestPersister(t)
	h := NewHandler(&Config{}, p, logger.NewTestLogger(t))

	mock.ExpectBegin()
	mock.ExpectExec(insertMatch).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := h.Execute(context.Background(), &Input{
		CustomerID: "c2",
		Matches:    []models.RankedMatch{{BusinessID: "b1", CompanyName: "A社", Score: 0.6}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.MatchCount)
	assert.Equal(t, "m1", out.Matches[0].ID)
}
