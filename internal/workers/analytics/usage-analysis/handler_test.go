// internal/workers/analytics/usage-analysis/handler_test.go
package usageanalysis

import (
	"context"
	"errors"
	"testing"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMatches struct {
	records []models.MatchRecord
	limit   int
	err     error
}

func (s *stubMatches) ListRecent(_ context.Context, limit int) ([]models.MatchRecord, error) {
	s.limit = limit
	return s.records, s.err
}

type stubTransactions struct {
	records []models.TransactionRecord
	err     error
}

func (s *stubTransactions) ListRecent(_ context.Context, _ int) ([]models.TransactionRecord, error) {
	return s.records, s.err
}

type memReports struct {
	reports []models.AnalysisReport
	err     error
}

func (m *memReports) Save(_ context.Context, r models.AnalysisReport) error {
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, r)
	return nil
}

func TestHandler_Execute(t *testing.T) {
	matches := &stubMatches{records: []models.MatchRecord{match(models.MatchStatusCompleted), match(models.MatchStatusRejected)}}
	reports := &memReports{}
	h := NewHandler(&Config{Advice: []string{"紹介プログラムの導入を検討してください。"}}, Dependencies{
		Matches:      matches,
		Transactions: &stubTransactions{records: []models.TransactionRecord{tx(12000, "家事代行")}},
		Reports:      reports,
	}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000, matches.limit)
	assert.Equal(t, 50.0, out.Summary.SuccessRate)
	assert.Equal(t, 12000.0, out.Summary.AverageTransactionValue)
	assert.False(t, out.Degraded)

	require.Len(t, reports.reports, 1)
	assert.Equal(t, out.ReportID, reports.reports[0].ID)
	assert.Equal(t, out.Summary, reports.reports[0].Summary)
	assert.Equal(t, []string{"紹介プログラムの導入を検討してください。"}, reports.reports[0].Recommendations)
}

func TestHandler_Execute_AppendsEachRun(t *testing.T) {
	reports := &memReports{}
	h := NewHandler(&Config{}, Dependencies{
		Matches:      &stubMatches{},
		Transactions: &stubTransactions{},
		Reports:      reports,
	}, logger.NewTestLogger(t))

	first, err := h.Execute(context.Background())
	require.NoError(t, err)
	second, err := h.Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, reports.reports, 2)
	assert.NotEqual(t, first.ReportID, second.ReportID)
	assert.NotNil(t, reports.reports[0].Recommendations)
}

func TestHandler_Execute_Errors(t *testing.T) {
	dbErr := apperrors.NewQueryExecutionFailedError("recent_transactions", errors.New("x"))
	h := NewHandler(&Config{}, Dependencies{
		Matches:      &stubMatches{},
		Transactions: &stubTransactions{err: dbErr},
		Reports:      &memReports{},
	}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeQueryExecutionFailed))

	h = NewHandler(&Config{}, Dependencies{
		Matches:      &stubMatches{},
		Transactions: &stubTransactions{},
		Reports:      &memReports{err: apperrors.NewDatabaseInsertFailedError(errors.New("x"))},
	}, logger.NewTestLogger(t))
	_, err = h.Execute(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDatabaseInsertFailed))
}

func TestFallback(t *testing.T) {
	fb := Fallback()
	assert.Equal(t, 1500, fb.TotalMatches)
	assert.Equal(t, 68.5, fb.SuccessRate)
	assert.Equal(t, 12500.0, fb.AverageTransactionValue)
	assert.Equal(t, []string{"家事代行", "パーソナルトレーニング", "家庭教師"}, fb.TopCategories)
	assert.Equal(t, 15.2, fb.UserGrowthRate)
}
