// internal/workers/matching/auto-matching/handler_test.go
package automatching

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"
	applymatchranking "marketplace-matching/internal/workers/matching/apply-match-ranking"
	cms "marketplace-matching/internal/workers/matching/calculate-match-score"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNeeds struct {
	needs *models.NeedsRecord
	err   error
}

func (s *stubNeeds) GetNeeds(_ context.Context, _ string) (*models.NeedsRecord, error) {
	return s.needs, s.err
}

type stubCatalog struct {
	catalog []models.BusinessProfile
	err     error
}

func (s *stubCatalog) ListBusinesses(_ context.Context) ([]models.BusinessProfile, error) {
	return s.catalog, s.err
}

type recordingPersister struct {
	customerID string
	ranked     []models.RankedMatch
	err        error
}

func (p *recordingPersister) Persist(_ context.Context, customerID string, ranked []models.RankedMatch) ([]models.MatchRecord, error) {
	p.customerID = customerID
	p.ranked = ranked
	if p.err != nil {
		return nil, p.err
	}
	out := make([]models.MatchRecord, len(ranked))
	for i, m := range ranked {
		out[i] = models.MatchRecord{ID: "m-" + m.BusinessID, CustomerID: customerID, BusinessID: m.BusinessID,
			Score: m.Score, Status: models.MatchStatusPending, CreatedAt: time.Now()}
	}
	return out, nil
}

type recordingPublisher struct {
	events []interface{}
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, event interface{}) (string, error) {
	p.events = append(p.events, event)
	return "msg-1", p.err
}

func catalog() []models.BusinessProfile {
	return []models.BusinessProfile{
		{ID: "b1", CompanyName: "快適ハウス", Category: "ハウスクリーニング",
			Services: map[string]interface{}{"ハウスクリーニング": true}, ServiceAreas: []string{"渋谷区"}},
		{ID: "b2", CompanyName: "匠庭園", Category: "庭園管理",
			Services: map[string]interface{}{"剪定": true}, ServiceAreas: []string{"横浜市"}},
		{ID: "b3", CompanyName: "家庭教師ゼミ", Category: "家庭教師",
			Services: map[string]interface{}{"数学": true}, ServiceAreas: []string{"渋谷区"}},
	}
}

type fixture struct {
	persister *recordingPersister
	publisher *recordingPublisher
	handler   *Handler
}

func newFixture(t *testing.T, needs *stubNeeds, cat *stubCatalog) *fixture {
	f := &fixture{persister: &recordingPersister{}, publisher: &recordingPublisher{}}
	ranker := applymatchranking.NewRanker(cms.NewScorer(cms.DefaultWeights), 2)
	f.handler = NewHandler(&Config{TopN: 2}, Dependencies{
		Needs:     needs,
		Catalog:   cat,
		Ranker:    ranker,
		Persister: f.persister,
		Publisher: f.publisher,
	}, logger.NewTestLogger(t))
	return f
}

func TestHandler_Execute_Success(t *testing.T) {
	f := newFixture(t,
		&stubNeeds{needs: &models.NeedsRecord{CustomerID: "c1", Industry: "ハウスクリーニング", Location: "渋谷区"}},
		&stubCatalog{catalog: catalog()})

	out, err := f.handler.Execute(context.Background(), &Input{CustomerID: "c1"})
	require.NoError(t, err)

	require.Len(t, out.Matches, 2)
	assert.False(t, out.Degraded)
	assert.Equal(t, "b1", out.Matches[0].BusinessID)
	assert.GreaterOrEqual(t, out.Matches[0].Score, out.Matches[1].Score)

	assert.Equal(t, "c1", f.persister.customerID)
	assert.Equal(t, out.Matches, f.persister.ranked)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0].(MatchesCreatedEvent)
	assert.Equal(t, []string{"m-b1", "m-"+out.Matches[1].BusinessID}, event.MatchIDs)
}

func TestHandler_Execute_PublishFailureIsIgnored(t *testing.T) {
	f := newFixture(t,
		&stubNeeds{needs: &models.NeedsRecord{CustomerID: "c1"}},
		&stubCatalog{catalog: catalog()})
	f.publisher.err = errors.New("sns throttled")

	out, err := f.handler.Execute(context.Background(), &Input{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Len(t, out.Matches, 2)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   *Input
		needs   *stubNeeds
		catalog *stubCatalog
		persist error
		code    apperrors.ErrorCode
	}{
		{
			name:    "blank customer",
			input:   &Input{CustomerID: "  "},
			needs:   &stubNeeds{},
			catalog: &stubCatalog{},
			code:    apperrors.ErrCodeValidationFailed,
		},
		{
			name:    "needs missing",
			input:   &Input{CustomerID: "c9"},
			needs:   &stubNeeds{err: apperrors.NewNeedsNotFoundError("c9")},
			catalog: &stubCatalog{},
			code:    apperrors.ErrCodeNeedsNotFound,
		},
		{
			name:    "catalog unavailable",
			input:   &Input{CustomerID: "c1"},
			needs:   &stubNeeds{needs: &models.NeedsRecord{CustomerID: "c1"}},
			catalog: &stubCatalog{err: apperrors.NewSearchQueryFailedError("business_profiles", errors.New("red cluster"))},
			code:    apperrors.ErrCodeSearchQueryFailed,
		},
		{
			name:    "persist fails",
			input:   &Input{CustomerID: "c1"},
			needs:   &stubNeeds{needs: &models.NeedsRecord{CustomerID: "c1"}},
			catalog: &stubCatalog{catalog: catalog()},
			persist: apperrors.NewDatabaseInsertFailedError(errors.New("rollback")),
			code:    apperrors.ErrCodeDatabaseInsertFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.needs, tt.catalog)
			f.persister.err = tt.persist

			_, err := f.handler.Execute(context.Background(), tt.input)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, f.publisher.events)
		})
	}
}

func TestFallback(t *testing.T) {
	fb := Fallback()
	require.Len(t, fb, 3)
	assert.Equal(t, "株式会社A", fb[0].CompanyName)
	assert.Equal(t, 0.9, fb[0].Score)
}
