package applymatchranking

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/models"
	cms "marketplace-matching/internal/workers/matching/calculate-match-score"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRanker() *Ranker {
	return NewRanker(cms.NewScorer(cms.DefaultWeights), 5)
}

func testNeeds() models.NeedsRecord {
	return models.NeedsRecord{
		CustomerID:        "c1",
		Industry:          "ハウスクリーニング",
		Location:          "渋谷区",
		Budget:            models.ParseBudget("10000"),
		OtherRequirements: "エアコン",
	}
}

func testCatalog() []models.BusinessProfile {
	areas := [][]string{{"渋谷区"}, {"大阪市"}, {"渋谷区", "港区"}, {}, {"新宿区"}, {"渋谷区"}, {"札幌市"}}
	catalog := make([]models.BusinessProfile, 0, len(areas))
	for i, a := range areas {
		services := map[string]interface{}{"ハウスクリーニング": true}
		if i%2 == 1 {
			services = map[string]interface{}{"家庭教師": true}
		}
		if i == 2 {
			services["エアコン清掃"] = true
		}
		catalog = append(catalog, models.BusinessProfile{
			ID:           fmt.Sprintf("b%d", i+1),
			CompanyName:  fmt.Sprintf("company %d", i+1),
			Services:     services,
			ServiceAreas: a,
			PriceMin:     5000,
			PriceMax:     15000,
		})
	}
	return catalog
}

func TestRank_Properties(t *testing.T) {
	r := newRanker()

	for _, k := range []int{1, 3, 5, 10} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			ranked := r.Rank(testNeeds(), testCatalog(), k)

			assert.LessOrEqual(t, len(ranked), k)
			assert.True(t, sort.SliceIsSorted(ranked, func(i, j int) bool {
				return ranked[i].Score > ranked[j].Score
			}))
			for _, m := range ranked {
				assert.GreaterOrEqual(t, m.Score, 0.0)
				assert.LessOrEqual(t, m.Score, 1.0)
			}
		})
	}
}

func TestRank_EmptyCatalog(t *testing.T) {
	ranked := newRanker().Rank(testNeeds(), nil, 5)
	require.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRank_Idempotent(t *testing.T) {
	r := newRanker()
	first := r.Rank(testNeeds(), testCatalog(), 5)
	second := r.Rank(testNeeds(), testCatalog(), 5)
	assert.Equal(t, first, second)
}

func TestRank_OrderAndTies(t *testing.T) {
	ranked := newRanker().Rank(testNeeds(), testCatalog(), 0)

	require.Len(t, ranked, 5)
	ids := make([]string, len(ranked))
	for i, m := range ranked {
		ids[i] = m.BusinessID
	}
	// b3 also offers air-conditioner cleaning; b5 and b7 tie and keep catalog order
	assert.Equal(t, []string{"b3", "b1", "b5", "b7", "b6"}, ids)
	assert.Equal(t, 1.0, ranked[0].Score)
	assert.Equal(t, ranked[2].Score, ranked[3].Score)
}

func TestRank_SkipsDuplicateBusinesses(t *testing.T) {
	catalog := testCatalog()
	catalog = append(catalog, catalog[0])

	ranked := newRanker().Rank(testNeeds(), catalog, 10)
	assert.Len(t, ranked, len(catalog)-1)
}

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(&Config{TopN: 2, Weights: cms.DefaultWeights}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Needs: testNeeds(), Catalog: testCatalog()})
	require.NoError(t, err)
	assert.Len(t, out.Matches, 2)

	out, err = h.Execute(context.Background(), &Input{Needs: testNeeds(), Catalog: testCatalog(), TopN: 4})
	require.NoError(t, err)
	assert.Len(t, out.Matches, 4)

	_, err = h.Execute(context.Background(), nil)
	assert.Error(t, err)
}
