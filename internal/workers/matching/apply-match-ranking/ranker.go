package applymatchranking

import (
	"sort"

	cms "marketplace-matching/internal/workers/matching/calculate-match-score"
	"marketplace-matching/internal/models"
)

const DefaultTopN = 5

// Ranker scores a catalog against one needs record and keeps the best entries.
type Ranker struct {
	scorer      *cms.Scorer
	defaultTopN int
}

func NewRanker(scorer *cms.Scorer, defaultTopN int) *Ranker {
	if defaultTopN <= 0 {
		defaultTopN = DefaultTopN
	}
	return &Ranker{scorer: scorer, defaultTopN: defaultTopN}
}

// Rank returns at most topN entries sorted by descending score. Equal scores
// keep catalog order; a business listed twice is ranked once. topN <= 0
// selects the configured default.
func (r *Ranker) Rank(needs models.NeedsRecord, catalog []models.BusinessProfile, topN int) []models.RankedMatch {
	if topN <= 0 {
		topN = r.defaultTopN
	}

	ranked := make([]models.RankedMatch, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for _, b := range catalog {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}

		ranked = append(ranked, models.RankedMatch{
			BusinessID:  b.ID,
			CompanyName: b.CompanyName,
			Score:       r.scorer.Score(needs, b),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
