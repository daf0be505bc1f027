// internal/workers/recommendation/service-recommendation/recommender.go
package servicerecommendation

import (
	"context"
	"sort"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/common/logger"
	"marketplace-matching/internal/common/metrics"
	"marketplace-matching/internal/models"
	cms "marketplace-matching/internal/workers/matching/calculate-match-score"
)

// Recommender blends needs fit with recent engagement and optionally defers
// the final ordering to an oracle.
type Recommender struct {
	config *Config
	scorer *cms.Scorer
	oracle Oracle
	now    func() time.Time
	logger logger.Logger
}

// NewRecommender accepts a nil oracle, in which case the local candidate
// list is the answer.
func NewRecommender(cfg *Config, oracle Oracle, log logger.Logger) *Recommender {
	cfg.applyDefaults()
	return &Recommender{
		config: cfg,
		scorer: cms.NewScorer(cfg.Weights),
		oracle: oracle,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log,
	}
}

type candidate struct {
	item  models.RecommendationItem
	score float64
}

func (r *Recommender) Recommend(ctx context.Context, userID string, history []models.MatchRecord,
	prefs models.NeedsRecord, catalog []models.BusinessProfile) (models.RecommendationSet, error) {

	now := r.now()
	set := models.RecommendationSet{UserID: userID, GeneratedAt: now}

	local := r.candidates(history, prefs, catalog, now)
	if r.oracle == nil {
		set.Items = limit(local, r.config.MaxItems)
		return set, nil
	}

	items, err := r.oracle.Recommend(ctx, OracleRequest{
		UserID:      userID,
		Preferences: prefs,
		History:     historyIDs(history),
		Candidates:  local,
		Limit:       r.config.MaxItems,
	})
	if err != nil {
		if !apperrors.IsUpstream(err) || !r.config.DegradedMode {
			return models.RecommendationSet{}, err
		}
		r.logger.Warn("oracle unavailable, serving fallback recommendations", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
		metrics.DegradedResponses.WithLabelValues("recommend").Inc()
		set.Items = Fallback()
		set.Degraded = true
		return set, nil
	}

	set.Items = limit(annotate(items, catalog), r.config.MaxItems)
	return set, nil
}

// candidates scores every catalog entry as (1-h)*fit + h*engagement.
func (r *Recommender) candidates(history []models.MatchRecord, prefs models.NeedsRecord,
	catalog []models.BusinessProfile, now time.Time) []models.RecommendationItem {

	hw := HistoryWeights(history, now, r.config.HistoryHalfLife)
	h := r.config.HistoryWeight

	seen := make(map[string]struct{}, len(catalog))
	scored := make([]candidate, 0, len(catalog))
	for _, b := range catalog {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		scored = append(scored, candidate{
			item:  itemFor(b),
			score: (1-h)*r.scorer.Score(prefs, b) + h*hw[b.ID],
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]models.RecommendationItem, len(scored))
	for i, c := range scored {
		out[i] = c.item
	}
	return out
}

func itemFor(b models.BusinessProfile) models.RecommendationItem {
	return models.RecommendationItem{
		BusinessID: b.ID,
		Name:       b.CompanyName,
		Category:   b.Category,
		Rating:     b.Rating,
	}
}

// annotate fills blanks in oracle items from the catalog entry of the same id.
func annotate(items []models.RecommendationItem, catalog []models.BusinessProfile) []models.RecommendationItem {
	byID := make(map[string]models.BusinessProfile, len(catalog))
	for _, b := range catalog {
		byID[b.ID] = b
	}

	out := make([]models.RecommendationItem, len(items))
	for i, it := range items {
		if b, ok := byID[it.BusinessID]; ok {
			if it.Name == "" {
				it.Name = b.CompanyName
			}
			if it.Category == "" {
				it.Category = b.Category
			}
			if it.Rating == 0 {
				it.Rating = b.Rating
			}
		}
		out[i] = it
	}
	return out
}

func historyIDs(history []models.MatchRecord) []string {
	ids := make([]string, 0, len(history))
	for _, m := range history {
		ids = append(ids, m.BusinessID)
	}
	return ids
}

func limit(items []models.RecommendationItem, n int) []models.RecommendationItem {
	if len(items) > n {
		return items[:n]
	}
	return items
}
