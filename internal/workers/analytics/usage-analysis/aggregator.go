// internal/workers/analytics/usage-analysis/aggregator.go
package usageanalysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"marketplace-matching/internal/models"
)

// growthWindow is the period compared against the one before it for
// UserGrowthRate.
const growthWindow = 30 * 24 * time.Hour

type Aggregator struct {
	topCategories []string
	topK          int
	now           func() time.Time
}

// NewAggregator uses topCategories verbatim when non-empty; otherwise the
// topK most frequent transaction categories are computed.
func NewAggregator(topCategories []string, topK int) *Aggregator {
	if topK <= 0 {
		topK = 3
	}
	return &Aggregator{
		topCategories: topCategories,
		topK:          topK,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (a *Aggregator) Aggregate(matches []models.MatchRecord, transactions []models.TransactionRecord) models.UsageSummary {
	s := models.UsageSummary{
		TotalMatches:     len(matches),
		TransactionCount: len(transactions),
		GeneratedAt:      a.now(),
	}

	for _, m := range matches {
		if m.Status == models.MatchStatusCompleted {
			s.CompletedMatches++
		}
	}
	if s.TotalMatches > 0 {
		s.SuccessRate = round(100*float64(s.CompletedMatches)/float64(s.TotalMatches), 1)
	}

	if len(transactions) > 0 {
		var total float64
		for _, tx := range transactions {
			total += tx.Amount
		}
		s.AverageTransactionValue = round(total/float64(len(transactions)), 2)
	}

	s.UserGrowthRate = userGrowthRate(matches, s.GeneratedAt)

	if len(a.topCategories) > 0 {
		s.TopCategories = append([]string(nil), a.topCategories...)
		s.TopCategoriesSource = models.TopCategoriesConfigured
	} else {
		s.TopCategories = topCategories(transactions, a.topK)
		s.TopCategoriesSource = models.TopCategoriesComputed
	}
	return s
}

// topCategories ranks categories by frequency; ties keep first appearance.
func topCategories(transactions []models.TransactionRecord, k int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, tx := range transactions {
		c := strings.TrimSpace(tx.Category)
		if c == "" {
			continue
		}
		if _, ok := counts[c]; !ok {
			order = append(order, c)
		}
		counts[c]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > k {
		order = order[:k]
	}
	return order
}

// userGrowthRate compares distinct customers with a match in the last window
// against the window before it, as a percentage. No earlier activity yields 0.
func userGrowthRate(matches []models.MatchRecord, now time.Time) float64 {
	current := make(map[string]struct{})
	previous := make(map[string]struct{})
	for _, m := range matches {
		if m.CustomerID == "" || m.CreatedAt.After(now) {
			continue
		}
		switch age := now.Sub(m.CreatedAt); {
		case age < growthWindow:
			current[m.CustomerID] = struct{}{}
		case age < 2*growthWindow:
			previous[m.CustomerID] = struct{}{}
		}
	}
	if len(previous) == 0 {
		return 0
	}
	return round(100*float64(len(current)-len(previous))/float64(len(previous)), 1)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
