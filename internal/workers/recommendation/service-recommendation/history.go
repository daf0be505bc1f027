// internal/workers/recommendation/service-recommendation/history.go
package servicerecommendation

import (
	"math"
	"time"

	"marketplace-matching/internal/models"
)

// HistoryWeights decays every past match by its age and sums per business.
// The result is scaled so the most engaged business has weight 1.
func HistoryWeights(history []models.MatchRecord, now time.Time, halfLife time.Duration) map[string]float64 {
	weights := make(map[string]float64)
	if len(history) == 0 || halfLife <= 0 {
		return weights
	}

	for _, m := range history {
		if m.BusinessID == "" {
			continue
		}
		age := now.Sub(m.CreatedAt)
		if age < 0 {
			age = 0
		}
		weights[m.BusinessID] += math.Pow(0.5, float64(age)/float64(halfLife))
	}

	var peak float64
	for _, w := range weights {
		peak = math.Max(peak, w)
	}
	if peak == 0 {
		return weights
	}
	for id, w := range weights {
		weights[id] = w / peak
	}
	return weights
}
