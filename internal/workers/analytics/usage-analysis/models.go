// internal/workers/analytics/usage-analysis/models.go
package usageanalysis

import "marketplace-matching/internal/models"

type Output struct {
	ReportID string              `json:"reportId"`
	Summary  models.UsageSummary `json:"summary"`
	Degraded bool                `json:"degraded"`
}

// Fallback is the sample summary served when analytics fails in degraded mode.
func Fallback() models.UsageSummary {
	return models.UsageSummary{
		TotalMatches:            1500,
		SuccessRate:             68.5,
		AverageTransactionValue: 12500,
		TopCategories:           []string{"家事代行", "パーソナルトレーニング", "家庭教師"},
		TopCategoriesSource:     models.TopCategoriesConfigured,
		UserGrowthRate:          15.2,
	}
}
