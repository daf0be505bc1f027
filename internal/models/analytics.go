package models

import "time"

const (
	TopCategoriesConfigured = "configured"
	TopCategoriesComputed   = "computed"
)

type UsageSummary struct {
	TotalMatches            int       `json:"totalMatches"`
	CompletedMatches        int       `json:"completedMatches"`
	SuccessRate             float64   `json:"successRate"`
	TransactionCount        int       `json:"transactionCount"`
	AverageTransactionValue float64   `json:"averageTransactionValue"`
	TopCategories           []string  `json:"topCategories"`
	TopCategoriesSource     string    `json:"topCategoriesSource"`
	UserGrowthRate          float64   `json:"userGrowthRate"`
	GeneratedAt             time.Time `json:"generatedAt"`
}

// AnalysisReport is one append-only analytics snapshot.
type AnalysisReport struct {
	ID              string       `json:"id"`
	Summary         UsageSummary `json:"summary"`
	Recommendations []string     `json:"recommendations"`
	CreatedAt       time.Time    `json:"createdAt"`
}
