package applymatchranking

import "marketplace-matching/internal/models"

type Input struct {
	Needs   models.NeedsRecord       `json:"needs"`
	Catalog []models.BusinessProfile `json:"catalog"`
	TopN    int                      `json:"topN,omitempty"`
}

type Output struct {
	Matches []models.RankedMatch `json:"matches"`
}
