// internal/workers/matching/persist-matches/models.go
package persistmatches

import "marketplace-matching/internal/models"

type Input struct {
	CustomerID string               `json:"customerId"`
	Matches    []models.RankedMatch `json:"matches"`
}

type Output struct {
	Matches    []models.MatchRecord `json:"persistedMatches"`
	MatchCount int                  `json:"matchCount"`
}
