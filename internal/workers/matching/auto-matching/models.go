// internal/workers/matching/auto-matching/models.go
package automatching

import (
	"time"

	"marketplace-matching/internal/models"
)

const EventMatchesCreated = "matches.created"

type Input struct {
	CustomerID string `json:"customerId" validate:"notblank"`
}

type Output struct {
	Matches  []models.RankedMatch `json:"matches"`
	Degraded bool                 `json:"degraded"`
}

// MatchesCreatedEvent is published after a batch has been committed.
type MatchesCreatedEvent struct {
	CustomerID string               `json:"customerId"`
	MatchIDs   []string             `json:"matchIds"`
	Matches    []models.RankedMatch `json:"matches"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// Fallback is the sample list served when matching fails in degraded mode.
func Fallback() []models.RankedMatch {
	return []models.RankedMatch{
		{BusinessID: "b001", CompanyName: "株式会社A", Score: 0.9},
		{BusinessID: "b002", CompanyName: "株式会社B", Score: 0.8},
		{BusinessID: "b003", CompanyName: "株式会社C", Score: 0.7},
	}
}
