package calculatematchscore

import "marketplace-matching/internal/models"

type Input struct {
	CustomerID string                 `json:"customerId"`
	Needs      *models.NeedsRecord    `json:"needs,omitempty"`
	Business   models.BusinessProfile `json:"business"`
}

type Output struct {
	MatchScore   float64 `json:"matchScore"`
	MatchFactors Factors `json:"matchFactors"`
}

// Factors are the unweighted per-criterion fits, each in [0,1].
type Factors struct {
	Industry     float64 `json:"industry"`
	Location     float64 `json:"location"`
	Budget       float64 `json:"budget"`
	Requirements float64 `json:"requirements"`
}
