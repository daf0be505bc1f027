package models

import "time"

type RecommendationItem struct {
	BusinessID string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Rating     float64 `json:"rating"`
}

// RecommendationSet is regenerated wholesale on every request.
type RecommendationSet struct {
	UserID      string               `json:"userId"`
	Items       []RecommendationItem `json:"recommendedServices"`
	Degraded    bool                 `json:"degraded"`
	GeneratedAt time.Time            `json:"generatedAt"`
}
