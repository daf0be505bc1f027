// internal/workers/recommendation/service-recommendation/models.go
package servicerecommendation

import (
	"time"

	"marketplace-matching/internal/models"
)

type Input struct {
	UserID string `json:"userId" validate:"notblank"`
}

type Output struct {
	UserID              string                      `json:"userId"`
	RecommendedServices []models.RecommendationItem `json:"recommendedServices"`
	Degraded            bool                        `json:"degraded"`
	GeneratedAt         time.Time                   `json:"generatedAt"`
}

// OracleRequest is the payload sent to the external recommendation service.
type OracleRequest struct {
	UserID      string                      `json:"userId"`
	Preferences models.NeedsRecord          `json:"preferences"`
	History     []string                    `json:"history"`
	Candidates  []models.RecommendationItem `json:"candidates"`
	Limit       int                         `json:"limit"`
}

type oracleResponse struct {
	Recommendations []models.RecommendationItem `json:"recommendations"`
}

// Fallback is the fixed list served while the oracle is unavailable.
func Fallback() []models.RecommendationItem {
	return []models.RecommendationItem{
		{BusinessID: "b1", Name: "快適ハウスクリーニング", Category: "ハウスクリーニング", Rating: 4.8},
		{BusinessID: "b2", Name: "匠の技 庭園サービス", Category: "庭園管理", Rating: 4.7},
		{BusinessID: "b3", Name: "スマイル介護サポート", Category: "介護サービス", Rating: 4.9},
		{BusinessID: "b4", Name: "24時間緊急水道修理", Category: "水道修理", Rating: 4.6},
		{BusinessID: "b5", Name: "エコ電気設備メンテナンス", Category: "電気工事", Rating: 4.5},
	}
}
