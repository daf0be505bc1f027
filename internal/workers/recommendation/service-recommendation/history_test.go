package servicerecommendation

import (
	"testing"
	"time"

	"marketplace-matching/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestHistoryWeights(t *testing.T) {
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	halfLife := 720 * time.Hour

	weights := HistoryWeights([]models.MatchRecord{
		{BusinessID: "b1", CreatedAt: now},
		{BusinessID: "b1", CreatedAt: now.Add(-halfLife)},
		{BusinessID: "b2", CreatedAt: now},
		{BusinessID: "b3", CreatedAt: now.Add(-2 * halfLife)},
		{BusinessID: "", CreatedAt: now},
	}, now, halfLife)

	assert.Len(t, weights, 3)
	assert.InDelta(t, 1.0, weights["b1"], 1e-9)
	assert.InDelta(t, 1.0/1.5, weights["b2"], 1e-9)
	assert.InDelta(t, 0.25/1.5, weights["b3"], 1e-9)
	assert.Zero(t, weights["b4"])
}

func TestHistoryWeights_FutureTimestampsCountAsNow(t *testing.T) {
	now := time.Now()
	weights := HistoryWeights([]models.MatchRecord{
		{BusinessID: "b1", CreatedAt: now.Add(time.Hour)},
		{BusinessID: "b2", CreatedAt: now},
	}, now, time.Hour)

	assert.InDelta(t, 1.0, weights["b1"], 1e-9)
	assert.InDelta(t, 1.0, weights["b2"], 1e-9)
}

func TestHistoryWeights_Empty(t *testing.T) {
	assert.Empty(t, HistoryWeights(nil, time.Now(), time.Hour))
}
