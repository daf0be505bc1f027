// internal/workers/recommendation/service-recommendation/config.go
package servicerecommendation

import (
	"time"

	"marketplace-matching/internal/common/config"
)

type Config struct {
	MaxItems        int
	HistoryLimit    int
	HistoryHalfLife time.Duration
	HistoryWeight   float64
	Weights         config.ScoreWeights
	DegradedMode    bool
	Timeout         time.Duration
}

// FromAppConfig maps the recommendation and degraded-mode sections.
func FromAppConfig(cfg *config.Config) *Config {
	r := cfg.Recommendation
	return &Config{
		MaxItems:        r.MaxItems,
		HistoryLimit:    r.HistoryLimit,
		HistoryHalfLife: time.Duration(r.HistoryHalfLifeHours) * time.Hour,
		HistoryWeight:   r.HistoryWeight,
		Weights:         cfg.Matching.Weights,
		DegradedMode:    cfg.DegradedMode.Enabled,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxItems <= 0 {
		c.MaxItems = 5
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	if c.HistoryHalfLife <= 0 {
		c.HistoryHalfLife = 720 * time.Hour
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
