package applymatchranking

import (
	"time"

	"marketplace-matching/internal/common/config"
)

type Config struct {
	TopN    int
	Weights config.ScoreWeights
	Timeout time.Duration
}
