package calculatematchscore

import (
	"time"

	"marketplace-matching/internal/common/config"
)

type Config struct {
	Weights config.ScoreWeights
	Timeout time.Duration
}
