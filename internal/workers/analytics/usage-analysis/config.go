// internal/workers/analytics/usage-analysis/config.go
package usageanalysis

import "time"

type Config struct {
	HistoryLimit  int
	TopCategories []string
	TopK          int
	// Advice is stored with every report as its recommendations list.
	Advice        []string
	Timeout       time.Duration
}
