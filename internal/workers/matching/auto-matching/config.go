// internal/workers/matching/auto-matching/config.go
package automatching

import "time"

type Config struct {
	TopN    int
	Timeout time.Duration
}
