// internal/workers/matching/persist-matches/config.go
package persistmatches

import "time"

type Config struct {
	Timeout time.Duration
}
