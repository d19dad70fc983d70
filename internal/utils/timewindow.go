package utils

import "time"

// TrailingMonthsStart returns the instant months calendar months before now,
// in UTC. The monthly stats bucket only admits expenses dated at or after it.
func TrailingMonthsStart(now time.Time, months int) time.Time {
	return now.UTC().AddDate(0, -months, 0)
}
