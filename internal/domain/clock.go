package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

var clock = clockwork.NewRealClock()

// SetClock replaces the clock that stamps Result.GeneratedAt. Pass nil for
// the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

// now returns the generation time in UTC, truncated to the second so
// published timestamps and RFC 3339 headers agree.
func now() time.Time {
	return clock.Now().UTC().Truncate(time.Second)
}
