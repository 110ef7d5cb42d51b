package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// CurrentPeriod reads the calendar month from c in loc. Callers pass the result
// down explicitly; nothing below the orchestrator consults a clock.
func CurrentPeriod(c clockwork.Clock, loc *time.Location) Period {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.Local
	}
	return PeriodOf(c.Now().In(loc))
}
