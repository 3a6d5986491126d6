package data

import "time"

// TimeProvider abstracts the wall clock so repositories that compare lease
// expiry and run age against "now" can be tested with a pinned time.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider is the production clock.
type RealTimeProvider struct{}

func (RealTimeProvider) Now() time.Time { return time.Now() }
