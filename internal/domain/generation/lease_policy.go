// Package generation holds the pure policy pieces of the quiz pipeline:
// lease duration resolution and retry backoff.
package generation

import (
	"errors"
	"math"
	"time"
)

// ErrInvalidDefaultLease indicates the configured default lease duration is not positive.
var ErrInvalidDefaultLease = errors.New("default lease must be positive")

// LeaseSource identifies how a lease duration was resolved.
type LeaseSource string

const (
	LeaseSourceExplicit LeaseSource = "explicit" // caller supplied a positive duration
	LeaseSourceDefault  LeaseSource = "default"  // fell back to the configured default
	LeaseSourceClamped  LeaseSource = "clamped"  // request forced up to the one-second floor
)

// LeasePolicy normalises lease durations for run acquisition and refresh.
// The lease store works in whole seconds; the policy converts durations and
// guards against zero or negative requests so a run can never be inserted
// with an already-expired lease.
type LeasePolicy struct {
	defaultLease time.Duration
}

func NewLeasePolicy(defaultLease time.Duration) (*LeasePolicy, error) {
	if defaultLease <= 0 {
		return nil, ErrInvalidDefaultLease
	}
	return &LeasePolicy{defaultLease: defaultLease}, nil
}

// Default returns the configured default lease duration.
func (p *LeasePolicy) Default() time.Duration {
	if p == nil {
		return 0
	}
	return p.defaultLease
}

// LeaseDecision is the outcome of resolving one lease request.
type LeaseDecision struct {
	Seconds   int
	Source    LeaseSource
	Requested time.Duration
}

// Clamped reports whether the request was forced up to the one-second floor.
func (d LeaseDecision) Clamped() bool {
	return d.Source == LeaseSourceClamped
}

// Resolve turns a requested duration into whole seconds. Zero means "use the
// default"; negative and sub-second requests clamp to one second.
func (p *LeasePolicy) Resolve(request time.Duration) LeaseDecision {
	decision := LeaseDecision{Requested: request}
	if p == nil {
		decision.Source = LeaseSourceDefault
		return decision
	}

	if request == 0 {
		decision.Seconds, _ = wholeSeconds(p.defaultLease)
		decision.Source = LeaseSourceDefault
		return decision
	}

	seconds, clamped := wholeSeconds(request)
	decision.Seconds = seconds
	decision.Source = LeaseSourceExplicit
	if clamped {
		decision.Source = LeaseSourceClamped
	}
	return decision
}

// wholeSeconds truncates to seconds, clamping into [1, MaxInt].
func wholeSeconds(d time.Duration) (int, bool) {
	seconds := int64(d / time.Second)
	switch {
	case seconds < 1:
		return 1, true
	case seconds > int64(math.MaxInt):
		return math.MaxInt, true
	}
	return int(seconds), false
}
