package generation

import "time"

// RetryBackoff computes the delay before a failed batch is re-enqueued:
// base * 2^retryCount, so with the default 5s base the schedule is 5s, 10s,
// 20s for retries 1 through 3.
type RetryBackoff struct {
	base time.Duration
}

// NewRetryBackoff constructs a RetryBackoff. Non-positive bases fall back to
// five seconds.
func NewRetryBackoff(base time.Duration) RetryBackoff {
	if base <= 0 {
		base = 5 * time.Second
	}
	return RetryBackoff{base: base}
}

// Delay returns the backoff before re-enqueueing a batch that has already
// failed retryCount times. Negative counts are treated as zero; the shift is
// capped to keep the result from overflowing on absurd counts.
func (b RetryBackoff) Delay(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 30 {
		retryCount = 30
	}
	return b.base << uint(retryCount)
}
