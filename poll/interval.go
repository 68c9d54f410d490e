package poll

import (
	"math"
	"time"
)

// Interval is an interface for calculating the delay between attempts.
// Different strategies can be implemented to control attempt spacing.
type Interval interface {
	// Next calculates the duration to wait before the next attempt.
	// The attempt parameter is zero-indexed (0 for the first attempt).
	Next(attempt uint) time.Duration
}

// FixedInterval spaces every attempt by the same duration. This is the
// default strategy and mirrors classic fixed-sleep polling.
type FixedInterval time.Duration

// Next returns the fixed delay regardless of the attempt number.
func (f FixedInterval) Next(uint) time.Duration {
	return time.Duration(f)
}

// ExpInterval implements exponentially growing spacing with configurable
// parameters. The delay grows with each attempt: Base * Factor^attempt,
// clamped between Base and Max. Useful for waits where the condition usually
// flips quickly but can occasionally take much longer.
//
// Example:
//
//	strategy := poll.ExpInterval{
//	    Base:   time.Second,      // Start with 1s
//	    Max:    30 * time.Second, // Cap at 30s
//	    Factor: 2.0,              // Double each time
//	}
//	// Delays: 1s, 2s, 4s, 8s, 16s, 30s, 30s, ...
type ExpInterval struct {
	// Base is the initial delay duration.
	Base time.Duration
	// Max is the maximum delay duration (cap).
	Max time.Duration
	// Factor is the multiplier applied to each successive delay (e.g., 2.0 for doubling).
	Factor float64
}

// Next calculates the exponential delay for the given attempt.
// The formula is: Base * Factor^attempt, clamped between Base and Max.
func (e ExpInterval) Next(attempt uint) time.Duration {
	f := float64(e.Base) * math.Pow(e.Factor, float64(attempt))

	d := time.Duration(f)
	if d < e.Base {
		return e.Base
	} else if d > e.Max {
		return e.Max
	}

	return d
}
