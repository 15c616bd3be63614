package socketry

import "time"

// Backoff paces connection attempts. Delay reports how long to wait before
// the given attempt (1-based) and whether another attempt should be made at
// all.
type Backoff interface {
	Delay(attempt int) (time.Duration, bool)
}

// FixedBackoff waits the same interval between every attempt. MaxAttempts
// bounds the number of attempts; zero means unlimited.
type FixedBackoff struct {
	Interval    time.Duration
	MaxAttempts int
}

var _ Backoff = FixedBackoff{}

func (b FixedBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}
	return b.Interval, true
}

// ExponentialBackoff doubles the delay after each attempt, starting at Base
// and capped at Max. MaxAttempts bounds the number of attempts; zero means
// unlimited.
type ExponentialBackoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

var _ Backoff = ExponentialBackoff{}

func (b ExponentialBackoff) Delay(attempt int) (time.Duration, bool) {
	if b.MaxAttempts > 0 && attempt > b.MaxAttempts {
		return 0, false
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max, true
		}
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay, true
}
