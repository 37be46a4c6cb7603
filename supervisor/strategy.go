package supervisor

import (
	"time"
)

// RestartPolicy selects how a supervised child reacts to failure.
type RestartPolicy string

const (
	RestartNever              RestartPolicy = "never"
	RestartAlways             RestartPolicy = "always"
	RestartMaxRetries         RestartPolicy = "max-retries"
	RestartExponentialBackoff RestartPolicy = "exponential-backoff"
)

// RestartStrategy is a tagged restart policy; use the constructors below.
type RestartStrategy struct {
	Policy     RestartPolicy `json:"policy" yaml:"policy"`
	MaxRetries int           `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
	BaseDelay  time.Duration `json:"baseDelay,omitempty" yaml:"baseDelay,omitempty"`
	MaxDelay   time.Duration `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
}

// Never abandons a child on its first failure.
func Never() RestartStrategy {
	return RestartStrategy{Policy: RestartNever}
}

// Always restarts a child on every failure, with no delay.
func Always() RestartStrategy {
	return RestartStrategy{Policy: RestartAlways}
}

// MaxRetries restarts a child at most maxRetries times, with no delay.
func MaxRetries(maxRetries int) RestartStrategy {
	return RestartStrategy{Policy: RestartMaxRetries, MaxRetries: maxRetries}
}

// ExponentialBackoff restarts at most maxRetries times, delaying
// baseDelay * 2^restartCount, clamped to maxDelay.
func ExponentialBackoff(maxRetries int, baseDelay, maxDelay time.Duration) RestartStrategy {
	return RestartStrategy{
		Policy:     RestartExponentialBackoff,
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   maxDelay,
	}
}

// ShouldRestart reports whether a child with the given restart count is still
// eligible for a restart.
func (s RestartStrategy) ShouldRestart(restartCount int) bool {
	switch s.Policy {
	case RestartAlways:
		return true
	case RestartMaxRetries, RestartExponentialBackoff:
		return restartCount < s.MaxRetries
	default:
		return false
	}
}

// Delay returns the wait before the restartCount-th restart.  Only the
// exponential-backoff policy delays.
func (s RestartStrategy) Delay(restartCount int) time.Duration {
	if s.Policy != RestartExponentialBackoff || s.BaseDelay <= 0 {
		return 0
	}
	delay := s.BaseDelay
	for i := 0; i < restartCount; i++ {
		delay *= 2
		if s.MaxDelay > 0 && delay >= s.MaxDelay {
			return s.MaxDelay
		}
		if delay <= 0 { // overflow
			return s.MaxDelay
		}
	}
	if s.MaxDelay > 0 && delay > s.MaxDelay {
		return s.MaxDelay
	}
	return delay
}

// GroupStrategy selects how the remaining children react when one child
// fails.  It is consulted by the caller orchestrating the group, not by
// HandleChildFailure itself.
type GroupStrategy string

const (
	// OneForOne restarts only the failed child.
	OneForOne GroupStrategy = "one-for-one"
	// OneForAll restarts every child.
	OneForAll GroupStrategy = "one-for-all"
	// RestForOne restarts the failed child and every child spawned after it.
	RestForOne GroupStrategy = "rest-for-one"
)
