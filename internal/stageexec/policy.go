package stageexec

import (
	"time"

	"dubline/internal/config"
)

// Policy bounds how often a job's stage sequence is attempted and how long
// the runner waits between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// DefaultPolicy mirrors the repository defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     ExponentialBackoff(2*time.Second, 30*time.Second),
	}
}

// PolicyFromConfig builds a policy from the [workflow] section.
func PolicyFromConfig(cfg config.Workflow) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	base := time.Duration(cfg.RetryBaseDelaySeconds) * time.Second
	maxDelay := time.Duration(cfg.RetryMaxDelaySeconds) * time.Second
	if base > 0 || maxDelay > 0 {
		p.Backoff = ExponentialBackoff(base, maxDelay)
	}
	return p
}

// ExponentialBackoff doubles base for each failed attempt (1-based), capped at
// maxDelay. A non-positive base disables waiting.
func ExponentialBackoff(base, maxDelay time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if base <= 0 {
			return 0
		}
		if attempt < 1 {
			attempt = 1
		}
		delay := base
		for i := 1; i < attempt; i++ {
			if maxDelay > 0 && delay > maxDelay/2 {
				return maxDelay
			}
			delay *= 2
		}
		if maxDelay > 0 && delay > maxDelay {
			return maxDelay
		}
		return delay
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
