package contracts

import (
	"context"
	"time"
)

// RateLimiter enforces the per-caller call cooldown window.
type RateLimiter interface {
	// Allow reports whether the caller may start a call now and, when
	// not, how long until the cooldown lapses.
	Allow(ctx context.Context, callerID string) (bool, time.Duration, error)
	// Record stores the caller's last-call timestamp, starting a new
	// cooldown window.
	Record(ctx context.Context, callerID string) error
}
