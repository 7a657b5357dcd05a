package contracts

import (
	"context"
	"time"
)

// PresenceStore mirrors the online flag into redis so other nodes and
// sidecar services can read reachability without touching postgres.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string, lastSeen time.Time) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}
