package contracts

import "time"

// Timer is a cancellable scheduled task. Cancel is exactly-once and
// race-tolerant: cancelling a fired or already-cancelled timer is a
// no-op, never an error. It reports whether the fire was prevented.
type Timer interface {
	Cancel() bool
}

// Scheduler arms the ring timeout. Tests substitute a fake that fires
// on demand.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Timer
}
