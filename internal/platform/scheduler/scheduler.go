// Package scheduler provides the real timer implementation behind the
// Scheduler contract; tests use a manual fake instead.
package scheduler

import (
	"sync"
	"time"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
)

type Scheduler struct{}

func New() *Scheduler { return &Scheduler{} }

var _ contracts.Scheduler = (*Scheduler)(nil)

func (s *Scheduler) Schedule(d time.Duration, fn func()) contracts.Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, fn)
	return t
}

type timer struct {
	once    sync.Once
	t       *time.Timer
	stopped bool
}

// Cancel stops the timer once; cancelling after a fire or a previous
// cancel is a harmless no-op.
func (t *timer) Cancel() bool {
	t.once.Do(func() {
		t.stopped = t.t.Stop()
	})
	return t.stopped
}
