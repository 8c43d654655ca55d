package services

import (
	"time"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// ProgressObserver receives progress updates of a monthly auto-assign run
type ProgressObserver interface {
	OnProgress(progress model.Progress)
}

// ProgressFunc adapts a function to a ProgressObserver
type ProgressFunc func(progress model.Progress)

// OnProgress calls f(progress)
func (f ProgressFunc) OnProgress(progress model.Progress) {
	f(progress)
}

// ChannelObserver forwards progress to a channel without blocking the run.
// Updates are dropped while the channel is full.
type ChannelObserver chan model.Progress

// OnProgress sends progress if the channel has room
func (c ChannelObserver) OnProgress(progress model.Progress) {
	select {
	case c <- progress:
	default:
	}
}

// progressReporter throttles updates to at most one per interval
type progressReporter struct {
	observer ProgressObserver
	interval time.Duration
	now      func() time.Time
	last     time.Time
	sent     bool
}

func newProgressReporter(observer ProgressObserver, interval time.Duration) *progressReporter {
	return &progressReporter{
		observer: observer,
		interval: interval,
		now:      time.Now,
	}
}

// report forwards progress unless one was sent less than interval ago
func (r *progressReporter) report(progress model.Progress) {
	if r.observer == nil {
		return
	}
	now := r.now()
	if r.sent && now.Sub(r.last) < r.interval {
		return
	}
	r.last = now
	r.sent = true
	r.observer.OnProgress(progress)
}

// flush forwards progress unconditionally
func (r *progressReporter) flush(progress model.Progress) {
	if r.observer == nil {
		return
	}
	r.last = r.now()
	r.sent = true
	r.observer.OnProgress(progress)
}
