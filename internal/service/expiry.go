package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a pending single-shot callback.
type Timer interface {
	Stop() bool
}

// Clock arms single-shot callbacks. f must run on its own goroutine, never
// inside AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ExpiryScheduler removes labels from their document after a fixed lifetime.
type ExpiryScheduler struct {
	clock   Clock
	pending atomic.Int64
}

// NewExpiryScheduler uses the wall clock when clock is nil.
func NewExpiryScheduler(clock Clock) *ExpiryScheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &ExpiryScheduler{clock: clock}
}

type removal struct {
	s       *ExpiryScheduler
	ctx     context.Context
	doc     LabelRemover
	labelID string

	mu    sync.Mutex
	timer Timer
	stop  func() bool
	done  bool
}

// ScheduleRemoval removes labelID from doc once lifetime has elapsed from
// now. Cancelling ctx drops the removal; the page is being torn down anyway.
func (s *ExpiryScheduler) ScheduleRemoval(ctx context.Context, doc LabelRemover, labelID string, lifetime time.Duration) {
	r := &removal{s: s, ctx: ctx, doc: doc, labelID: labelID}
	s.pending.Add(1)

	r.mu.Lock()
	r.timer = s.clock.AfterFunc(lifetime, r.fire)
	r.stop = context.AfterFunc(ctx, r.cancel)
	r.mu.Unlock()
}

// Pending returns the number of armed removals.
func (s *ExpiryScheduler) Pending() int {
	return int(s.pending.Load())
}

func (r *removal) finish() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return false
	}
	r.done = true
	r.s.pending.Add(-1)
	return true
}

func (r *removal) fire() {
	if !r.finish() {
		return
	}
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	stop()

	if r.ctx.Err() != nil {
		return
	}
	r.doc.RemoveLabel(r.labelID)
}

func (r *removal) cancel() {
	if !r.finish() {
		return
	}
	r.mu.Lock()
	timer := r.timer
	r.mu.Unlock()
	timer.Stop()
}
