// Package debounce provides a single-flight evaluation slot where the
// latest submission wins.
//
// Every Submit supersedes whatever came before it: a pending timer is
// stopped, the context of a run already in progress is cancelled, and a
// result is delivered only if no newer Submit happened while it was being
// computed. At most one evaluation is ever pending.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Slot delays and deduplicates evaluations of states of type S producing
// results of type R.
type Slot[S, R any] struct {
	delay   time.Duration
	run     func(context.Context, S) R
	deliver func(R)

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	running sync.WaitGroup

	// deliverMu serialises deliveries so a superseded result that passed
	// its generation check can never be delivered after a newer one.
	deliverMu sync.Mutex
}

// New returns a Slot that calls run delay after the last Submit and hands
// the result to deliver. run should return promptly once its context is
// cancelled; its result is discarded in that case.
func New[S, R any](delay time.Duration, run func(context.Context, S) R, deliver func(R)) *Slot[S, R] {
	return &Slot[S, R]{
		delay:   max(delay, 0),
		run:     run,
		deliver: deliver,
	}
}

// Submit schedules an evaluation of state, superseding any pending or
// running one. It is a no-op after Close.
func (s *Slot[S, R]) Submit(state S) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.gen++
	gen := s.gen
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.timer = time.AfterFunc(s.delay, func() { s.fire(ctx, gen, state) })
}

func (s *Slot[S, R]) fire(ctx context.Context, gen uint64, state S) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	result := s.run(ctx, state)
	if ctx.Err() != nil {
		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.current(gen) {
		return
	}
	s.deliver(result)
}

func (s *Slot[S, R]) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.gen
}

// stopLocked stops the pending timer and cancels the current run.
func (s *Slot[S, R]) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Cancel drops the pending evaluation, if any, without closing the slot.
func (s *Slot[S, R]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.stopLocked()
}

// Close cancels pending work, waits for a running evaluation to return and
// disables the slot. Nothing is delivered after Close returns.
func (s *Slot[S, R]) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopLocked()
	s.mu.Unlock()

	s.running.Wait()
}
