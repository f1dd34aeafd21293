package connection

import (
	"sync"
	"time"
)

// Timer is a scheduled task that can be cancelled.
type Timer interface {
	// Stop cancels the task. It reports whether the call stopped a task
	// that had not yet run (or, for periodic tasks, was still active).
	Stop() bool
}

// Scheduler runs one-shot and periodic tasks. Tasks run on their own
// goroutine and must not assume any particular one.
type Scheduler interface {
	// Schedule runs fn once after d.
	Schedule(d time.Duration, fn func()) Timer

	// Every runs fn every interval, first after one interval, until the
	// returned Timer is stopped.
	Every(interval time.Duration, fn func()) Timer
}

// TimeScheduler is a Scheduler backed by time.AfterFunc.
type TimeScheduler struct{}

// NewTimeScheduler returns a Scheduler backed by the runtime timers.
func NewTimeScheduler() *TimeScheduler {
	return &TimeScheduler{}
}

// Schedule runs fn once after d.
func (TimeScheduler) Schedule(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// Every runs fn every interval until stopped.
func (TimeScheduler) Every(interval time.Duration, fn func()) Timer {
	p := &periodic{interval: interval, fn: fn}
	p.mu.Lock()
	p.timer = time.AfterFunc(interval, p.run)
	p.mu.Unlock()
	return p
}

// periodic re-arms itself after each run, so a slow fn never overlaps
// with its next run.
type periodic struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	timer    *time.Timer
	stopped  bool
}

func (p *periodic) run() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.fn()

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.stopped {
		p.timer = time.AfterFunc(p.interval, p.run)
	}
}

func (p *periodic) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	p.stopped = true
	p.timer.Stop()
	return true
}

// Slot holds at most one pending task. Scheduling a new task cancels the
// previous one, and a cancelled task never runs even if its timer already
// fired and is waiting for the lock.
type Slot struct {
	mu    sync.Mutex
	gen   uint64
	timer Timer
}

// Schedule replaces the held task with fn, run once after d.
func (s *Slot) Schedule(sched Scheduler, d time.Duration, fn func()) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.timer
	s.timer = sched.Schedule(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// Every replaces the held task with fn, run every interval until stopped.
func (s *Slot) Every(sched Scheduler, interval time.Duration, fn func()) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	prev := s.timer
	s.timer = sched.Every(interval, func() {
		s.mu.Lock()
		current := s.gen == gen
		s.mu.Unlock()
		if current {
			fn()
		}
	})
	s.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// Stop cancels the held task. It reports whether a task was pending.
func (s *Slot) Stop() bool {
	s.mu.Lock()
	s.gen++
	prev := s.timer
	s.timer = nil
	s.mu.Unlock()

	if prev == nil {
		return false
	}
	prev.Stop()
	return true
}

// Active reports whether a task is pending.
func (s *Slot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
