package connection

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Scheduler driven by Advance instead of the clock.
// Tasks run synchronously on the goroutine calling Advance, in due order.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	s        *ManualScheduler
	seq      uint64
	due      time.Duration
	interval time.Duration
	fn       func()
	stopped  bool
}

// NewManualScheduler creates a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule runs fn once when the clock passes d from now.
func (m *ManualScheduler) Schedule(d time.Duration, fn func()) Timer {
	return m.add(d, 0, fn)
}

// Every runs fn each time the clock passes another interval.
func (m *ManualScheduler) Every(interval time.Duration, fn func()) Timer {
	return m.add(interval, interval, fn)
}

func (m *ManualScheduler) add(d, interval time.Duration, fn func()) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTask{s: m, seq: m.seq, due: m.now + d, interval: interval, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every task that falls due,
// including tasks scheduled by tasks run during the same call.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.due
		if t.interval > 0 {
			t.due += t.interval
		} else {
			t.stopped = true
			m.remove(t)
		}
		m.mu.Unlock()

		t.fn()
	}
}

// Pending returns the number of tasks not yet run or stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Now returns the elapsed manual time.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualScheduler) nextDue(target time.Duration) *manualTask {
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due != m.tasks[j].due {
			return m.tasks[i].due < m.tasks[j].due
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].due > target {
		return nil
	}
	return m.tasks[0]
}

func (m *ManualScheduler) remove(t *manualTask) {
	for i, other := range m.tasks {
		if other == t {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

func (t *manualTask) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.s.remove(t)
	return true
}
