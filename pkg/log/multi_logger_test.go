package log

import (
	"sync"
	"testing"
	"time"
)

type captureLogger struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureLogger) Log(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &captureLogger{}, &captureLogger{}
	m := NewMultiLogger(a, nil, b, NoopLogger{})

	m.Log(Event{Timestamp: time.Now(), ConnectionID: "x"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("events = %d/%d, want 1/1", len(a.events), len(b.events))
	}
	if a.events[0].ConnectionID != "x" {
		t.Errorf("ConnectionID = %q", a.events[0].ConnectionID)
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	NewMultiLogger().Log(Event{})
	NewMultiLogger(nil).Log(Event{})
}
