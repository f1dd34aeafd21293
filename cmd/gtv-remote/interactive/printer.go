package interactive

import (
	"fmt"
	"io"
	"sync"

	"github.com/gtv-remote/gtv-go/pkg/connection"
	"github.com/gtv-remote/gtv-go/pkg/session"
)

// StatusUpdate is one UpdateStatus call.
type StatusUpdate struct {
	Status      session.Status
	Detail      session.StatusDetail
	Description string
}

// Printer is a session.Callback that prints device updates. Status updates
// are also delivered on Statuses for commands waiting on an outcome.
type Printer struct {
	thingID string

	mu  sync.Mutex
	out io.Writer

	statuses chan StatusUpdate
}

var _ session.Callback = (*Printer)(nil)

// NewPrinter creates a printer for thingID writing to out.
func NewPrinter(thingID string, out io.Writer) *Printer {
	return &Printer{
		thingID:  thingID,
		out:      out,
		statuses: make(chan StatusUpdate, 16),
	}
}

// SetOutput redirects printing, e.g. to a console once it exists.
func (p *Printer) SetOutput(out io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = out
}

// Statuses delivers status updates. Updates are dropped while nobody reads.
func (p *Printer) Statuses() <-chan StatusUpdate {
	return p.statuses
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) UpdateProperty(name, value string) {
	p.printf("[property] %s = %s\n", name, value)
}

func (p *Printer) UpdateChannel(channel, value string) {
	p.printf("[%s] %s\n", channel, value)
}

func (p *Printer) UpdateStatus(status session.Status, detail session.StatusDetail, description string) {
	if description != "" {
		p.printf("[status] %s %s: %s\n", status, detail, description)
	} else {
		p.printf("[status] %s %s\n", status, detail)
	}
	select {
	case p.statuses <- StatusUpdate{Status: status, Detail: detail, Description: description}:
	default:
	}
}

// Scheduler returns nil so sessions use runtime timers.
func (p *Printer) Scheduler() connection.Scheduler { return nil }

func (p *Printer) ThingID() string { return p.thingID }
