package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// Tracker draws a single progress bar over all lookups.
type Tracker struct {
	bar       progress.Model
	out       io.Writer
	total     int
	processed int
	current   string
	mu        sync.Mutex
}

// New creates a tracker writing to stderr.
func New() *Tracker {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a tracker writing to out.
func NewWithWriter(out io.Writer) *Tracker {
	return &Tracker{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		out: out,
	}
}

// SetTotal sets the number of lookups in the run.
func (p *Tracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// Start marks label as the lookup in flight.
func (p *Tracker) Start(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = label
	p.draw()
}

// Advance counts one finished lookup.
func (p *Tracker) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	p.draw()
}

// Done ends the bar line.
func (p *Tracker) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total > 0 {
		fmt.Fprintln(p.out)
	}
}

// percent is the finished share of the run. Callers hold mu.
func (p *Tracker) percent() float64 {
	if p.total == 0 {
		return 0
	}
	return float64(p.processed) / float64(p.total)
}

func (p *Tracker) draw() {
	if p.total == 0 {
		return
	}
	fmt.Fprintf(p.out, "\r%s %d/%d %-40.40s",
		p.bar.ViewAs(p.percent()),
		p.processed,
		p.total,
		p.current)
}
