package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter reports progress for long-running operations such as
// bulk evidence export.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const barWidth = 30

// SimpleProgress draws a single-line progress bar with an estimated time
// remaining. Safe for concurrent use.
type SimpleProgress struct {
	mu      sync.Mutex
	w       io.Writer
	total   int64
	current int64
	started time.Time
}

// NewProgressReporter returns a reporter writing to w, or os.Stdout when w
// is nil.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &SimpleProgress{w: w}
}

func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
	p.started = time.Now()
	p.draw()
}

func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.draw()
}

// Finish completes the bar and moves off the progress line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.draw()
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

// Error breaks out of the progress line and reports err.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "\nexport failed: %v\n", err)
}

// draw repaints the progress line. Callers hold p.mu. A zero total draws
// nothing so exports that match no records stay quiet.
func (p *SimpleProgress) draw() {
	if p.total <= 0 {
		return
	}
	frac := float64(p.current) / float64(p.total)
	if frac > 1 {
		frac = 1
	}

	filled := int(frac * barWidth)
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}

	line := fmt.Sprintf("\r[%s] %5.1f%%  %d/%d records", bar, frac*100, p.current, p.total)
	if eta := p.remaining(frac); eta > 0 {
		line += fmt.Sprintf("  ~%s left", eta.Round(time.Second))
	}
	fmt.Fprint(p.w, line)
}

// remaining projects time left from throughput so far.
func (p *SimpleProgress) remaining(frac float64) time.Duration {
	if frac <= 0 || frac >= 1 {
		return 0
	}
	elapsed := time.Since(p.started)
	return time.Duration(float64(elapsed)/frac) - elapsed
}
