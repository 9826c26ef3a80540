package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const barWidth = 30

// Progress renders a single-line progress bar for a batch and keeps the
// counters needed for the final summary.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	written   uint64
	mu        sync.RWMutex
	enabled   bool
}

// NewProgress creates a new progress tracker writing to stderr.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    os.Stderr,
		enabled:   enabled,
	}
}

// Update records the completion of a task.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed, p.total, p.failed = completed, total, failed
	p.mu.Unlock()

	if p.enabled {
		p.Print()
	}
}

// AddBytes records encoded output size.
func (p *Progress) AddBytes(n int) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	p.written += uint64(n)
	p.mu.Unlock()
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

type progressStats struct {
	completed, total, failed int
	written                  uint64
	elapsed                  time.Duration
}

func (p *Progress) stats() progressStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return progressStats{
		completed: p.completed,
		total:     p.total,
		failed:    p.failed,
		written:   p.written,
		elapsed:   time.Since(p.startTime),
	}
}

// rate is images per second.
func (s progressStats) rate() float64 {
	if s.completed == 0 || s.elapsed <= 0 {
		return 0
	}
	return float64(s.completed) / s.elapsed.Seconds()
}

func (s progressStats) eta() time.Duration {
	r := s.rate()
	if r == 0 || s.completed >= s.total {
		return 0
	}
	return time.Duration(float64(s.total-s.completed)/r) * time.Second
}

func (s progressStats) bar() string {
	filled := 0
	if s.total > 0 {
		filled = min(barWidth, s.completed*barWidth/s.total)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

// Print redraws the progress line.
func (p *Progress) Print() {
	s := p.stats()

	var b strings.Builder
	fmt.Fprintf(&b, "\r[%s] %d/%d images", s.bar(), s.completed, s.total)
	if s.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", s.failed)
	}
	fmt.Fprintf(&b, " - %.1f images/sec", s.rate())
	if s.written > 0 {
		b.WriteString(" - " + humanize.Bytes(s.written))
	}
	if eta := s.eta(); eta > 0 {
		b.WriteString(" - ETA: " + formatDuration(eta))
	}
	if s.completed == s.total {
		b.WriteString(" - Done in " + formatDuration(s.elapsed))
	}
	// clear leftovers of a longer previous line
	b.WriteString(strings.Repeat(" ", 10))

	fmt.Fprint(p.output, b.String())
}

// Done prints the final progress and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished batch for the log.
func (p *Progress) Summary() string {
	s := p.stats()
	return fmt.Sprintf("Enhanced %d/%d images (%d failed, %s written) in %s (%.1f images/sec)",
		s.completed-s.failed, s.total, s.failed, humanize.Bytes(s.written), formatDuration(s.elapsed), s.rate())
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
