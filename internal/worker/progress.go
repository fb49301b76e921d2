package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/MeKo-Tech/imagetools/internal/job"
)

const barWidth = 30

// Progress renders a single-line bar for a batch of conversions. Finished
// images count fully; images still converting count with the percentage
// their job last reported.
type Progress struct {
	output   io.Writer
	start    time.Time
	inFlight map[string]int // task name -> job percent
	mu       sync.Mutex

	total     int
	completed int
	failed    int
	enabled   bool
}

// NewProgress creates a progress bar writing to stderr.
func NewProgress(total int, enabled bool) *Progress {
	return &Progress{
		output:   os.Stderr,
		start:    time.Now(),
		inFlight: make(map[string]int),
		total:    total,
		enabled:  enabled,
	}
}

// Update records finished task counts; it is the pool's ProgressFunc.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed, p.total, p.failed = completed, total, failed
	p.mu.Unlock()
	p.redraw()
}

// Observe tracks the job events of one image. Terminal events drop the
// image from the in-flight set; the pool reports its completion separately.
func (p *Progress) Observe(task Task, e job.Event) {
	p.mu.Lock()
	switch ev := e.(type) {
	case job.Progress:
		p.inFlight[task.Name] = ev.Percent
	case job.Result, job.Failure:
		delete(p.inFlight, task.Name)
	}
	p.mu.Unlock()
	p.redraw()
}

// Callback returns the ProgressFunc for Config.OnProgress.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Events returns the EventFunc for Config.OnEvent.
func (p *Progress) Events() EventFunc {
	return p.Observe
}

func (p *Progress) redraw() {
	if p.enabled {
		p.Print()
	}
}

type snapshot struct {
	total, completed, failed int
	running                  int
	runningPercent           int // mean percent of the running images
	fraction                 float64
	elapsed                  time.Duration
}

func (p *Progress) snapshot() snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := snapshot{
		total:     p.total,
		completed: p.completed,
		failed:    p.failed,
		running:   len(p.inFlight),
		elapsed:   time.Since(p.start),
	}
	sum := 0
	for _, pct := range p.inFlight {
		sum += pct
	}
	if s.running > 0 {
		s.runningPercent = sum / s.running
	}
	if s.total > 0 {
		s.fraction = min(1, (float64(s.completed)+float64(sum)/100)/float64(s.total))
	}
	return s
}

// Print writes the current state, overwriting the previous line.
func (p *Progress) Print() {
	s := p.snapshot()

	filled := int(s.fraction * barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	var line strings.Builder
	fmt.Fprintf(&line, "\r[%s] %d/%d images", bar, s.completed, s.total)
	if s.running > 0 {
		fmt.Fprintf(&line, ", %d converting (%d%%)", s.running, s.runningPercent)
	}
	if s.failed > 0 {
		fmt.Fprintf(&line, " (%d failed)", s.failed)
	}
	switch {
	case s.total > 0 && s.completed >= s.total:
		fmt.Fprintf(&line, " - Done in %s", formatDuration(s.elapsed))
	case s.fraction > 0:
		eta := time.Duration(float64(s.elapsed) * (1 - s.fraction) / s.fraction)
		fmt.Fprintf(&line, " - ETA: %s", formatDuration(eta))
	}
	line.WriteString("          ")

	fmt.Fprint(p.output, line.String())
}

// Done prints the final state and a newline.
func (p *Progress) Done() {
	if p.enabled {
		p.Print()
		fmt.Fprintln(p.output)
	}
}

// Summary describes the finished batch.
func (p *Progress) Summary() string {
	s := p.snapshot()

	perImage := time.Duration(0)
	if s.completed > 0 {
		perImage = s.elapsed / time.Duration(s.completed)
	}
	return fmt.Sprintf("Converted %d/%d images (%d failed) in %s (%s per image)",
		s.completed-s.failed, s.total, s.failed, formatDuration(s.elapsed), perImage.Round(time.Millisecond))
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
