package worker

import (
	"bytes"
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/imagetools/internal/job"
)

func TestProgress_Update(t *testing.T) {
	p := NewProgress(10, false)

	p.Update(5, 10, 0)

	s := p.snapshot()
	if s.completed != 5 || s.total != 10 {
		t.Errorf("Expected 5/10, got %d/%d", s.completed, s.total)
	}
	if s.fraction != 0.5 {
		t.Errorf("Expected fraction 0.5, got %v", s.fraction)
	}
}

func TestProgress_ObserveCountsInFlightImages(t *testing.T) {
	p := NewProgress(4, false)
	a := Task{Name: "a"}
	b := Task{Name: "b"}

	p.Update(1, 4, 0)
	p.Observe(a, job.Progress{Percent: 50})
	p.Observe(b, job.Progress{Percent: 100})

	s := p.snapshot()
	if s.running != 2 {
		t.Fatalf("Expected 2 converting, got %d", s.running)
	}
	if s.runningPercent != 75 {
		t.Errorf("Expected mean 75%%, got %d", s.runningPercent)
	}
	// 1 finished + 0.5 + 1.0 of 4 images
	if s.fraction != 0.625 {
		t.Errorf("Expected fraction 0.625, got %v", s.fraction)
	}

	p.Observe(b, job.Result{Image: image.NewNRGBA(image.Rect(0, 0, 1, 1))})
	p.Observe(a, job.Failure{Err: errors.New("boom")})
	if s := p.snapshot(); s.running != 0 {
		t.Errorf("Expected terminal events to clear in-flight images, got %d", s.running)
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(10, true)
	p.output = &buf
	p.start = time.Now().Add(-10 * time.Second)

	p.Update(5, 10, 1)
	p.Observe(Task{Name: "shape"}, job.Progress{Percent: 46})

	output := buf.String()
	for _, want := range []string{"█", "5/10 images", "1 converting (46%)", "(1 failed)", "ETA:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output, got: %s", want, output)
		}
	}
}

func TestProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(4, false)
	p.output = &buf
	p.Update(2, 4, 0)
	p.Observe(Task{Name: "a"}, job.Progress{Percent: 5})
	p.Done()

	if buf.Len() != 0 {
		t.Errorf("Expected no output when disabled, got: %q", buf.String())
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer

	p := NewProgress(3, true)
	p.output = &buf
	p.start = time.Now().Add(-3 * time.Second)

	p.Update(3, 3, 0)
	buf.Reset()

	p.Done()

	output := buf.String()
	if !strings.Contains(output, "Done in") {
		t.Errorf("Expected 'Done in' in output, got: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("Expected output to end with newline")
	}
}

func TestProgress_Summary(t *testing.T) {
	p := NewProgress(10, false)
	p.start = time.Now().Add(-5 * time.Second)
	p.Update(10, 10, 2)

	summary := p.Summary()
	if !strings.Contains(summary, "Converted 8/10 images") {
		t.Errorf("Unexpected summary: %s", summary)
	}
	if !strings.Contains(summary, "(2 failed)") {
		t.Errorf("Expected failed count in summary: %s", summary)
	}
	if !strings.Contains(summary, "per image") {
		t.Errorf("Expected per-image time in summary: %s", summary)
	}
}

func TestProgress_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(0, true)
	p.output = &buf
	p.Print()

	if !strings.Contains(buf.String(), "0/0 images") {
		t.Errorf("Unexpected output: %s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		want string
		d    time.Duration
	}{
		{"5s", 5 * time.Second},
		{"2m5s", 2*time.Minute + 5*time.Second},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
