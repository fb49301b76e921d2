package job

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/MeKo-Tech/imagetools/internal/mask"
	"github.com/MeKo-Tech/imagetools/internal/raster"
	"github.com/MeKo-Tech/imagetools/internal/sdf"
)

// Progress checkpoints emitted before the engine takes over.
const (
	ProgressDrawn  = 5
	ProgressMasked = 15
)

// Tracker forwards events while keeping progress non-decreasing, reporting
// 100 at most once, and dropping everything after the terminal event.
type Tracker struct {
	emit func(Event)
	mu   sync.Mutex
	last int
	done bool
}

// NewTracker wraps emit; a nil emit discards events.
func NewTracker(emit func(Event)) *Tracker {
	if emit == nil {
		emit = func(Event) {}
	}
	return &Tracker{emit: emit, last: -1}
}

// Emit forwards e unless it would break the stream rules. It reports
// whether the event was forwarded.
func (t *Tracker) Emit(e Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return false
	}
	if p, ok := e.(Progress); ok {
		if p.Percent < t.last || (p.Percent == sdf.ProgressComplete && t.last == sdf.ProgressComplete) {
			return false
		}
		t.last = p.Percent
	}
	if Terminal(e) {
		t.done = true
	}
	t.emit(e)
	return true
}

// Run converts img into a signed distance field on the calling goroutine.
// It emits progress 5 after drawing, 15 after masking, the engine's pass
// progress, 100, and finally exactly one Result. Any failure is reported
// once as a Failure event and returned; no partial result is produced.
func Run(img image.Image, p Params, emit func(Event)) (out *image.NRGBA, err error) {
	t := NewTracker(emit)

	if err := p.Validate(); err != nil {
		t.Emit(Failure{Err: err})
		return nil, err
	}
	if img == nil {
		err := fmt.Errorf("%w: no image", ErrInvalidParameter)
		t.Emit(Failure{Err: err})
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrCompute, r)
			t.Emit(Failure{Err: err})
		}
	}()

	w, h := raster.Target(img, p.Resolution)
	canvas := raster.Draw(img, w, h)
	t.Emit(Progress{Percent: ProgressDrawn})

	m := mask.Build(canvas, p.Threshold, p.Invert)
	t.Emit(Progress{Percent: ProgressMasked})

	field := sdf.Compute(m, p.MaxDistance, sdf.Options{
		Observer: sdf.ObserverFunc(func(percent int) {
			t.Emit(Progress{Percent: percent})
		}),
		Method:  p.Method,
		Mode:    p.Mode,
		Workers: p.Workers,
	})

	t.Emit(Result{Image: field})
	return field, nil
}

// Start validates p synchronously and then runs the conversion on its own
// goroutine, delivering events on the returned channel. The channel is
// closed after the terminal event. Once ctx is done further events are
// dropped; the computation itself runs to completion in the background.
func Start(ctx context.Context, img image.Image, p Params) (<-chan Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidParameter)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		_, _ = Run(img, p, func(e Event) {
			select {
			case events <- e:
			case <-ctx.Done():
			}
		})
	}()
	return events, nil
}

// Wait drains events and returns the result image or the failure.
func Wait(events <-chan Event) (*image.NRGBA, error) {
	for e := range events {
		switch ev := e.(type) {
		case Progress:
		case Result:
			return ev.Image, nil
		case Failure:
			return nil, ev.Err
		}
	}
	return nil, errors.New("event stream closed without a result")
}
