// Package sdf converts inside/outside masks into 8-bit signed distance
// fields using the jump flooding algorithm.
//
// A computation is a linear pipeline: boundary seeds are planted, a fixed
// schedule of passes with halving jump distance propagates the nearest seed
// to every pixel, and the resulting distances are rasterized around a
// boundary value of 128. Each call owns all of its state, so independent
// calls may run concurrently.
package sdf

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/imagetools/internal/mask"
)

// Progress checkpoints reported by Compute.
const (
	ProgressSeeded   = 25
	ProgressPerPass  = 7
	ProgressPassCap  = 90
	ProgressComplete = 100
)

// Method selects the distance algorithm.
type Method int

const (
	// MethodJFA propagates seeds with jump flooding.
	MethodJFA Method = iota
	// MethodExact computes exact distances with a separable transform.
	MethodExact
)

func (m Method) String() string {
	switch m {
	case MethodJFA:
		return "jfa"
	case MethodExact:
		return "exact"
	default:
		return "unknown"
	}
}

// ParseMethod parses "jfa" or "exact".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "jfa":
		return MethodJFA, nil
	case "exact":
		return MethodExact, nil
	default:
		return MethodJFA, fmt.Errorf("unknown method %q: must be 'jfa' or 'exact'", s)
	}
}

// ParseMode parses "inplace" or "double".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "inplace":
		return ModeInPlace, nil
	case "double":
		return ModeDoubleBuffered, nil
	default:
		return ModeInPlace, fmt.Errorf("unknown pass mode %q: must be 'inplace' or 'double'", s)
	}
}

// Observer receives progress notifications in [0,100].
type Observer interface {
	OnProgress(percent int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(percent int)

// OnProgress calls f.
func (f ObserverFunc) OnProgress(percent int) { f(percent) }

// Options configures Compute. The zero value runs the in-place JFA without
// progress reporting.
type Options struct {
	Observer Observer
	Method   Method
	Mode     Mode
	// Workers bounds the parallel row sweep of ModeDoubleBuffered.
	Workers int
}

func (o Options) notify(percent int) {
	if o.Observer != nil {
		o.Observer.OnProgress(percent)
	}
}

// Compute builds the signed distance field of m. maxDistance is the distance
// in pixels that maps to full saturation; it is not validated here and must
// be positive and finite.
func Compute(m *mask.Mask, maxDistance float64, opts Options) *image.NRGBA {
	var dist2 []float64

	switch opts.Method {
	case MethodExact:
		opts.notify(ProgressSeeded)
		dist2 = ExactSquaredDistances(m)
		opts.notify(ProgressPassCap)
	default:
		dist2 = Flood(m, opts).SquaredDistances()
	}

	field := Rasterize(dist2, m, maxDistance)
	opts.notify(ProgressComplete)
	return field
}

// Flood plants the boundary seeds of m and runs the full pass schedule,
// reporting ProgressSeeded and then one update per pass.
func Flood(m *mask.Mask, opts Options) *Grid {
	g := NewGrid(m)
	progress := ProgressSeeded
	opts.notify(progress)

	for _, step := range PassSteps(m.Width, m.Height) {
		g.Pass(step, opts.Mode, opts.Workers)
		progress += ProgressPerPass
		opts.notify(min(progress, ProgressPassCap))
	}
	return g
}
