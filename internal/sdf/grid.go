package sdf

import (
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/imagetools/internal/mask"
)

// Seed is the coordinate of the boundary pixel currently believed nearest to a cell.
type Seed struct {
	X, Y int32
}

var noSeed = Seed{X: -1, Y: -1}

// Valid reports whether the cell holds a seed.
func (s Seed) Valid() bool {
	return s.X >= 0
}

func (s Seed) distSq(x, y int) int64 {
	dx := int64(x) - int64(s.X)
	dy := int64(y) - int64(s.Y)
	return dx*dx + dy*dy
}

// Mode selects how a pass reads and writes the propagation grid.
type Mode int

const (
	// ModeInPlace mutates a single grid during a pass: pixels later in
	// row-major order observe updates made earlier in the same pass.
	ModeInPlace Mode = iota
	// ModeDoubleBuffered reads the previous generation and writes a new one,
	// so the result does not depend on scan order and rows can be swept in
	// parallel.
	ModeDoubleBuffered
)

func (m Mode) String() string {
	switch m {
	case ModeInPlace:
		return "inplace"
	case ModeDoubleBuffered:
		return "double"
	default:
		return "unknown"
	}
}

// Grid is the per-pixel nearest-seed table refined by jump flooding.
type Grid struct {
	cells  []Seed
	Width  int
	Height int
}

// NewGrid seeds every boundary pixel of m with its own coordinate. All other
// cells start empty.
func NewGrid(m *mask.Mask) *Grid {
	g := &Grid{
		Width:  m.Width,
		Height: m.Height,
		cells:  make([]Seed, m.Width*m.Height),
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.IsBoundary(x, y) {
				g.cells[y*m.Width+x] = Seed{X: int32(x), Y: int32(y)}
			} else {
				g.cells[y*m.Width+x] = noSeed
			}
		}
	}
	return g
}

// At returns the seed stored for (x, y).
func (g *Grid) At(x, y int) Seed {
	return g.cells[y*g.Width+x]
}

// PassSteps returns the jump distances of the pass schedule: max(w,h)/2,
// halved until it drops below one.
func PassSteps(width, height int) []float64 {
	var steps []float64
	step := float64(max(width, height)) / 2
	for step >= 1 {
		steps = append(steps, step)
		step /= 2
	}
	return steps
}

// jsRound rounds half toward positive infinity.
func jsRound(v float64) int {
	return int(math.Floor(v + 0.5))
}

type offset struct{ dx, dy int }

// probeOffsets returns the eight neighbour offsets for step in scan order
// (dy outer, dx inner). Since x is integral, round(x+dx*step) equals
// x + round(dx*step).
func probeOffsets(step float64) [8]offset {
	var offs [8]offset
	n := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			offs[n] = offset{dx: jsRound(float64(dx) * step), dy: jsRound(float64(dy) * step)}
			n++
		}
	}
	return offs
}

// Pass runs one jump-flooding sweep with the given step. workers only
// affects ModeDoubleBuffered; the in-place sweep is strictly sequential.
func (g *Grid) Pass(step float64, mode Mode, workers int) {
	offs := probeOffsets(step)
	if mode == ModeDoubleBuffered {
		g.passDoubleBuffered(offs, workers)
		return
	}
	g.sweepRows(g.cells, g.cells, offs, 0, g.Height)
}

func (g *Grid) passDoubleBuffered(offs [8]offset, workers int) {
	prev := g.cells
	next := make([]Seed, len(prev))
	copy(next, prev)

	if workers <= 1 || g.Height < 2 {
		g.sweepRows(prev, next, offs, 0, g.Height)
		g.cells = next
		return
	}
	if workers > g.Height {
		workers = g.Height
	}

	var eg errgroup.Group
	band := (g.Height + workers - 1) / workers
	for y0 := 0; y0 < g.Height; y0 += band {
		y1 := min(y0+band, g.Height)
		eg.Go(func() error {
			g.sweepRows(prev, next, offs, y0, y1)
			return nil
		})
	}
	_ = eg.Wait()

	g.cells = next
}

// sweepRows probes neighbours in src and records improvements in dst for
// rows [y0, y1). When src and dst are the same slice the sweep is in place.
func (g *Grid) sweepRows(src, dst []Seed, offs [8]offset, y0, y1 int) {
	w, h := g.Width, g.Height
	for y := y0; y < y1; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			for _, o := range offs {
				nx, ny := x+o.dx, y+o.dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				candidate := src[ny*w+nx]
				if !candidate.Valid() {
					continue
				}
				current := dst[i]
				if !current.Valid() || candidate.distSq(x, y) < current.distSq(x, y) {
					dst[i] = candidate
				}
			}
		}
	}
}

// SquaredDistances returns, per pixel, the squared distance to its seed or
// +Inf for pixels that never acquired one.
func (g *Grid) SquaredDistances() []float64 {
	out := make([]float64, len(g.cells))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			i := y*g.Width + x
			s := g.cells[i]
			if !s.Valid() {
				out[i] = math.Inf(1)
				continue
			}
			out[i] = float64(s.distSq(x, y))
		}
	}
	return out
}
