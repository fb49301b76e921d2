// Package gradient bakes lists of color gradients into a 256x256 lookup
// texture and stores the editable gradient state inside the PNG itself.
package gradient

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Size is the side length of a baked texture.
const Size = 256

// DefaultRowHeight is the number of rows each gradient occupies.
const DefaultRowHeight = 16

// Interpolation names.
const (
	InterpolationLinear  = "linear"
	InterpolationBSpline = "bspline"
)

// Stop is a color at a position in [0,1].
type Stop struct {
	Color string  `json:"color"`
	Pos   float64 `json:"pos"`
}

// Gradient is one row band of the texture.
type Gradient struct {
	Interpolation string `json:"interpolation"`
	Stops         []Stop `json:"stops"`
}

// Settings control the texture layout.
type Settings struct {
	Comments  string `json:"comments"`
	RowHeight int    `json:"rowHeight"`
	InvertY   bool   `json:"invertY"`
}

// State is the full editable document.
type State struct {
	Gradients []Gradient `json:"gradients"`
	Settings  Settings   `json:"settings"`
}

// NewState returns an empty document with default settings.
func NewState() State {
	return State{
		Gradients: []Gradient{},
		Settings:  Settings{RowHeight: DefaultRowHeight},
	}
}

// Validate checks stop colors and positions and the row height.
func (s State) Validate() error {
	if s.Settings.RowHeight <= 0 {
		return fmt.Errorf("row height must be positive, got %d", s.Settings.RowHeight)
	}
	for i, g := range s.Gradients {
		switch g.Interpolation {
		case "", InterpolationLinear, InterpolationBSpline:
		default:
			return fmt.Errorf("gradient %d: unknown interpolation %q", i, g.Interpolation)
		}
		for j, st := range g.Stops {
			if _, err := ParseHex(st.Color); err != nil {
				return fmt.Errorf("gradient %d stop %d: %w", i, j, err)
			}
			if math.IsNaN(st.Pos) || st.Pos < 0 || st.Pos > 1 {
				return fmt.Errorf("gradient %d stop %d: position %v outside [0,1]", i, j, st.Pos)
			}
		}
	}
	return nil
}

// ParseHex parses "#rrggbb" (the leading # is optional).
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type rgb struct{ r, g, b float64 }

func stopColor(s Stop) rgb {
	c, err := ParseHex(s.Color)
	if err != nil {
		return rgb{}
	}
	return rgb{float64(c.R), float64(c.G), float64(c.B)}
}

func sorted(stops []Stop) []Stop {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b Stop) int {
		switch {
		case a.Pos < b.Pos:
			return -1
		case a.Pos > b.Pos:
			return 1
		default:
			return 0
		}
	})
	return out
}

// roundByte rounds half up and clamps to a byte.
func roundByte(v float64) uint8 {
	v = math.Floor(v + 0.5)
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

func opaque(c rgb) color.NRGBA {
	return color.NRGBA{R: roundByte(c.r), G: roundByte(c.g), B: roundByte(c.b), A: 255}
}

// Linear interpolates between the two stops around t. Outside the stop
// range the nearest end stop's color is used. No stops yield black.
func Linear(stops []Stop, t float64) color.NRGBA {
	if len(stops) == 0 {
		return color.NRGBA{A: 255}
	}
	s := sorted(stops)
	if len(s) == 1 {
		return opaque(stopColor(s[0]))
	}

	t = clamp01(t)
	first, last := s[0], s[len(s)-1]
	if t <= first.Pos {
		return opaque(stopColor(first))
	}
	if t >= last.Pos {
		return opaque(stopColor(last))
	}

	a, b := first, last
	for i := 0; i < len(s)-1; i++ {
		if t >= s[i].Pos && t <= s[i+1].Pos {
			a, b = s[i], s[i+1]
			break
		}
	}

	local := 0.0
	if r := b.Pos - a.Pos; r != 0 {
		local = (t - a.Pos) / r
	}
	ca, cb := stopColor(a), stopColor(b)
	return opaque(rgb{
		r: lerp(ca.r, cb.r, local),
		g: lerp(ca.g, cb.g, local),
		b: lerp(ca.b, cb.b, local),
	})
}

// Spline evaluates a Catmull-Rom curve through the stop colors, spacing the
// stops evenly over [0,1] in position order. With fewer than two stops it
// falls back to Linear.
func Spline(stops []Stop, t float64) color.NRGBA {
	if len(stops) < 2 {
		return Linear(stops, t)
	}
	s := sorted(stops)
	n := len(s)

	t = clamp01(t) * float64(n-1)
	i := int(math.Floor(t))
	local := t - float64(i)

	at := func(k int) rgb {
		return stopColor(s[min(max(k, 0), n-1)])
	}
	p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)

	return opaque(rgb{
		r: catmullRom(p0.r, p1.r, p2.r, p3.r, local),
		g: catmullRom(p0.g, p1.g, p2.g, p3.g, local),
		b: catmullRom(p0.b, p1.b, p2.b, p3.b, local),
	})
}

func catmullRom(c0, c1, c2, c3, t float64) float64 {
	v0 := (c2 - c0) * 0.5
	v1 := (c3 - c1) * 0.5
	t2 := t * t
	t3 := t2 * t
	return (2*c1-2*c2+v0+v1)*t3 + (-3*c1+3*c2-2*v0-v1)*t2 + v0*t + c1
}

func lerp(a, b, t float64) float64 { return a*(1-t) + b*t }

func clamp01(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return min(max(t, 0), 1)
}

// Eval samples g at t using its interpolation.
func (g Gradient) Eval(t float64) color.NRGBA {
	if g.Interpolation == InterpolationBSpline {
		return Spline(g.Stops, t)
	}
	return Linear(g.Stops, t)
}

// Bake renders the state into a Size x Size texture. Gradient i fills rows
// [i*RowHeight, (i+1)*RowHeight) counted from the bottom edge, or from the
// top when InvertY is set. Gradients past the last row are dropped and
// unused rows stay transparent.
func Bake(s State) (*image.NRGBA, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	rh := s.Settings.RowHeight

	for i, g := range s.Gradients {
		offset := i * rh
		if offset >= Size {
			break
		}

		row := make([]byte, Size*4)
		for x := 0; x < Size; x++ {
			c := g.Eval(float64(x) / (Size - 1))
			copy(row[x*4:], []byte{c.R, c.G, c.B, c.A})
		}

		for dy := 0; dy < rh && offset+dy < Size; dy++ {
			y := Size - 1 - (offset + dy)
			if s.Settings.InvertY {
				y = offset + dy
			}
			copy(img.Pix[y*img.Stride:], row)
		}
	}

	return img, nil
}
