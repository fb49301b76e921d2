// Package mask classifies raster pixels into inside/outside shape masks.
package mask

import (
	"image"
	"image/color"
)

// DefaultThreshold is the luminance above which a pixel counts as background.
const DefaultThreshold = 128.0

// Mask is a row-major inside/outside classification of a width x height raster.
type Mask struct {
	Inside []bool
	Width  int
	Height int
}

// New creates an all-outside mask.
func New(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Inside: make([]bool, width*height),
	}
}

// At reports whether (x, y) is inside the shape.
func (m *Mask) At(x, y int) bool {
	return m.Inside[y*m.Width+x]
}

// Set marks (x, y) as inside or outside.
func (m *Mask) Set(x, y int, inside bool) {
	m.Inside[y*m.Width+x] = inside
}

// Luminance returns the Rec. 601 luma of an 8-bit RGB triple.
func Luminance(r, g, b uint8) float64 {
	return float64(r)*0.299 + float64(g)*0.587 + float64(b)*0.114
}

// Build thresholds the luminance of every pixel of src. Pixels brighter than
// threshold are background; everything else is inside the shape. Alpha is
// ignored. With invert set the classification is flipped.
func Build(src *image.NRGBA, threshold float64, invert bool) *Mask {
	bounds := src.Bounds()
	m := New(bounds.Dx(), bounds.Dy())

	for y := 0; y < m.Height; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+m.Width*4]
		for x := 0; x < m.Width; x++ {
			p := row[x*4 : x*4+4 : x*4+4]
			background := Luminance(p[0], p[1], p[2]) > threshold
			if invert {
				background = !background
			}
			m.Inside[y*m.Width+x] = !background
		}
	}

	return m
}

// IsBoundary reports whether any 4-connected neighbour of (x, y) has a
// different classification. Out-of-bounds neighbours never trigger.
func (m *Mask) IsBoundary(x, y int) bool {
	i := y*m.Width + x
	current := m.Inside[i]

	if x > 0 && m.Inside[i-1] != current {
		return true
	}
	if x < m.Width-1 && m.Inside[i+1] != current {
		return true
	}
	if y > 0 && m.Inside[i-m.Width] != current {
		return true
	}
	if y < m.Height-1 && m.Inside[i+m.Width] != current {
		return true
	}
	return false
}

// Count returns the number of inside pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Inside {
		if v {
			n++
		}
	}
	return n
}

// Gray renders the mask as an image: inside is white (255), outside black (0).
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// FromGray converts a grayscale image into a mask; values >= 128 are inside.
func FromGray(img *image.Gray) *Mask {
	bounds := img.Bounds()
	m := New(bounds.Dx(), bounds.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Set(x, y, img.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y >= 128)
		}
	}
	return m
}
