package sdf

import (
	"image"
	"math"

	"github.com/MeKo-Tech/imagetools/internal/mask"
)

// Rasterize maps squared boundary distances to an 8-bit signed distance
// image. The boundary sits at 128; inside pixels darken and outside pixels
// brighten by 128/maxDistance per pixel of distance, saturating at 0 and 255.
// Pixels with an infinite distance (no seed) saturate by class: 0 inside,
// 255 outside. Gray is written to R, G and B; alpha is always 255.
func Rasterize(dist2 []float64, m *mask.Mask, maxDistance float64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))

	for y := 0; y < m.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			inside := m.Inside[i]

			var v uint8
			if math.IsInf(dist2[i], 1) {
				if !inside {
					v = 255
				}
			} else {
				sign := 1.0
				if inside {
					sign = -1.0
				}
				d := math.Sqrt(dist2[i])
				v = clampToByte(128 + sign*d*128/maxDistance)
			}

			p := row[x*4 : x*4+4 : x*4+4]
			p[0], p[1], p[2], p[3] = v, v, v, 255
		}
	}

	return img
}

// clampToByte clamps to [0,255] and rounds half to even; NaN becomes 0.
func clampToByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}
