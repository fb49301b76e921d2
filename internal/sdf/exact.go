package sdf

import (
	"math"

	"github.com/MeKo-Tech/imagetools/internal/mask"
)

// ExactSquaredDistances computes the exact squared Euclidean distance from
// every pixel to the nearest boundary pixel (of either class) using the
// Felzenszwalb & Huttenlocher separable transform. Pixels of a mask without
// any boundary get +Inf, matching Grid.SquaredDistances.
//
// Algorithm: O(n) with two separable 1D passes (rows, then columns) using
// the lower envelope of parabolas.
func ExactSquaredDistances(m *mask.Mask) []float64 {
	width, height := m.Width, m.Height
	temp := make([]float64, width*height)

	// Larger than any real squared distance in the raster.
	infinity := float64(width*width+height*height)*2 + 1

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if m.IsBoundary(x, y) {
				temp[y*width+x] = 0
			} else {
				temp[y*width+x] = infinity
			}
		}
	}

	rowOutput := make([]float64, width)
	for y := 0; y < height; y++ {
		row := temp[y*width : (y+1)*width]
		distanceTransform1D(row, rowOutput)
		copy(row, rowOutput)
	}

	colInput := make([]float64, height)
	colOutput := make([]float64, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			colInput[y] = temp[y*width+x]
		}
		distanceTransform1D(colInput, colOutput)
		for y := 0; y < height; y++ {
			temp[y*width+x] = colOutput[y]
		}
	}

	for i, v := range temp {
		if v >= infinity {
			temp[i] = math.Inf(1)
		}
	}
	return temp
}

// distanceTransform1D computes the squared distance transform along one
// dimension using the parabola lower envelope method.
func distanceTransform1D(input []float64, output []float64) {
	n := len(input)
	if n == 0 {
		return
	}

	// v: vertex positions of the parabolas in the lower envelope
	v := make([]int, n)
	// z: z[k] is where parabola v[k] starts being minimal
	z := make([]float64, n+1)

	k := 0
	v[0] = 0
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for q := 1; q < n; q++ {
		// intersection of the parabola from q with the rightmost envelope parabola
		var s float64
		for k >= 0 {
			s = ((input[q] + float64(q*q)) - (input[v[k]] + float64(v[k]*v[k]))) /
				(2.0 * float64(q-v[k]))

			if s <= z[k] {
				k--
			} else {
				break
			}
		}

		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < float64(q) {
			k++
		}
		dx := float64(q - v[k])
		output[q] = dx*dx + input[v[k]]
	}
}
