package mask

import (
	"image"
	"image/color"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/disintegration/gift"
)

// GeneratePerlinNoise generates a grayscale Perlin noise texture.
// scale controls the frequency of the noise (smaller = more detail).
func GeneratePerlinNoise(width, height int, scale float64, seed int64) *image.Gray {
	// alpha 2, beta 2, three octaves
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	noise := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			val := p.Noise2D(float64(x)/scale, float64(y)/scale)

			normalized := (val + 1.0) / 2.0
			gray := uint8(math.Max(0, math.Min(255, normalized*255)))

			noise.SetGray(x, y, color.Gray{Y: gray})
		}
	}

	return noise
}

// NoiseShape builds an organic blob mask: a centered radial falloff is
// perturbed by Perlin noise, softened, and thresholded at level (0..255).
// Identical arguments always produce the identical mask.
func NoiseShape(width, height int, scale float64, seed int64, level uint8) *Mask {
	noise := GeneratePerlinNoise(width, height, scale, seed)

	cx := float64(width-1) / 2
	cy := float64(height-1) / 2
	radius := math.Min(cx, cy)
	if radius <= 0 {
		radius = 1
	}

	field := image.NewGray(noise.Bounds())
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / radius
			falloff := math.Max(0, 1-d) * 255
			n := (float64(noise.GrayAt(x, y).Y) - 128) * 0.5
			v := math.Max(0, math.Min(255, falloff+n))
			field.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}

	soft := image.NewGray(field.Bounds())
	gift.New(gift.GaussianBlur(1.5)).Draw(soft, field)

	m := New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Set(x, y, soft.GrayAt(x, y).Y >= level)
		}
	}
	return m
}
