package mask

import (
	"image"
	"testing"
)

func checkNoiseVariation(t *testing.T, noise *image.Gray) {
	width := noise.Bounds().Dx()
	height := noise.Bounds().Dy()
	firstPixel := noise.GrayAt(0, 0).Y
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if noise.GrayAt(x, y).Y != firstPixel {
				return
			}
		}
	}
	t.Error("noise should have variation, but all pixels are the same")
}

func TestGeneratePerlinNoise(t *testing.T) {
	noise1 := GeneratePerlinNoise(128, 128, 30.0, 42)
	noise2 := GeneratePerlinNoise(128, 128, 30.0, 42)

	if noise1.Bounds().Dx() != 128 || noise1.Bounds().Dy() != 128 {
		t.Fatalf("dimensions incorrect: got %v", noise1.Bounds())
	}

	checkNoiseVariation(t, noise1)

	for i := range noise1.Pix {
		if noise1.Pix[i] != noise2.Pix[i] {
			t.Fatalf("same seed should produce same noise at byte %d", i)
		}
	}
}

func TestNoiseShape(t *testing.T) {
	m := NoiseShape(64, 64, 12, 7, 96)

	inside := m.Count()
	if inside == 0 || inside == len(m.Inside) {
		t.Fatalf("expected a mixed mask, got %d/%d inside", inside, len(m.Inside))
	}

	// corners are far from the center falloff and stay outside
	if m.At(0, 0) || m.At(63, 63) {
		t.Error("corners should be outside the blob")
	}

	again := NoiseShape(64, 64, 12, 7, 96)
	for i := range m.Inside {
		if m.Inside[i] != again.Inside[i] {
			t.Fatalf("NoiseShape is not deterministic at %d", i)
		}
	}
}
