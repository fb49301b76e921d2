package channel

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestMergeDefaults(t *testing.T) {
	out, err := Merge(Defaults(), 3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 3), out.Bounds())
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			assert.Equal(t, color.NRGBA{A: 255}, out.NRGBAAt(x, y))
		}
	}
}

func TestMergeSwizzlesChannels(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	sources := Defaults()
	sources[0] = Source{Image: src, Channel: B}
	sources[1] = Source{Image: src, Channel: R}
	sources[2] = Source{Image: src, Channel: G, Invert: true}
	sources[3] = Constant(0.5)

	out, err := Merge(sources, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 30, G: 10, B: 235, A: 128}, out.NRGBAAt(2, 1))
}

func TestMergeResizesSources(t *testing.T) {
	src := solid(2, 2, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	sources := Defaults()
	sources[0] = Source{Image: src, Channel: R}

	out, err := Merge(sources, 8)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), out.NRGBAAt(7, 7).R)
}

func TestMergeRejectsBadSize(t *testing.T) {
	_, err := Merge(Defaults(), 0)
	assert.Error(t, err)
}

func TestConstantByte(t *testing.T) {
	assert.Equal(t, uint8(0), constantByte(-1))
	assert.Equal(t, uint8(255), constantByte(2))
	assert.Equal(t, uint8(128), constantByte(0.5)) // 127.5 rounds to even
	assert.Equal(t, uint8(64), constantByte(0.25))
}

func TestParseSpec(t *testing.T) {
	img := solid(1, 1, color.NRGBA{A: 255})
	open := func(path string) (image.Image, error) {
		if path == "missing.png" {
			return nil, errors.New("no such file")
		}
		return img, nil
	}

	src, err := ParseSpec("0.25", A, open)
	require.NoError(t, err)
	assert.Nil(t, src.Image)
	assert.Equal(t, 0.25, src.Value)

	src, err = ParseSpec("mask.png:g", R, open)
	require.NoError(t, err)
	assert.Equal(t, G, src.Channel)
	assert.NotNil(t, src.Image)

	src, err = ParseSpec("mask.png", B, open)
	require.NoError(t, err)
	assert.Equal(t, B, src.Channel)

	src, err = ParseSpec("mask.png:A:invert", R, open)
	require.NoError(t, err)
	assert.Equal(t, A, src.Channel)
	assert.True(t, src.Invert)

	src, err = ParseSpec("C:/textures/rough.png", R, open)
	require.NoError(t, err)
	assert.Equal(t, R, src.Channel)

	_, err = ParseSpec("1.5", R, open)
	assert.Error(t, err)
	_, err = ParseSpec("missing.png", R, open)
	assert.Error(t, err)
	_, err = ParseSpec("", R, open)
	assert.Error(t, err)
}
