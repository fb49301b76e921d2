package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		input   string
		want    Resolution
		wantErr bool
	}{
		{input: "original", want: Original},
		{input: "", want: Original},
		{input: "512", want: Resolution{Side: 512}},
		{input: " 64 ", want: Resolution{Side: 64}},
		{input: "0", wantErr: true},
		{input: "-8", wantErr: true},
		{input: "big", wantErr: true},
		{input: "12.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseResolution(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))

	w, h := Target(img, Original)
	assert.Equal(t, 30, w)
	assert.Equal(t, 20, h)

	w, h = Target(img, Resolution{Side: 64})
	assert.Equal(t, 64, w)
	assert.Equal(t, 64, h)
}

func TestDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, format, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDrawSameSizeCopiesPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	src.SetNRGBA(6, 5, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	out := Draw(src, 2, 1)
	assert.Equal(t, image.Rect(0, 0, 2, 1), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, out.NRGBAAt(1, 0))
}

func TestDrawTransparentReadsBackBlack(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 0})

	out := Draw(src, 1, 1)
	assert.Equal(t, color.NRGBA{}, out.NRGBAAt(0, 0))
}

func TestDrawResizes(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	out := Draw(src, 16, 16)
	assert.Equal(t, image.Rect(0, 0, 16, 16), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(7, 7))
}

func TestDecodeConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 7, 3))))

	cfg, format, err := DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 7, cfg.Width)
	assert.Equal(t, 3, cfg.Height)

	_, _, err = DecodeConfig(bytes.NewReader([]byte("nope")))
	assert.ErrorIs(t, err, ErrDecode)
}
