package pngmeta

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 2, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEncoder(t *testing.T) {
	tests := map[string]png.CompressionLevel{
		"":        png.DefaultCompression,
		"default": png.DefaultCompression,
		"speed":   png.BestSpeed,
		"best":    png.BestCompression,
		"none":    png.NoCompression,
	}
	for name, want := range tests {
		enc, err := Encoder(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, enc.CompressionLevel, name)
	}

	_, err := Encoder("fastest")
	assert.Error(t, err)
}

func TestInsertAndFindZTXt(t *testing.T) {
	data := encodeTestPNG(t)
	text := []byte(`{"gradients":[]}`)

	out, err := InsertZTXt(data, "gradient-tool-data", text)
	require.NoError(t, err)
	assert.Greater(t, len(out), len(data))

	// IEND stays last
	assert.Equal(t, data[len(data)-12:], out[len(out)-12:])

	got, ok, err := FindZTXt(out, "gradient-tool-data")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, text, got)

	// the image still decodes with the extra chunk
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, G: 8, B: 7, A: 255}, color.NRGBAModel.Convert(img.At(1, 2)))
}

func TestFindZTXtMissingKeyword(t *testing.T) {
	out, err := InsertZTXt(encodeTestPNG(t), "other", []byte("x"))
	require.NoError(t, err)

	_, ok, err := FindZTXt(out, "gradient-tool-data")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindZTXtDetectsCorruption(t *testing.T) {
	out, err := InsertZTXt(encodeTestPNG(t), "k", []byte("hello"))
	require.NoError(t, err)

	// flip a byte inside the zTXt payload
	corrupt := append([]byte(nil), out...)
	corrupt[len(corrupt)-12-6] ^= 0xff

	_, _, err = FindZTXt(corrupt, "k")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestRejectsNonPNG(t *testing.T) {
	_, _, err := FindZTXt([]byte("GIF89a"), "k")
	assert.ErrorIs(t, err, ErrNotPNG)

	_, err = InsertZTXt([]byte("GIF89a"), "k", nil)
	assert.ErrorIs(t, err, ErrNotPNG)
}

func TestInsertRejectsBadKeyword(t *testing.T) {
	data := encodeTestPNG(t)
	_, err := InsertZTXt(data, "", []byte("x"))
	assert.Error(t, err)
	_, err = InsertZTXt(data, "a\x00b", []byte("x"))
	assert.Error(t, err)
}

func TestInsertZTXtKeepsChunkOrder(t *testing.T) {
	out, err := InsertZTXt(encodeTestPNG(t), "gradient-tool-data", []byte("{}"))
	require.NoError(t, err)

	chunks, err := parseChunks(out)
	require.NoError(t, err)

	var types []string
	for _, c := range chunks {
		types = append(types, c.Type)
	}
	require.GreaterOrEqual(t, len(types), 4)
	assert.Equal(t, "IHDR", types[0])
	assert.Equal(t, []string{"zTXt", "IEND"}, types[len(types)-2:])
}
