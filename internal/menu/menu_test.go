package menu

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"tools/sdf":            "tools/sdf/index.html",
		"tools/sdf/":           "tools/sdf/index.html",
		"tools/sdf/page.html":  "tools/sdf/page.html",
		"":                     "",
		"https://example.org/": "https://example.org/index.html",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), in)
	}
}

func TestLoadAndFirst(t *testing.T) {
	m, err := Load(strings.NewReader(`[
		{"category": "Empty", "items": []},
		{"items": [{"name": "Nameless"}]},
		{"category": "Image", "items": [
			{"name": "SDF", "path": "functions/image-tools/img-2-sdf"},
			{"name": "Crop", "path": "crop.html"}
		]}
	]`))
	require.NoError(t, err)
	require.Len(t, m, 3)

	first, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, "SDF", first.Name)

	n := m.Normalized()
	assert.Equal(t, "functions/image-tools/img-2-sdf/index.html", n[2].Items[0].Path)
	assert.Equal(t, "crop.html", n[2].Items[1].Path)
	// the source is left untouched
	assert.Equal(t, "functions/image-tools/img-2-sdf", m[2].Items[0].Path)
}

func TestFirstOnEmptyMenu(t *testing.T) {
	_, ok := Menu{}.First()
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menu.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"category":"A","items":[{"name":"x","path":"y"}]}]`), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Menu{{Category: "A", Items: []Item{{Name: "x", Path: "y"}}}}, m)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	first, ok := Default().First()
	require.True(t, ok)
	assert.Equal(t, "Image to SDF", first.Name)
	assert.Len(t, Default()[0].Items, 4)
}
