package worker

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/imagetools/internal/archive"
	"github.com/MeKo-Tech/imagetools/internal/job"
	"github.com/MeKo-Tech/imagetools/internal/raster"
)

func writeSquarePNG(t *testing.T, dir, name string, size int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(0)
			if x < size/2 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestTaskFor(t *testing.T) {
	assert.Equal(t, Task{Name: "logo", Path: "/in/logo.webp"}, TaskFor("/in/logo.webp"))
	assert.Equal(t, "logo_sdf.png", OutputName("logo"))
}

func TestSDFProcessorWritesDirectory(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "fields")
	path := writeSquarePNG(t, in, "half.png", 16)

	proc := &SDFProcessor{Params: job.DefaultParams(), Sink: DirSink{Dir: out}}

	var kinds []job.Kind
	output, err := proc.Process(context.Background(), TaskFor(path), func(e job.Event) {
		kinds = append(kinds, e.Kind())
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "half_sdf.png"), output)
	require.NotEmpty(t, kinds)
	assert.Equal(t, job.KindResult, kinds[len(kinds)-1])

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), img.Bounds())
}

func TestSDFProcessorWritesArchive(t *testing.T) {
	in := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "out.sqlite")
	path := writeSquarePNG(t, in, "half.png", 12)

	w, err := archive.Create(dbPath, archive.Metadata{Name: "test", Format: "png"})
	require.NoError(t, err)

	params := job.DefaultParams()
	params.MaxDistance = 4
	proc := &SDFProcessor{Params: params, Sink: ArchiveSink{Writer: w}}

	pool := New(Config{Workers: 2, Processor: proc})
	results := pool.Run(context.Background(), []Task{TaskFor(path)})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "half_sdf.png", results[0].Output)
	require.NoError(t, w.Close())

	r, err := archive.Open(dbPath)
	require.NoError(t, err)
	defer r.Close()

	entries, err := r.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 12, entries[0].Width)
}

func TestSDFProcessorDecodeError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	var events int
	proc := &SDFProcessor{Params: job.DefaultParams(), Sink: DirSink{Dir: t.TempDir()}}
	_, err := proc.Process(context.Background(), TaskFor(path), func(job.Event) { events++ })

	assert.True(t, errors.Is(err, raster.ErrDecode))
	assert.Zero(t, events, "decode errors happen before the job starts")
}

func TestSDFProcessorMissingFile(t *testing.T) {
	proc := &SDFProcessor{Params: job.DefaultParams(), Sink: DirSink{Dir: t.TempDir()}}
	_, err := proc.Process(context.Background(), TaskFor("/does/not/exist.png"), nil)
	assert.Error(t, err)
}
