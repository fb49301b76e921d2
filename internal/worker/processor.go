package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/imagetools/internal/archive"
	"github.com/MeKo-Tech/imagetools/internal/job"
	"github.com/MeKo-Tech/imagetools/internal/raster"
)

// Sink stores a finished distance field and returns where it went.
type Sink interface {
	Store(name string, img *image.NRGBA) (string, error)
}

// OutputName returns the stored file name for a task name.
func OutputName(name string) string {
	return name + "_sdf.png"
}

// TaskFor builds a task for an input file, naming it after the file.
func TaskFor(path string) Task {
	base := filepath.Base(path)
	return Task{Name: strings.TrimSuffix(base, filepath.Ext(base)), Path: path}
}

// DirSink writes PNG files into a directory.
type DirSink struct {
	Dir     string
	Encoder *png.Encoder
}

// Store writes img to Dir/<name>_sdf.png.
func (s DirSink) Store(name string, img *image.NRGBA) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.Dir, OutputName(name))

	data, err := encode(s.Encoder, img)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ArchiveSink stores PNG blobs in an archive.
type ArchiveSink struct {
	Writer  *archive.Writer
	Encoder *png.Encoder
}

// Store queues img under <name>_sdf.png.
func (s ArchiveSink) Store(name string, img *image.NRGBA) (string, error) {
	data, err := encode(s.Encoder, img)
	if err != nil {
		return "", err
	}
	key := OutputName(name)
	b := img.Bounds()
	if err := s.Writer.WriteImage(key, b.Dx(), b.Dy(), data); err != nil {
		return "", err
	}
	return key, nil
}

func encode(enc *png.Encoder, img image.Image) ([]byte, error) {
	if enc == nil {
		enc = &png.Encoder{}
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SDFProcessor decodes an input file, converts it and stores the result.
type SDFProcessor struct {
	Params job.Params
	Sink   Sink
	Logger *slog.Logger
}

func (p *SDFProcessor) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Process implements Processor. Decode failures wrap raster.ErrDecode and
// happen before any job event is emitted.
func (p *SDFProcessor) Process(ctx context.Context, task Task, emit func(job.Event)) (string, error) {
	f, err := os.Open(task.Path)
	if err != nil {
		return "", err
	}
	img, format, err := raster.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("%s: %w", task.Path, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	b := img.Bounds()
	p.log().Debug("Decoded input", "path", task.Path, "format", format, "width", b.Dx(), "height", b.Dy())

	field, err := job.Run(img, p.Params, emit)
	if err != nil {
		return "", fmt.Errorf("%s: %w", task.Path, err)
	}

	out, err := p.Sink.Store(task.Name, field)
	if err != nil {
		return "", err
	}
	p.log().Debug("Stored distance field", "name", task.Name, "output", out)
	return out, nil
}
