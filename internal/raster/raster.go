// Package raster decodes input images and draws them into straight-alpha
// RGBA rasters at a target resolution.
package raster

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"strconv"
	"strings"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// ErrDecode reports input bytes that are not a decodable image.
var ErrDecode = errors.New("decode error")

// Decode reads an image in any registered format. Failures, including
// empty images, wrap ErrDecode.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, format, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return img, format, nil
}

// DecodeConfig reads the format and dimensions of an image without
// decoding its pixels. Failures wrap ErrDecode.
func DecodeConfig(r io.Reader) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return cfg, format, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return cfg, format, nil
}

// Resolution is either the original image size or a square side length.
type Resolution struct {
	// Side is the target width and height; zero keeps the original size.
	Side int
}

// Original keeps the input dimensions.
var Original = Resolution{}

// IsOriginal reports whether the input dimensions are preserved.
func (r Resolution) IsOriginal() bool {
	return r.Side == 0
}

func (r Resolution) String() string {
	if r.IsOriginal() {
		return "original"
	}
	return strconv.Itoa(r.Side)
}

// ParseResolution parses "original" or a positive integer side length.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "original" {
		return Original, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolution %q is neither 'original' nor an integer", s)
	}
	if n <= 0 {
		return Resolution{}, fmt.Errorf("resolution must be positive, got %d", n)
	}
	return Resolution{Side: n}, nil
}

// Target returns the output dimensions for img at resolution r.
func Target(img image.Image, r Resolution) (width, height int) {
	if r.IsOriginal() {
		b := img.Bounds()
		return b.Dx(), b.Dy()
	}
	return r.Side, r.Side
}

// Draw scales src to width x height (stretching, like a canvas drawImage)
// and reads it back as straight-alpha RGBA. As with a premultiplied canvas,
// fully transparent pixels read back as (0,0,0,0).
func Draw(src image.Image, width, height int) *image.NRGBA {
	bounds := src.Bounds()
	scaled := src

	if bounds.Dx() != width || bounds.Dy() != height {
		g := gift.New(gift.Resize(width, height, gift.LinearResampling))
		dst := image.NewNRGBA(g.Bounds(bounds))
		g.Draw(dst, src)
		scaled = dst
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	out := image.NewNRGBA(canvas.Bounds())
	draw.Draw(out, out.Bounds(), canvas, image.Point{}, draw.Src)
	return out
}
