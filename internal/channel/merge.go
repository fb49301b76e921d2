// Package channel assembles an RGBA image whose four channels are each taken
// from a channel of a source image or from a constant.
package channel

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/imagetools/internal/raster"
)

// Channel indexes a component of an NRGBA pixel.
type Channel int

const (
	R Channel = iota
	G
	B
	A
)

func (c Channel) String() string {
	switch c {
	case R:
		return "R"
	case G:
		return "G"
	case B:
		return "B"
	case A:
		return "A"
	default:
		return "?"
	}
}

// ParseChannel parses one of R, G, B or A (case-insensitive).
func ParseChannel(s string) (Channel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "R":
		return R, nil
	case "G":
		return G, nil
	case "B":
		return B, nil
	case "A":
		return A, nil
	default:
		return R, fmt.Errorf("unknown channel %q: must be R, G, B or A", s)
	}
}

// Source feeds one target channel. With an Image the chosen Channel of the
// resized image is copied, otherwise every pixel gets Value*255.
type Source struct {
	Image   image.Image
	Channel Channel
	Value   float64
	Invert  bool
}

// Constant returns a source filling the channel with v in [0,1].
func Constant(v float64) Source {
	return Source{Value: v}
}

// Defaults returns the sources used for unset targets: black, fully opaque.
func Defaults() [4]Source {
	return [4]Source{
		{Channel: R, Value: 0},
		{Channel: G, Value: 0},
		{Channel: B, Value: 0},
		{Channel: A, Value: 1},
	}
}

// constantByte stores v*255 the way a clamped byte array does.
func constantByte(v float64) uint8 {
	b := v * 255
	switch {
	case math.IsNaN(b) || b <= 0:
		return 0
	case b >= 255:
		return 255
	default:
		return uint8(math.RoundToEven(b))
	}
}

// Merge builds a size x size image from the four sources in R, G, B, A
// order. Source images are stretched to the output size first.
func Merge(sources [4]Source, size int) (*image.NRGBA, error) {
	if size <= 0 {
		return nil, fmt.Errorf("merge size must be positive, got %d", size)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))

	for target, src := range sources {
		if src.Channel < R || src.Channel > A {
			return nil, fmt.Errorf("target %s: invalid source channel %d", Channel(target), src.Channel)
		}

		if src.Image == nil {
			v := constantByte(src.Value)
			if src.Invert {
				v = 255 - v
			}
			for i := target; i < len(dst.Pix); i += 4 {
				dst.Pix[i] = v
			}
			continue
		}

		scaled := raster.Draw(src.Image, size, size)
		for i := 0; i < len(dst.Pix); i += 4 {
			v := scaled.Pix[i+int(src.Channel)]
			if src.Invert {
				v = 255 - v
			}
			dst.Pix[i+target] = v
		}
	}

	return dst, nil
}

// ParseSpec parses a command-line source description. A number in [0,1]
// is a constant; otherwise the form is path[:channel][:invert], where the
// channel defaults to fallback. A trailing ":invert" also applies to
// constants. The image is loaded with open.
func ParseSpec(spec string, fallback Channel, open func(path string) (image.Image, error)) (Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Source{}, fmt.Errorf("empty channel source")
	}

	invert := false
	if rest, ok := strings.CutSuffix(spec, ":invert"); ok {
		invert = true
		spec = rest
	}

	if v, err := strconv.ParseFloat(spec, 64); err == nil {
		if v < 0 || v > 1 {
			return Source{}, fmt.Errorf("constant %v is outside [0,1]", v)
		}
		return Source{Channel: fallback, Value: v, Invert: invert}, nil
	}

	path, ch := spec, fallback
	if i := strings.LastIndex(spec, ":"); i > 0 {
		if c, err := ParseChannel(spec[i+1:]); err == nil {
			path, ch = spec[:i], c
		}
	}

	img, err := open(path)
	if err != nil {
		return Source{}, fmt.Errorf("load %s: %w", path, err)
	}
	return Source{Image: img, Channel: ch, Invert: invert}, nil
}
