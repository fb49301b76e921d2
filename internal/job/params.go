// Package job runs one image-to-SDF conversion and reports its progress as
// a stream of events.
package job

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/MeKo-Tech/imagetools/internal/mask"
	"github.com/MeKo-Tech/imagetools/internal/raster"
	"github.com/MeKo-Tech/imagetools/internal/sdf"
)

var (
	// ErrInvalidParameter rejects a request before any work is done.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCompute reports an unexpected failure while building the field.
	ErrCompute = errors.New("compute error")
)

// DefaultMaxDistance is the saturation distance used when none is given.
const DefaultMaxDistance = 32.0

// Params controls a single conversion.
type Params struct {
	Resolution  raster.Resolution
	MaxDistance float64
	Threshold   float64
	Mode        sdf.Mode
	Method      sdf.Method
	Workers     int
	Invert      bool
}

// DefaultParams returns the parameters of a plain conversion at original size.
func DefaultParams() Params {
	return Params{
		Resolution:  raster.Original,
		MaxDistance: DefaultMaxDistance,
		Threshold:   mask.DefaultThreshold,
	}
}

// Validate rejects parameters the engine cannot work with.
func (p Params) Validate() error {
	if math.IsNaN(p.MaxDistance) || math.IsInf(p.MaxDistance, 0) {
		return fmt.Errorf("%w: maxDistance must be finite, got %v", ErrInvalidParameter, p.MaxDistance)
	}
	if p.MaxDistance <= 0 {
		return fmt.Errorf("%w: maxDistance must be positive, got %v", ErrInvalidParameter, p.MaxDistance)
	}
	if p.Resolution.Side < 0 {
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalidParameter, p.Resolution.Side)
	}
	if math.IsNaN(p.Threshold) || p.Threshold < 0 || p.Threshold > 255 {
		return fmt.Errorf("%w: threshold must be within [0,255], got %v", ErrInvalidParameter, p.Threshold)
	}
	return nil
}

// RawParams is the loosely typed form of Params as it arrives from flags,
// query strings or JSON messages.
type RawParams struct {
	Resolution  string   `json:"resolution"`
	Mode        string   `json:"mode,omitempty"`
	Method      string   `json:"method,omitempty"`
	MaxDistance float64  `json:"maxDistance"`
	Threshold   *float64 `json:"threshold,omitempty"`
	Invert      bool     `json:"invert"`
}

// Parse converts raw parameters and validates them. Every failure wraps
// ErrInvalidParameter.
func (r RawParams) Parse() (Params, error) {
	p := DefaultParams()
	p.Invert = r.Invert
	p.MaxDistance = r.MaxDistance
	if r.Threshold != nil {
		p.Threshold = *r.Threshold
	}

	res, err := raster.ParseResolution(r.Resolution)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	p.Resolution = res

	if p.Mode, err = sdf.ParseMode(r.Mode); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if p.Method, err = sdf.ParseMethod(r.Method); err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// ParseFloat parses a numeric parameter, wrapping failures in ErrInvalidParameter.
func ParseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrInvalidParameter, name, s)
	}
	return v, nil
}
