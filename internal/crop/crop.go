// Package crop cuts rectangular selections out of an image.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/gift"
)

// MinSide is the smallest accepted selection width or height in pixels.
const MinSide = 5

// ErrEmpty reports a selection that does not overlap the image.
var ErrEmpty = errors.New("selection does not overlap image")

// Selection is a numbered rectangle in image coordinates.
type Selection struct {
	ID   int
	Rect image.Rectangle
}

// Set collects selections and numbers them from 1.
type Set struct {
	items []Selection
	next  int
}

// Add appends r unless either side is shorter than MinSide. It reports
// whether the selection was kept.
func (s *Set) Add(r image.Rectangle) (Selection, bool) {
	r = r.Canon()
	if r.Dx() < MinSide || r.Dy() < MinSide {
		return Selection{}, false
	}
	s.next++
	sel := Selection{ID: s.next, Rect: r}
	s.items = append(s.items, sel)
	return sel, true
}

// Remove deletes the selection with the given id.
func (s *Set) Remove(id int) bool {
	for i, sel := range s.items {
		if sel.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every selection and restarts numbering.
func (s *Set) Clear() {
	s.items = nil
	s.next = 0
}

// Items returns the selections in insertion order.
func (s *Set) Items() []Selection {
	return append([]Selection(nil), s.items...)
}

// Scale maps a rectangle drawn on a preview of size view onto an image of
// size natural.
func Scale(r image.Rectangle, view, natural image.Point) image.Rectangle {
	if view.X <= 0 || view.Y <= 0 {
		return r
	}
	sx := float64(natural.X) / float64(view.X)
	sy := float64(natural.Y) / float64(view.Y)
	return image.Rect(
		int(math.Floor(float64(r.Min.X)*sx)),
		int(math.Floor(float64(r.Min.Y)*sy)),
		int(math.Ceil(float64(r.Max.X)*sx)),
		int(math.Ceil(float64(r.Max.Y)*sy)),
	)
}

// Crop copies the part of img inside r. The rectangle is clamped to the
// image bounds; no overlap is an error.
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	clipped := r.Canon().Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("%w: %v outside %v", ErrEmpty, r, img.Bounds())
	}

	g := gift.New(gift.Crop(clipped))
	dst := image.NewNRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst, nil
}

// ParseRect parses "x,y,w,h".
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rect %q: want x,y,w,h", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rect %q: %q is not an integer", s, p)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("rect %q: width and height must be positive", s)
	}
	return image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3]), nil
}

// OutputName returns "<base>_crop_<id>.png" for the source file path.
func OutputName(source string, id int) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_crop_%d.png", base, id)
}
