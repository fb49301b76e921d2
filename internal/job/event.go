package job

import (
	"encoding/json"
	"fmt"
	"image"
)

// Kind discriminates the event variants.
type Kind string

const (
	KindProgress Kind = "progress"
	KindResult   Kind = "result"
	KindError    Kind = "error"
)

// Event is one of Progress, Result or Failure.
type Event interface {
	Kind() Kind
	isEvent()
}

// Progress reports completion in percent.
type Progress struct {
	Percent int
}

// Result carries the finished distance field.
type Result struct {
	Image *image.NRGBA
}

// Failure terminates a job.
type Failure struct {
	Err error
}

func (Progress) Kind() Kind { return KindProgress }
func (Result) Kind() Kind   { return KindResult }
func (Failure) Kind() Kind  { return KindError }

func (Progress) isEvent() {}
func (Result) isEvent()   {}
func (Failure) isEvent()  {}

// Terminal reports whether no further events follow e.
func Terminal(e Event) bool {
	switch e.(type) {
	case Result, Failure:
		return true
	default:
		return false
	}
}

// ImagePayload is the wire form of a result image.
type ImagePayload struct {
	Pixels []byte `json:"pixels"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Envelope is the JSON wire form of an Event.
type Envelope struct {
	Image    *ImagePayload `json:"image,omitempty"`
	Type     Kind          `json:"type"`
	Message  string        `json:"message,omitempty"`
	Progress int           `json:"progress,omitempty"`
}

// Wrap converts an event to its wire form.
func Wrap(e Event) Envelope {
	switch ev := e.(type) {
	case Progress:
		return Envelope{Type: KindProgress, Progress: ev.Percent}
	case Result:
		b := ev.Image.Bounds()
		pix := make([]byte, 0, b.Dx()*b.Dy()*4)
		for y := 0; y < b.Dy(); y++ {
			off := y * ev.Image.Stride
			pix = append(pix, ev.Image.Pix[off:off+b.Dx()*4]...)
		}
		return Envelope{
			Type:  KindResult,
			Image: &ImagePayload{Width: b.Dx(), Height: b.Dy(), Pixels: pix},
		}
	case Failure:
		return Envelope{Type: KindError, Message: ev.Err.Error()}
	default:
		panic(fmt.Sprintf("job: unknown event %T", e))
	}
}

// Unwrap converts a wire envelope back into an event.
func (env Envelope) Unwrap() (Event, error) {
	switch env.Type {
	case KindProgress:
		return Progress{Percent: env.Progress}, nil
	case KindResult:
		if env.Image == nil {
			return nil, fmt.Errorf("result envelope without image")
		}
		w, h := env.Image.Width, env.Image.Height
		if w <= 0 || h <= 0 || len(env.Image.Pixels) != w*h*4 {
			return nil, fmt.Errorf("result image %dx%d has %d bytes", w, h, len(env.Image.Pixels))
		}
		img := image.NewNRGBA(image.Rect(0, 0, w, h))
		copy(img.Pix, env.Image.Pixels)
		return Result{Image: img}, nil
	case KindError:
		return Failure{Err: remoteError(env.Message)}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// MarshalEvent encodes e as JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(Wrap(e))
}

type remoteError string

func (e remoteError) Error() string { return string(e) }
