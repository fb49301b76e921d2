package job

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/imagetools/internal/raster"
	"github.com/MeKo-Tech/imagetools/internal/sdf"
)

// discImage draws a dark disc on a white background.
func discImage(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	r := float64(size) / 4
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(255)
			if math.Hypot(float64(x)-c, float64(y)-c) <= r {
				v = 0
			}
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func collect(t *testing.T, img image.Image, p Params) []Event {
	t.Helper()
	var events []Event
	_, _ = Run(img, p, func(e Event) { events = append(events, e) })
	return events
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "zero max distance", mutate: func(p *Params) { p.MaxDistance = 0 }},
		{name: "negative max distance", mutate: func(p *Params) { p.MaxDistance = -3 }},
		{name: "NaN max distance", mutate: func(p *Params) { p.MaxDistance = math.NaN() }},
		{name: "infinite max distance", mutate: func(p *Params) { p.MaxDistance = math.Inf(1) }},
		{name: "negative resolution", mutate: func(p *Params) { p.Resolution = raster.Resolution{Side: -1} }},
		{name: "threshold too high", mutate: func(p *Params) { p.Threshold = 300 }},
	}

	require.NoError(t, DefaultParams().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))
		})
	}
}

func TestRawParamsParse(t *testing.T) {
	threshold := 100.0
	p, err := RawParams{
		Resolution:  "64",
		MaxDistance: 8,
		Threshold:   &threshold,
		Invert:      true,
		Mode:        "double",
		Method:      "exact",
	}.Parse()
	require.NoError(t, err)
	assert.Equal(t, raster.Resolution{Side: 64}, p.Resolution)
	assert.Equal(t, 8.0, p.MaxDistance)
	assert.Equal(t, 100.0, p.Threshold)
	assert.True(t, p.Invert)
	assert.Equal(t, sdf.ModeDoubleBuffered, p.Mode)
	assert.Equal(t, sdf.MethodExact, p.Method)

	for _, raw := range []RawParams{
		{Resolution: "0", MaxDistance: 8},
		{Resolution: "abc", MaxDistance: 8},
		{Resolution: "original", MaxDistance: 0},
		{Resolution: "original", MaxDistance: 8, Mode: "sideways"},
	} {
		_, err := raw.Parse()
		assert.ErrorIs(t, err, ErrInvalidParameter, "%+v", raw)
	}
}

func TestRunEventSequence(t *testing.T) {
	p := DefaultParams()
	p.MaxDistance = 4

	events := collect(t, discImage(16), p)
	require.NotEmpty(t, events)

	var progress []int
	for i, e := range events {
		switch ev := e.(type) {
		case Progress:
			progress = append(progress, ev.Percent)
		case Result:
			require.Equal(t, len(events)-1, i, "result must be the last event")
			assert.Equal(t, image.Rect(0, 0, 16, 16), ev.Image.Bounds())
		case Failure:
			t.Fatalf("unexpected failure: %v", ev.Err)
		}
	}

	// 16x16: passes with step 8, 4, 2, 1
	assert.Equal(t, []int{5, 15, 25, 32, 39, 46, 53, 100}, progress)
	assert.IsType(t, Result{}, events[len(events)-1])
}

func TestRunRespectsResolution(t *testing.T) {
	p := DefaultParams()
	p.Resolution = raster.Resolution{Side: 8}

	out, err := Run(discImage(32), p, nil)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), out.Bounds())
}

func TestRunInvertFlipsSign(t *testing.T) {
	p := DefaultParams()
	p.MaxDistance = 4

	plain, err := Run(discImage(16), p, nil)
	require.NoError(t, err)

	p.Invert = true
	inverted, err := Run(discImage(16), p, nil)
	require.NoError(t, err)

	// the disc center is inside normally and outside when inverted
	center := 8*plain.Stride + 8*4
	assert.Less(t, plain.Pix[center], uint8(128))
	assert.Greater(t, inverted.Pix[center], uint8(128))
}

func TestRunInvalidParamsEmitsSingleFailure(t *testing.T) {
	p := DefaultParams()
	p.MaxDistance = 0

	events := collect(t, discImage(4), p)
	require.Len(t, events, 1)
	f, ok := events[0].(Failure)
	require.True(t, ok)
	assert.ErrorIs(t, f.Err, ErrInvalidParameter)
}

// panicImage reports sane bounds but panics when its pixels are read.
type panicImage struct{}

func (panicImage) ColorModel() color.Model { return color.NRGBAModel }

func (panicImage) Bounds() image.Rectangle { return image.Rect(0, 0, 4, 4) }

func (panicImage) At(x, y int) color.Color { panic("pixel storage corrupted") }

func TestRunConvertsPanicsToComputeError(t *testing.T) {
	var events []Event
	out, err := Run(panicImage{}, DefaultParams(), func(e Event) { events = append(events, e) })

	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompute)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, KindError, last.Kind())
	for _, e := range events[:len(events)-1] {
		assert.Equal(t, KindProgress, e.Kind())
	}
}

func TestStartRejectsSynchronously(t *testing.T) {
	p := DefaultParams()
	p.MaxDistance = -1

	ch, err := Start(context.Background(), discImage(4), p)
	assert.Nil(t, ch)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestStartStreamsEvents(t *testing.T) {
	ch, err := Start(context.Background(), discImage(16), DefaultParams())
	require.NoError(t, err)

	var kinds []Kind
	last := -1
	for e := range ch {
		kinds = append(kinds, e.Kind())
		if p, ok := e.(Progress); ok {
			assert.GreaterOrEqual(t, p.Percent, last)
			last = p.Percent
		}
	}
	require.NotEmpty(t, kinds)
	assert.Equal(t, KindResult, kinds[len(kinds)-1])
	assert.Equal(t, 100, last)
}

func TestStartConcurrentJobsAreIndependent(t *testing.T) {
	p := DefaultParams()
	p.MaxDistance = 6

	want, err := Run(discImage(24), p, nil)
	require.NoError(t, err)

	chans := make([]<-chan Event, 6)
	for i := range chans {
		chans[i], err = Start(context.Background(), discImage(24), p)
		require.NoError(t, err)
	}
	for _, ch := range chans {
		got, err := Wait(ch)
		require.NoError(t, err)
		assert.Equal(t, want.Pix, got.Pix)
	}
}

func TestTracker(t *testing.T) {
	var got []Event
	tr := NewTracker(func(e Event) { got = append(got, e) })

	assert.True(t, tr.Emit(Progress{Percent: 5}))
	assert.False(t, tr.Emit(Progress{Percent: 3}), "regressions are dropped")
	assert.True(t, tr.Emit(Progress{Percent: 90}))
	assert.True(t, tr.Emit(Progress{Percent: 90}))
	assert.True(t, tr.Emit(Progress{Percent: 100}))
	assert.False(t, tr.Emit(Progress{Percent: 100}), "100 is reported once")
	assert.True(t, tr.Emit(Result{Image: image.NewNRGBA(image.Rect(0, 0, 1, 1))}))
	assert.False(t, tr.Emit(Failure{Err: errors.New("late")}), "nothing follows a terminal event")

	assert.Len(t, got, 5)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []byte{1, 2, 3, 255, 4, 5, 6, 255})

	data, err := MarshalEvent(Result{Image: img})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "result", raw["type"])

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	ev, err := env.Unwrap()
	require.NoError(t, err)
	res, ok := ev.(Result)
	require.True(t, ok)
	assert.Equal(t, img.Pix, res.Image.Pix)

	data, err = MarshalEvent(Progress{Percent: 42})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"progress","progress":42}`, string(data))

	data, err = MarshalEvent(Failure{Err: errors.New("boom")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","message":"boom"}`, string(data))

	_, err = Envelope{Type: "mystery"}.Unwrap()
	assert.Error(t, err)
}
