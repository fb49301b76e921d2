//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/imagetools/assets"
	"github.com/MeKo-Tech/imagetools/internal/job"
	"github.com/MeKo-Tech/imagetools/internal/raster"
)

// toJS converts an event into the message object posted back to the page.
func toJS(e job.Event) js.Value {
	env := job.Wrap(e)
	msg := js.Global().Get("Object").New()
	msg.Set("type", string(env.Type))

	switch env.Type {
	case job.KindProgress:
		msg.Set("progress", env.Progress)
	case job.KindError:
		msg.Set("message", env.Message)
	case job.KindResult:
		pix := js.Global().Get("Uint8ClampedArray").New(len(env.Image.Pixels))
		js.CopyBytesToJS(pix, env.Image.Pixels)

		img := js.Global().Get("Object").New()
		img.Set("pixels", pix)
		img.Set("width", env.Image.Width)
		img.Set("height", env.Image.Height)
		msg.Set("image", img)
	}
	return msg
}

func postError(onMessage js.Value, err error) {
	onMessage.Invoke(toJS(job.Failure{Err: err}))
}

// computeSDF(bytes: Uint8Array, params: string, onMessage: function)
//
// The image bytes are decoded, the job runs on its own goroutine and every
// event is passed to onMessage. The call returns immediately.
func computeSDF(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 || args[2].Type() != js.TypeFunction {
		return map[string]interface{}{"error": "usage: imagetoolsComputeSDF(bytes, paramsJSON, onMessage)"}
	}
	onMessage := args[2]

	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	var raw job.RawParams
	if err := json.Unmarshal([]byte(args[1].String()), &raw); err != nil {
		postError(onMessage, fmt.Errorf("%w: %v", job.ErrInvalidParameter, err))
		return nil
	}
	params, err := raw.Parse()
	if err != nil {
		postError(onMessage, err)
		return nil
	}

	go func() {
		img, _, err := raster.Decode(bytes.NewReader(data))
		if err != nil {
			postError(onMessage, err)
			return
		}
		events, err := job.Start(context.Background(), img, params)
		if err != nil {
			postError(onMessage, err)
			return
		}
		for e := range events {
			onMessage.Invoke(toJS(e))
		}
	}()
	return nil
}

// menu returns the built-in tool menu as a JSON string.
func menu(this js.Value, args []js.Value) interface{} {
	return string(assets.MenuJSON)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("imagetoolsComputeSDF", js.FuncOf(computeSDF))
	js.Global().Set("imagetoolsMenu", js.FuncOf(menu))

	fmt.Println("imagetools WASM module loaded")
	<-c
}
