package gradient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/MeKo-Tech/imagetools/internal/pngmeta"
)

// Keyword names the zTXt chunk that carries the gradient state.
const Keyword = "gradient-tool-data"

// ErrNoState reports a PNG without an embedded gradient document.
var ErrNoState = errors.New("no gradient data found in image")

// EncodePNG bakes s and writes the texture with s embedded as compressed
// JSON, so the file can be loaded back into the editor.
func EncodePNG(w io.Writer, s State, compression string) error {
	img, err := Bake(s)
	if err != nil {
		return err
	}
	enc, err := pngmeta.Encoder(compression)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode texture: %w", err)
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal gradient state: %w", err)
	}

	data, err := pngmeta.InsertZTXt(buf.Bytes(), Keyword, doc)
	if err != nil {
		return fmt.Errorf("embed gradient state: %w", err)
	}

	_, err = w.Write(data)
	return err
}

// DecodePNG reads the gradient document embedded by EncodePNG.
func DecodePNG(r io.Reader) (State, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return State{}, err
	}

	doc, ok, err := pngmeta.FindZTXt(data, Keyword)
	if err != nil {
		return State{}, err
	}
	if !ok {
		return State{}, ErrNoState
	}

	s := NewState()
	if err := json.Unmarshal(doc, &s); err != nil {
		return State{}, fmt.Errorf("parse gradient state: %w", err)
	}
	if s.Settings.RowHeight == 0 {
		s.Settings.RowHeight = DefaultRowHeight
	}
	return s, nil
}

// Load parses a gradient document stored as plain JSON.
func Load(r io.Reader) (State, error) {
	s := NewState()
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return State{}, fmt.Errorf("parse gradient state: %w", err)
	}
	if s.Settings.RowHeight == 0 {
		s.Settings.RowHeight = DefaultRowHeight
	}
	return s, s.Validate()
}
