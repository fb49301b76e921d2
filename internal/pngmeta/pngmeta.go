// Package pngmeta encodes PNG files and reads or writes compressed text
// (zTXt) chunks in already encoded PNG data.
package pngmeta

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image/png"
	"io"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

var (
	// ErrNotPNG reports data without the PNG signature.
	ErrNotPNG = errors.New("not a PNG file")
	// ErrCorrupt reports a truncated chunk or a CRC mismatch.
	ErrCorrupt = errors.New("corrupt PNG chunk")
)

const (
	ztxtChunkType = "zTXt"
	iendChunkType = "IEND"
)

// Encoder returns a PNG encoder for the named compression level:
// "default", "speed", "best" or "none".
func Encoder(compression string) (*png.Encoder, error) {
	var level png.CompressionLevel
	switch compression {
	case "", "default":
		level = png.DefaultCompression
	case "speed":
		level = png.BestSpeed
	case "best":
		level = png.BestCompression
	case "none":
		level = png.NoCompression
	default:
		return nil, fmt.Errorf("unknown png compression %q: must be 'default', 'speed', 'best' or 'none'", compression)
	}
	return &png.Encoder{CompressionLevel: level}, nil
}

// parseChunks splits data into chunks and verifies every CRC.
func parseChunks(data []byte) ([]*pngstructure.Chunk, error) {
	pmp := pngstructure.NewPngMediaParser()
	if !pmp.LooksLikeFormat(data) {
		return nil, ErrNotPNG
	}

	mc, err := pmp.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	cs, ok := mc.(*pngstructure.ChunkSlice)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected parse result %T", ErrCorrupt, mc)
	}

	chunks := cs.Chunks()
	for _, c := range chunks {
		if !c.CheckCrc32() {
			return nil, fmt.Errorf("%w: crc mismatch in %s chunk at offset %d", ErrCorrupt, c.Type, c.Offset)
		}
	}
	return chunks, nil
}

func checkKeyword(keyword string) error {
	if len(keyword) == 0 || len(keyword) > 79 {
		return fmt.Errorf("keyword must be 1-79 bytes, got %d", len(keyword))
	}
	if bytes.IndexByte([]byte(keyword), 0) >= 0 {
		return errors.New("keyword must not contain NUL")
	}
	return nil
}

func ztxtChunk(keyword string, text []byte) (*pngstructure.Chunk, error) {
	var payload bytes.Buffer
	payload.WriteString(keyword)
	payload.Write([]byte{0, 0}) // separator, compression method 0
	zw, err := zlib.NewWriterLevel(&payload, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(text); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	c := &pngstructure.Chunk{
		Type:   ztxtChunkType,
		Data:   payload.Bytes(),
		Length: uint32(payload.Len()),
	}
	c.UpdateCrc32()
	return c, nil
}

// InsertZTXt returns a copy of data with a zTXt chunk holding the
// zlib-compressed text inserted immediately before IEND.
func InsertZTXt(data []byte, keyword string, text []byte) ([]byte, error) {
	if err := checkKeyword(keyword); err != nil {
		return nil, err
	}

	chunks, err := parseChunks(data)
	if err != nil {
		return nil, err
	}
	iend := -1
	for i, c := range chunks {
		if c.Type == iendChunkType {
			iend = i
			break
		}
	}
	if iend < 0 {
		return nil, fmt.Errorf("%w: IEND chunk not found", ErrCorrupt)
	}

	ztxt, err := ztxtChunk(keyword, text)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(len(data) + 12 + len(ztxt.Data))
	out.Write(pngstructure.PngSignature[:])
	for i, c := range chunks {
		if i == iend {
			out.Write(ztxt.Bytes())
		}
		out.Write(c.Bytes())
	}
	return out.Bytes(), nil
}

// FindZTXt returns the decompressed text of the first zTXt chunk named
// keyword. The boolean is false when no such chunk exists.
func FindZTXt(data []byte, keyword string) ([]byte, bool, error) {
	chunks, err := parseChunks(data)
	if err != nil {
		return nil, false, err
	}

	var found []byte
	for _, c := range chunks {
		if c.Type != ztxtChunkType {
			continue
		}
		sep := bytes.IndexByte(c.Data, 0)
		if sep < 0 || string(c.Data[:sep]) != keyword {
			continue
		}
		found = c.Data[sep:]
		break
	}
	if found == nil {
		return nil, false, nil
	}
	if len(found) < 2 || found[1] != 0 {
		return nil, true, fmt.Errorf("%w: unsupported zTXt compression method", ErrCorrupt)
	}

	zr, err := zlib.NewReader(bytes.NewReader(found[2:]))
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer zr.Close()
	text, err := io.ReadAll(zr)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return text, true, nil
}
