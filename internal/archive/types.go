// Package archive stores generated images in a single SQLite file.
package archive

import (
	"fmt"
	"strconv"
)

// Metadata describes how the images in an archive were produced.
type Metadata struct {
	Name        string  // Human-readable archive name
	Format      string  // Image encoding of the stored blobs
	Description string  // Free-form description
	Generator   string  // Tool that wrote the archive
	Resolution  string  // "original" or the square side length
	Method      string  // Distance method (jfa, exact)
	MaxDistance float64 // Saturation distance in pixels
	Invert      bool    // Whether the mask was inverted
}

// ToMap converts Metadata to a map for database insertion.
func (m Metadata) ToMap() map[string]string {
	result := make(map[string]string)

	if m.Name != "" {
		result["name"] = m.Name
	}
	if m.Format != "" {
		result["format"] = m.Format
	}
	if m.Description != "" {
		result["description"] = m.Description
	}
	if m.Generator != "" {
		result["generator"] = m.Generator
	}
	if m.Resolution != "" {
		result["resolution"] = m.Resolution
	}
	if m.Method != "" {
		result["method"] = m.Method
	}
	if m.MaxDistance > 0 {
		result["max_distance"] = strconv.FormatFloat(m.MaxDistance, 'g', -1, 64)
	}
	result["invert"] = strconv.FormatBool(m.Invert)

	return result
}

// fromMap is the inverse of ToMap. Malformed numeric values are ignored.
func fromMap(values map[string]string) Metadata {
	meta := Metadata{
		Name:        values["name"],
		Format:      values["format"],
		Description: values["description"],
		Generator:   values["generator"],
		Resolution:  values["resolution"],
		Method:      values["method"],
	}
	if v, ok := values["max_distance"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			meta.MaxDistance = f
		}
	}
	if v, ok := values["invert"]; ok {
		meta.Invert, _ = strconv.ParseBool(v)
	}
	return meta
}

// Entry is a stored image without its data.
type Entry struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"` // compressed blob size in bytes
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%dx%d, %d bytes)", e.Name, e.Width, e.Height, e.Size)
}
