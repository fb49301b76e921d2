// Package menu loads the tool menu shown by the web shell.
package menu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MeKo-Tech/imagetools/assets"
)

// Item is a single tool entry.
type Item struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Category groups related tools under a title.
type Category struct {
	Category string `json:"category,omitempty"`
	Items    []Item `json:"items"`
}

// Menu is the ordered list of categories from menu.json.
type Menu []Category

// Default returns the bundled tool menu.
func Default() Menu {
	m, err := Load(bytes.NewReader(assets.MenuJSON))
	if err != nil {
		panic(fmt.Sprintf("menu: embedded menu.json: %v", err))
	}
	return m
}

// Load decodes a menu document.
func Load(r io.Reader) (Menu, error) {
	var m Menu
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	return m, nil
}

// LoadFile reads a menu document from path.
func LoadFile(path string) (Menu, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// NormalizePath points a tool path at its index page: paths that do not
// end in ".html" get "index.html" appended, with a separating slash when
// needed. Empty paths stay empty.
func NormalizePath(p string) string {
	if p == "" || strings.HasSuffix(p, ".html") {
		return p
	}
	if strings.HasSuffix(p, "/") {
		return p + "index.html"
	}
	return p + "/index.html"
}

// Normalized returns a copy of m with every item path normalized.
func (m Menu) Normalized() Menu {
	out := make(Menu, len(m))
	for i, c := range m {
		items := make([]Item, len(c.Items))
		for j, it := range c.Items {
			items[j] = Item{Name: it.Name, Path: NormalizePath(it.Path)}
		}
		out[i] = Category{Category: c.Category, Items: items}
	}
	return out
}

// First returns the first item with a path, which the shell opens on load.
func (m Menu) First() (Item, bool) {
	for _, c := range m {
		for _, it := range c.Items {
			if it.Path != "" {
				return it, true
			}
		}
	}
	return Item{}, false
}
