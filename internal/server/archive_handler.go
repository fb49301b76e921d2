package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/MeKo-Tech/imagetools/internal/archive"
)

// ArchiveHandler serves distance fields stored in an archive.
type ArchiveHandler struct {
	reader       *archive.Reader
	logger       *slog.Logger
	cacheControl string
}

// ArchiveConfig configures the archive handler.
type ArchiveConfig struct {
	Path         string
	CacheControl string
}

// NewArchiveHandler opens the archive read-only.
func NewArchiveHandler(cfg ArchiveConfig, logger *slog.Logger) (*ArchiveHandler, error) {
	reader, err := archive.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-cache"
	}

	return &ArchiveHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler serves GET /archive/ as a JSON listing and GET /archive/<name>
// as the stored PNG.
func (h *ArchiveHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		name, ok := parseArchivePath(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		if name == "" {
			h.serveList(w)
			return
		}
		h.serveImage(w, r, name)
	}
}

func (h *ArchiveHandler) serveList(w http.ResponseWriter) {
	entries, err := h.reader.List()
	if err != nil {
		h.log().Error("Failed to list archive", "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (h *ArchiveHandler) serveImage(w http.ResponseWriter, r *http.Request, name string) {
	data, err := h.reader.ReadImage(name)
	if errors.Is(err, archive.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log().Error("Failed to read image", "name", name, "error", err)
		http.Error(w, "archive unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(data); err != nil {
		h.log().Error("Failed to write response", "error", err)
	}
}

// Close closes the archive.
func (h *ArchiveHandler) Close() error {
	return h.reader.Close()
}

func (h *ArchiveHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseArchivePath extracts the image name from /archive/<name>. An empty
// name addresses the listing.
func parseArchivePath(requestPath string) (string, bool) {
	rest, ok := strings.CutPrefix(requestPath, "/archive/")
	if !ok {
		return "", false
	}
	if rest == "" {
		return "", true
	}
	if strings.Contains(rest, "/") || path.Clean(rest) != rest {
		return "", false
	}
	return rest, true
}
