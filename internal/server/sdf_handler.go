// Package server exposes the image tools over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/imagetools/internal/job"
	"github.com/MeKo-Tech/imagetools/internal/raster"
)

const (
	// DefaultMaxUploadBytes bounds the size of an uploaded image.
	DefaultMaxUploadBytes = 32 << 20
	// DefaultMaxPixels bounds the decoded size of an upload and of the
	// requested output resolution.
	DefaultMaxPixels = 8192 * 8192
)

// SDFConfig configures the conversion endpoint.
type SDFConfig struct {
	MaxConcurrentJobs int
	MaxUploadBytes    int64
	MaxPixels         int
	// Workers is passed to double-buffered jobs.
	Workers int
}

// SDFHandler converts uploaded images and streams job events as
// newline-delimited JSON envelopes.
type SDFHandler struct {
	logger *slog.Logger
	sem    chan struct{}
	cfg    SDFConfig

	activeJobs     atomic.Int32
	queuedJobs     atomic.Int32
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
}

// JobStatus is the JSON body of the status endpoint.
type JobStatus struct {
	ActiveJobs     int   `json:"active_jobs"`
	QueuedJobs     int   `json:"queued_jobs"`
	TotalCompleted int64 `json:"total_completed"`
	TotalFailed    int64 `json:"total_failed"`
	MaxConcurrent  int   `json:"max_concurrent"`
}

// NewSDFHandler creates the conversion endpoint.
func NewSDFHandler(cfg SDFConfig, logger *slog.Logger) *SDFHandler {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	return &SDFHandler{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentJobs),
	}
}

// Status returns the current job counters.
func (h *SDFHandler) Status() JobStatus {
	return JobStatus{
		ActiveJobs:     int(h.activeJobs.Load()),
		QueuedJobs:     int(h.queuedJobs.Load()),
		TotalCompleted: h.totalCompleted.Load(),
		TotalFailed:    h.totalFailed.Load(),
		MaxConcurrent:  h.cfg.MaxConcurrentJobs,
	}
}

// StatusHandler serves Status as JSON.
func (h *SDFHandler) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(h.Status()); err != nil {
			h.log().Error("Failed to encode status", "error", err)
		}
	})
}

// Handler returns the conversion handler.
func (h *SDFHandler) Handler() http.Handler {
	return http.HandlerFunc(h.serveSDF)
}

func (h *SDFHandler) serveSDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params, err := parseQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params.Workers = h.cfg.Workers

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	cfg, format, err := raster.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.checkPixels(cfg, params); err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}

	h.queuedJobs.Add(1)
	select {
	case h.sem <- struct{}{}:
		h.queuedJobs.Add(-1)
		defer func() { <-h.sem }()
	case <-r.Context().Done():
		h.queuedJobs.Add(-1)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	// pixels are only decoded once a slot is held
	img, _, err := raster.Decode(bytes.NewReader(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.activeJobs.Add(1)
	defer h.activeJobs.Add(-1)

	events, err := job.Start(r.Context(), img, params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b := img.Bounds()
	h.log().Info("Starting conversion",
		"format", format,
		"width", b.Dx(),
		"height", b.Dy(),
		"resolution", params.Resolution.String(),
		"max_distance", params.MaxDistance,
		"method", params.Method.String(),
		"mode", params.Mode.String(),
	)
	start := time.Now()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	// the channel closes only after the computation finishes, so the
	// semaphore slot stays held while it runs
	failed := false
	for e := range events {
		if f, ok := e.(job.Failure); ok {
			failed = true
			h.log().Error("Conversion failed", "error", f.Err)
		}
		if err := enc.Encode(job.Wrap(e)); err != nil {
			h.log().Debug("Client went away", "error", err)
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if failed {
		h.totalFailed.Add(1)
		return
	}
	h.totalCompleted.Add(1)
	h.log().Info("Conversion finished", "elapsed", time.Since(start).String())
}

// checkPixels rejects uploads whose decoded or resampled raster would
// exceed MaxPixels.
func (h *SDFHandler) checkPixels(cfg image.Config, p job.Params) error {
	limit := h.cfg.MaxPixels
	if cfg.Width > limit/cfg.Height {
		return fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, limit)
	}
	if side := p.Resolution.Side; side > 0 && side > limit/side {
		return fmt.Errorf("resolution %d exceeds %d pixels", side, limit)
	}
	return nil
}

func (h *SDFHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseQuery reads invert, resolution, maxDistance, threshold, mode and
// method from the query string.
func parseQuery(r *http.Request) (job.Params, error) {
	q := r.URL.Query()
	raw := job.RawParams{
		Resolution:  q.Get("resolution"),
		Mode:        q.Get("mode"),
		Method:      q.Get("method"),
		MaxDistance: job.DefaultMaxDistance,
	}

	if v := q.Get("invert"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return job.Params{}, fmt.Errorf("%w: invert %q is not a boolean", job.ErrInvalidParameter, v)
		}
		raw.Invert = b
	}
	if v := q.Get("maxDistance"); v != "" {
		f, err := job.ParseFloat("maxDistance", v)
		if err != nil {
			return job.Params{}, err
		}
		raw.MaxDistance = f
	}
	if v := q.Get("threshold"); v != "" {
		f, err := job.ParseFloat("threshold", v)
		if err != nil {
			return job.Params{}, err
		}
		raw.Threshold = &f
	}

	return raw.Parse()
}
