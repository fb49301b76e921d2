package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MeKo-Tech/imagetools/internal/menu"
)

// Config configures the HTTP server.
type Config struct {
	SDF       SDFConfig
	StaticDir string
	Menu      menu.Menu
	// Archive is mounted under /archive/ when set.
	Archive *ArchiveHandler
}

// New builds the server mux: the conversion API, its status, the tool menu,
// a health check and optionally the static tool pages.
func New(cfg Config, logger *slog.Logger) http.Handler {
	sdf := NewSDFHandler(cfg.SDF, logger)

	m := cfg.Menu
	if m == nil {
		m = menu.Default()
	}
	m = m.Normalized()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/api/sdf", withCORS(sdf.Handler()))
	mux.Handle("/api/status", withCORS(sdf.StatusHandler()))
	mux.Handle("/menu.json", withCORS(menuHandler(m)))
	if cfg.Archive != nil {
		mux.Handle("/archive/", withCORS(cfg.Archive.Handler()))
	}

	if cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return mux
}

func menuHandler(m menu.Menu) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(m)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
