package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/imagetools/internal/menu"
	"github.com/MeKo-Tech/imagetools/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion API and the tool pages",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("static-dir", "", "Directory with the tool pages to serve at / (disabled when empty)")
	serveCmd.Flags().String("menu", "", "Menu JSON file (defaults to the built-in menu)")
	serveCmd.Flags().Int("max-concurrent-jobs", runtime.NumCPU(), "Max concurrent conversions (default: number of CPUs)")
	serveCmd.Flags().Int64("max-upload-mb", server.DefaultMaxUploadBytes>>20, "Max upload size in MiB")
	serveCmd.Flags().Int("max-megapixels", server.DefaultMaxPixels/1_000_000, "Max decoded image size in megapixels")
	serveCmd.Flags().Int("workers", 0, "Goroutines per double-buffered conversion (0 = number of CPUs)")
	serveCmd.Flags().String("archive", "", "Archive to serve under /archive/ (disabled when empty)")
	serveCmd.Flags().String("cache-control", "no-cache", "Cache-Control header for archived images")

	bindFlags(serveCmd, "serve", [][2]string{
		{"addr", "addr"},
		{"static_dir", "static-dir"},
		{"menu", "menu"},
		{"max_concurrent_jobs", "max-concurrent-jobs"},
		{"max_upload_mb", "max-upload-mb"},
		{"max_megapixels", "max-megapixels"},
		{"workers", "workers"},
		{"archive", "archive"},
		{"cache_control", "cache-control"},
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	staticDir := viper.GetString("serve.static_dir")
	menuPath := viper.GetString("serve.menu")
	maxConc := viper.GetInt("serve.max_concurrent_jobs")
	maxUploadMB := viper.GetInt64("serve.max_upload_mb")
	maxMegapixels := viper.GetInt("serve.max_megapixels")
	workers := viper.GetInt("serve.workers")
	archivePath := viper.GetString("serve.archive")
	cacheControl := viper.GetString("serve.cache_control")

	m := menu.Default()
	if menuPath != "" {
		loaded, err := menu.LoadFile(menuPath)
		if err != nil {
			return err
		}
		m = loaded
	}

	var archiveHandler *server.ArchiveHandler
	if archivePath != "" {
		h, err := server.NewArchiveHandler(server.ArchiveConfig{Path: archivePath, CacheControl: cacheControl}, logger)
		if err != nil {
			return err
		}
		defer h.Close()
		archiveHandler = h
	}

	handler := server.New(server.Config{
		SDF: server.SDFConfig{
			MaxConcurrentJobs: maxConc,
			MaxUploadBytes:    maxUploadMB << 20,
			MaxPixels:         maxMegapixels * 1_000_000,
			Workers:           workers,
		},
		StaticDir: staticDir,
		Menu:      m,
		Archive:   archiveHandler,
	}, logger)

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			"addr", addr,
			"static_dir", staticDir,
			"max_concurrent_jobs", maxConc,
			"max_upload_mb", maxUploadMB,
			"archive", archivePath,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
