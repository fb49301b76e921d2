package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/imagetools/internal/archive"
	"github.com/MeKo-Tech/imagetools/internal/job"
	"github.com/MeKo-Tech/imagetools/internal/pngmeta"
	"github.com/MeKo-Tech/imagetools/internal/worker"
)

var sdfCmd = &cobra.Command{
	Use:   "sdf [flags] <image|dir>...",
	Short: "Convert images into signed distance fields",
	Long: `Convert images into 8-bit signed distance fields.

Pixels darker than the threshold are inside the shape. The boundary maps to
128; values fall towards 0 inside and rise towards 255 outside, saturating
at --max-distance pixels. Directories are expanded to the images they contain.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSDF,
}

func init() {
	rootCmd.AddCommand(sdfCmd)

	sdfCmd.Flags().Bool("invert", false, "Treat bright pixels as inside")
	sdfCmd.Flags().String("resolution", "original", "Output size: 'original' or a square side length in pixels")
	sdfCmd.Flags().Float64("max-distance", job.DefaultMaxDistance, "Distance in pixels that maps to full saturation")
	sdfCmd.Flags().Float64("threshold", 128, "Luminance threshold separating inside from outside (0-255)")
	sdfCmd.Flags().String("mode", "inplace", "Pass mode: inplace (reference) or double (parallel, double-buffered)")
	sdfCmd.Flags().String("method", "jfa", "Distance method: jfa or exact")
	sdfCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	sdfCmd.Flags().Bool("progress", true, "Show progress bar while converting")
	sdfCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some images fail")
	sdfCmd.Flags().String("format", "folder", "Output format: folder or archive")
	sdfCmd.Flags().String("output-file", "", "Archive path for --format=archive (e.g. fields.sqlite)")
	sdfCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags(sdfCmd, "sdf", [][2]string{
		{"invert", "invert"},
		{"resolution", "resolution"},
		{"max_distance", "max-distance"},
		{"threshold", "threshold"},
		{"mode", "mode"},
		{"method", "method"},
		{"workers", "workers"},
		{"progress", "progress"},
		{"allow_failures", "allow-failures"},
		{"format", "format"},
		{"output_file", "output-file"},
		{"png_compression", "png-compression"},
	})
}

// sdfParams reads the conversion parameters from the bound configuration.
func sdfParams() (job.Params, error) {
	threshold := viper.GetFloat64("sdf.threshold")
	return job.RawParams{
		Resolution:  viper.GetString("sdf.resolution"),
		Mode:        viper.GetString("sdf.mode"),
		Method:      viper.GetString("sdf.method"),
		MaxDistance: viper.GetFloat64("sdf.max_distance"),
		Threshold:   &threshold,
		Invert:      viper.GetBool("sdf.invert"),
	}.Parse()
}

// jobWorkers splits the CPU budget between the pool and the row bands of
// each double-buffered job: the pool runs min(workers, images) jobs at
// once and each job gets the remaining share, at least one.
func jobWorkers(workers, images int) int {
	concurrent := min(workers, images)
	if concurrent <= 0 {
		return 1
	}
	return max(1, workers/concurrent)
}

func runSDF(cmd *cobra.Command, args []string) error {
	workers := viper.GetInt("sdf.workers")
	showProgress := viper.GetBool("sdf.progress")
	allowFailures := viper.GetBool("sdf.allow_failures")
	format := viper.GetString("sdf.format")
	outputFile := viper.GetString("sdf.output_file")
	outputDir := viper.GetString("output-dir")
	pngCompression := viper.GetString("sdf.png_compression")

	if logger == nil {
		initLogging()
	}

	params, err := sdfParams()
	if err != nil {
		return err
	}

	if format != "folder" && format != "archive" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'archive'", format)
	}
	if format == "archive" && outputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=archive")
	}

	enc, err := pngmeta.Encoder(pngCompression)
	if err != nil {
		return err
	}

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	params.Workers = jobWorkers(workers, len(inputs))

	logger.Info("Starting conversion",
		"images", len(inputs),
		"workers", workers,
		"job_workers", params.Workers,
		"resolution", params.Resolution.String(),
		"max_distance", params.MaxDistance,
		"threshold", params.Threshold,
		"invert", params.Invert,
		"method", params.Method.String(),
		"mode", params.Mode.String(),
		"format", format,
	)

	var sink worker.Sink = worker.DirSink{Dir: outputDir, Encoder: enc}
	var writer *archive.Writer
	if format == "archive" {
		writer, err = archive.Create(outputFile, archive.Metadata{
			Name:        "imagetools",
			Format:      "png",
			Description: "Signed distance fields",
			Generator:   rootCmd.Use,
			Resolution:  params.Resolution.String(),
			Method:      params.Method.String(),
			MaxDistance: params.MaxDistance,
			Invert:      params.Invert,
		})
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		defer writer.Close()
		sink = worker.ArchiveSink{Writer: writer, Encoder: enc}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	tasks := make([]worker.Task, 0, len(inputs))
	for _, path := range inputs {
		tasks = append(tasks, worker.TaskFor(path))
	}

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  &worker.SDFProcessor{Params: params, Sink: sink, Logger: logger},
		OnProgress: progress.Callback(),
		OnEvent: func(task worker.Task, e job.Event) {
			if p, ok := e.(job.Progress); ok {
				logger.Debug("Job progress", "image", task.Name, "percent", p.Percent)
			}
			progress.Observe(task, e)
		},
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Conversion failed", "image", r.Task.Path, "error", r.Err)
			continue
		}
		logger.Debug("Converted", "image", r.Task.Path, "output", r.Output, "elapsed", r.Elapsed.String())
	}

	logger.Info(progress.Summary())

	if writer != nil {
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush archive: %w", err)
		}
		logger.Info("Archive written", "path", outputFile)
	}

	if failedCount > 0 {
		if !allowFailures {
			return fmt.Errorf("%d images failed to convert", failedCount)
		}
		logger.Warn("Some images failed to convert, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}
	return nil
}
