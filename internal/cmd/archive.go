package cmd

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/imagetools/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Work with SQLite image archives",
}

var archiveListCmd = &cobra.Command{
	Use:   "list <archive>",
	Short: "List the images and metadata of an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveList,
}

var archiveExportCmd = &cobra.Command{
	Use:   "export <archive> [name...]",
	Short: "Write archived images back to PNG files",
	Long:  `Write the named images, or all images when none are given, into --output-dir.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveExport,
}

var archivePackCmd = &cobra.Command{
	Use:   "pack <dir>",
	Short: "Store a folder of PNG files in an archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchivePack,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveExportCmd, archivePackCmd)

	archivePackCmd.Flags().StringP("output", "o", "", "Output archive path (required)")
	archivePackCmd.Flags().String("name", "imagetools", "Archive name")
	archivePackCmd.Flags().String("description", "", "Archive description")

	bindFlags(archivePackCmd, "archive", [][2]string{
		{"output", "output"},
		{"name", "name"},
		{"description", "description"},
	})
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	r, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		return err
	}
	entries, err := r.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "name: %s\n", meta.Name)
	if meta.Description != "" {
		fmt.Fprintf(out, "description: %s\n", meta.Description)
	}
	if meta.Method != "" {
		fmt.Fprintf(out, "method: %s, resolution: %s, max distance: %g, invert: %t\n",
			meta.Method, meta.Resolution, meta.MaxDistance, meta.Invert)
	}
	fmt.Fprintf(out, "%d images\n", len(entries))
	for _, e := range entries {
		fmt.Fprintln(out, "  "+e.String())
	}
	return nil
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	r, err := archive.Open(args[0])
	if err != nil {
		return err
	}
	defer r.Close()

	names := args[1:]
	if len(names) == 0 {
		entries, err := r.List()
		if err != nil {
			return err
		}
		for _, e := range entries {
			names = append(names, e.Name)
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, name := range names {
		data, err := r.ReadImage(name)
		if err != nil {
			return err
		}
		path := filepath.Join(outputDir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		logger.Debug("Exported image", "name", name, "output", path)
	}

	logger.Info("Export complete", "images", len(names), "output_dir", outputDir)
	return nil
}

func runArchivePack(cmd *cobra.Command, args []string) error {
	output := viper.GetString("archive.output")
	name := viper.GetString("archive.name")
	description := viper.GetString("archive.description")
	inputDir := args[0]

	if logger == nil {
		initLogging()
	}

	if output == "" {
		return fmt.Errorf("--output is required")
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return err
	}

	w, err := archive.Create(output, archive.Metadata{Name: name, Format: "png", Description: description})
	if err != nil {
		return err
	}

	packed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		path := filepath.Join(inputDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			w.Close()
			return err
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			logger.Warn("Skipping unreadable PNG", "path", path, "error", err)
			continue
		}
		if err := w.WriteImage(e.Name(), cfg.Width, cfg.Height, data); err != nil {
			w.Close()
			return err
		}
		packed++
	}

	if err := w.Close(); err != nil {
		return err
	}
	if packed == 0 {
		return fmt.Errorf("no PNG files found in %s", inputDir)
	}

	logger.Info("Archive written", "path", output, "images", packed)
	return nil
}
