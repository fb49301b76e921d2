package cmd

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/imagetools/internal/crop"
)

var cropCmd = &cobra.Command{
	Use:   "crop <image>",
	Short: "Cut one or more rectangles out of an image",
	Long: `Cut rectangles out of an image and write each as <name>_crop_<n>.png.

Rectangles are given as x,y,w,h. With --view-width/--view-height they are
read in the coordinates of a scaled preview and mapped onto the image.
Rectangles smaller than 5 pixels on a side are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runCrop,
}

func init() {
	rootCmd.AddCommand(cropCmd)

	cropCmd.Flags().StringArray("rect", nil, "Rectangle x,y,w,h (repeatable)")
	cropCmd.Flags().Int("view-width", 0, "Width of the preview the rectangles were drawn on")
	cropCmd.Flags().Int("view-height", 0, "Height of the preview the rectangles were drawn on")
	cropCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")

	bindFlags(cropCmd, "crop", [][2]string{
		{"rect", "rect"},
		{"view_width", "view-width"},
		{"view_height", "view-height"},
		{"png_compression", "png-compression"},
	})
}

// cropSelections parses the rectangles, maps them onto an image of size
// natural and drops the ones that are too small.
func cropSelections(rects []string, view, natural image.Point) ([]crop.Selection, error) {
	var set crop.Set
	for _, s := range rects {
		r, err := crop.ParseRect(s)
		if err != nil {
			return nil, err
		}
		if view != (image.Point{}) {
			r = crop.Scale(r, view, natural)
		}
		if _, ok := set.Add(r); !ok {
			logger.Warn("Ignoring selection smaller than minimum", "rect", s, "min_side", crop.MinSide)
		}
	}
	if len(set.Items()) == 0 {
		return nil, fmt.Errorf("no usable selections")
	}
	return set.Items(), nil
}

func runCrop(cmd *cobra.Command, args []string) error {
	rects := viper.GetStringSlice("crop.rect")
	view := image.Pt(viper.GetInt("crop.view_width"), viper.GetInt("crop.view_height"))
	pngCompression := viper.GetString("crop.png_compression")
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	if len(rects) == 0 {
		return fmt.Errorf("at least one --rect is required")
	}

	img, err := loadImage(args[0])
	if err != nil {
		return err
	}

	selections, err := cropSelections(rects, view, img.Bounds().Size())
	if err != nil {
		return err
	}

	for _, sel := range selections {
		out, err := crop.Crop(img, sel.Rect)
		if err != nil {
			return fmt.Errorf("selection %d: %w", sel.ID, err)
		}
		path := filepath.Join(outputDir, crop.OutputName(args[0], sel.ID))
		if err := writePNG(path, out, pngCompression); err != nil {
			return err
		}
		logger.Info("Crop written", "output", path, "rect", sel.Rect.String())
	}
	return nil
}
