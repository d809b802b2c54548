// Package cmd holds the one-shot counting subcommands added to the console
// CLI root.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	stddraw "image/draw"
	"image/png"
	"os"
	"strconv"
	"strings"
	"time"

	_ "image/jpeg"

	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/draw"
	"github.com/dkozyrev/veloview/internal/geom"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/dkozyrev/veloview/internal/overlay"
	"github.com/dkozyrev/veloview/internal/roi"
	"github.com/spf13/cobra"
)

// CreatePhotoCmd creates the photo counting command.
func CreatePhotoCmd() *cobra.Command {
	var backendURL string
	var roiSpec string
	var roiEnabled bool
	var outFile string
	var logJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "photo [image-file]",
		Short: "Count bicycles on a single photo",
		Long: `Uploads an image to the counting backend and prints the detection result ` +
			`as JSON. An optional region-of-interest polygon restricts counting to that ` +
			`area; with --out, the detections are drawn onto a copy of the image.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("photo")

			src, err := loadImage(args[0])
			if err != nil {
				logger.Error("load image", "file", args[0], "error", err)
				os.Exit(1)
			}
			native := geom.Size{
				W: float64(src.Bounds().Dx()),
				H: float64(src.Bounds().Dy()),
			}

			opts := backend.PhotoOptions{ROIEnabled: roiEnabled}
			if roiSpec != "" {
				roiPoints, err := buildROI(roiSpec, native)
				if err != nil {
					logger.Error("invalid roi polygon", "error", err)
					os.Exit(1)
				}
				opts.ROI = roiPoints
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			client := backend.NewClient(backendURL)
			result, err := client.CountPhoto(ctx, args[0], opts)
			if err != nil {
				logger.Error("photo count failed", "file", args[0], "error", err)
				os.Exit(1)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				logger.Error("encode result", "error", err)
				os.Exit(1)
			}

			if outFile != "" {
				if err := writeAnnotated(outFile, src, native, result.Boxes); err != nil {
					logger.Error("write annotated image", "file", outFile, "error", err)
					os.Exit(1)
				}
				logger.Info("annotated image written", "file", outFile, "boxes", len(result.Boxes))
			}
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend-url", "http://127.0.0.1:8000", "Counting backend base URL")
	cmd.Flags().StringVar(&roiSpec, "roi", "", "ROI polygon as native-pixel x,y pairs separated by semicolons, e.g. 120,80;500,80;300,400")
	cmd.Flags().BoolVar(&roiEnabled, "roi-enabled", false, "Attach the ROI polygon to the submission")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write a PNG copy of the image with detections drawn")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Upload and inference timeout")

	return cmd
}

// buildROI feeds native-pixel points through the polygon editor so the
// submission gets the same clamping and normalization as interactive use.
func buildROI(spec string, native geom.Size) ([][2]float64, error) {
	points, err := parsePoints(spec)
	if err != nil {
		return nil, err
	}

	editor := roi.NewEditor(&roi.EditorOptions{Canvas: draw.NewRecorder()})
	editor.SetNativeSize(native)
	editor.Resize(native, 1)
	editor.SetEditMode(true)
	for _, p := range points {
		editor.PointerDown(p)
		editor.PointerUp()
	}
	editor.SetEnabled(true)

	out, ok := editor.Export()
	if !ok {
		return nil, fmt.Errorf("polygon needs at least %d points, got %d", roi.MinPoints, len(points))
	}
	return out, nil
}

func parsePoints(spec string) ([]geom.Point, error) {
	var out []geom.Point
	for _, pair := range strings.Split(spec, ";") {
		parts := strings.Split(strings.TrimSpace(pair), ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("point %q is not an x,y pair", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", pair, err)
		}
		out = append(out, geom.Point{X: x, Y: y})
	}
	return out, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	return img, err
}

// writeAnnotated renders the detections through the overlay renderer at
// native resolution, composites them over the source image and writes the
// result as PNG.
func writeAnnotated(path string, src image.Image, native geom.Size, boxes []geom.Box) error {
	canvas := draw.NewImageCanvas()
	renderer := overlay.NewRenderer(&overlay.RendererOptions{Canvas: canvas})
	renderer.SetNativeSize(native)
	renderer.Resize(native, 1)
	renderer.Timeline().Replace([]backend.TimelineEntry{{T: 0, Count: len(boxes), Boxes: boxes}})
	renderer.ForceRenderAt(0)

	b := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(out, out.Bounds(), src, b.Min, stddraw.Src)
	stddraw.Draw(out, out.Bounds(), canvas.Image(), image.Point{}, stddraw.Over)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}
