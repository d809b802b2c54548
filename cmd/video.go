package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/spf13/cobra"
)

// CreateVideoCmd creates the video counting command.
func CreateVideoCmd() *cobra.Command {
	var backendURL string
	var inferFPS float64
	var includeBoxes bool
	var timelineFile string
	var logJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "video [video-file]",
		Short: "Count bicycles over a video file",
		Long: `Uploads a video to the counting backend, waits for inference to finish ` +
			`and prints the aggregate counts. The per-frame detection timeline can be ` +
			`written to a file for later overlay playback.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("video")

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			client := backend.NewClient(backendURL)
			result, err := client.CountVideo(ctx, args[0], backend.VideoOptions{
				InferFPS:     inferFPS,
				IncludeBoxes: includeBoxes,
			})
			if err != nil {
				logger.Error("video count failed", "file", args[0], "error", err)
				os.Exit(1)
			}

			fmt.Printf("frames processed: %d\n", result.FramesProcessed)
			fmt.Printf("average count:    %.2f\n", result.AvgCount)
			fmt.Printf("maximum count:    %d\n", result.MaxCount)

			if timelineFile != "" {
				if err := writeTimeline(timelineFile, result.Timeline); err != nil {
					logger.Error("write timeline", "file", timelineFile, "error", err)
					os.Exit(1)
				}
				logger.Info("timeline written", "file", timelineFile, "entries", len(result.Timeline))
			}
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend-url", "http://127.0.0.1:8000", "Counting backend base URL")
	cmd.Flags().Float64Var(&inferFPS, "infer-fps", 0, "Inference sample rate in frames per second (0 uses the backend default)")
	cmd.Flags().BoolVar(&includeBoxes, "include-boxes", true, "Request per-frame bounding boxes in the timeline")
	cmd.Flags().StringVar(&timelineFile, "timeline", "", "Write the detection timeline to this JSON file")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Upload and inference timeout")

	return cmd
}

func writeTimeline(path string, timeline []backend.TimelineEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(timeline)
}
