package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dkozyrev/veloview/internal/backend"
	"github.com/dkozyrev/veloview/internal/logging"
	"github.com/spf13/cobra"
)

// CreateReportCmd creates the report download command.
func CreateReportCmd() *cobra.Command {
	var backendURL string
	var start string
	var end string
	var output string
	var logJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:       "report [pdf|xlsx]",
		Short:     "Download a counting report",
		Long:      `Downloads an aggregated counting report from the backend, optionally bounded by UTC start and end datetimes.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pdf", "xlsx"},
		Run: func(_ *cobra.Command, args []string) {
			loggingConfig := logging.Config{Level: "info", Format: "text"}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("report")

			kind := args[0]
			path := output
			if path == "" {
				path = fmt.Sprintf("report-%s.%s", time.Now().Format("20060102-150405"), kind)
			}

			f, err := os.Create(path)
			if err != nil {
				logger.Error("create report file", "file", path, "error", err)
				os.Exit(1)
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			client := backend.NewClient(backendURL)
			if err := client.Report(ctx, kind, start, end, f); err != nil {
				logger.Error("report download failed", "kind", kind, "error", err)
				os.Remove(path)
				os.Exit(1)
			}

			logger.Info("report downloaded", "file", path)
		},
	}

	cmd.Flags().StringVar(&backendURL, "backend-url", "http://127.0.0.1:8000", "Counting backend base URL")
	cmd.Flags().StringVar(&start, "start", "", "Report range start (UTC datetime)")
	cmd.Flags().StringVar(&end, "end", "", "Report range end (UTC datetime)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default report-<timestamp>.<kind>)")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Download timeout")

	return cmd
}
