package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/speech-analyzer/configs"
	"github.com/RyanBlaney/speech-analyzer/internal/app"
	"github.com/RyanBlaney/speech-analyzer/internal/server"
)

var (
	// Serve command flags
	serveAddr      string
	serveMaxUpload int64
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser upload page",
	Long: `Serve a page where a recording can be uploaded and analyzed.

Endpoints:
  GET  /          upload form
  POST /analyze   multipart upload (field "audio"), renders the results
  GET  /healthz   liveness probe
  GET  /metrics   Prometheus metrics

Examples:
  # Listen on the configured address (default :8501)
  speech-analyzer serve

  # Listen on a different port with a 10 MB upload limit
  speech-analyzer serve --addr :9000 --max-upload 10485760`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8501",
		"listen address")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", 50<<20,
		"maximum upload size in bytes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := configs.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := app.ConfigureLogging(config)

	decoder, extractor, err := app.NewComponents(config)
	if err != nil {
		return fmt.Errorf("failed to create analyzer: %w", err)
	}

	srv, err := server.New(&server.Config{
		Server: config.Server,
		Output: config.Output,
		Logger: logger.WithFields(logging.Fields{
			"component": "upload_server",
			"addr":      config.Server.ListenAddr,
		}),
	}, decoder, extractor)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
