package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload and preview HTTP server",
	Long: `Serve exposes the analysis over HTTP:
  POST /api/v1/analyze                 multipart upload in the "file" field
  GET  /api/v1/analyses/:id            JSON report
  GET  /api/v1/analyses/:id/preview    highlighted HTML preview
  GET  /api/v1/analyses/:id/download   highlighted copy of the document
  GET  /api/v1/clauses                 clause catalog
  GET  /metrics                        Prometheus metrics

Uploads sent with the same X-Session-ID header are only re-analyzed when
the file name or content changes.

Example:
  clausescan serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	addPipelineFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := configFromFlags()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := server.NewHandler(publishingAnalyzer{app: a}, a.catalog, cfg, a.logger)
	srv := server.NewServer(cfg.Server, handler, a.metrics, a.logger.Named("server"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("signal received, stopping", logging.String("addr", cfg.Server.Addr))
	return srv.Stop(context.Background())
}
