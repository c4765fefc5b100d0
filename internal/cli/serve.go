package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the upload, question and health endpoints.

Endpoints:
  POST /api/upload-pdf    multipart field "pdf"
  POST /api/ask-question  {"fileId": "...", "question": "..."}
  GET  /api/health
  GET  /metrics           Prometheus metrics

Examples:
  docqa serve
  docqa serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	p, err := buildPipeline(cfg, pipelineOptions{withGenerator: true})
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := httpapi.NewServer(p.useCase, httpapi.Options{
		MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
		Metrics:         p.metrics.Handler(),
		Logger:          p.logger,
	})

	if err := server.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// contextOrBackground guards commands invoked without a context in tests.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
