package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"

	"docqa/internal/domain"
	"docqa/internal/logging"
	"docqa/internal/port"
)

// Service is the part of the retrieval pipeline the API exposes.
type Service interface {
	IngestReader(ctx context.Context, name string, r io.Reader, extractor port.Extractor) (domain.DocumentInfo, error)
	Ask(ctx context.Context, id, question string) (domain.Answer, error)
	DocumentCount() int
}

type Options struct {
	MaxUploadBytes  int64
	AllowedOrigins  []string
	ShutdownTimeout time.Duration

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *logging.Logger
}

type Server struct {
	svc  Service
	opts Options
	log  *logging.Logger
}

func NewServer(svc Service, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	return &Server{svc: svc, opts: opts, log: opts.Logger}
}

// Handler returns the routed API wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-pdf", s.handleUpload)
	mux.HandleFunc("POST /api/ask-question", s.handleAsk)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
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

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
