// Package server streams rendered documents over HTTP.
//
// Documents are resolved under a root directory:
//
//	GET /render/{doc...}   stream the rendered document
//	GET /healthz           liveness
//
// Every response is produced by its own engine request writing straight
// into the response through an HTTP destination, so the shell reaches the
// client before late content resolves.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/justapithecus/sluice/destination"
	"github.com/justapithecus/sluice/engine"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/log"
	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/tree"
	"github.com/justapithecus/sluice/types"
)

// Timeouts for the HTTP server. There is no write timeout: a streaming
// response is bounded by AbortAfter instead.
const (
	ReadHeaderTimeout = 10 * time.Second
	IdleTimeout       = 120 * time.Second
	ShutdownTimeout   = 15 * time.Second
	// AbortGrace bounds how long a handler waits for an aborted request
	// to close after the client went away.
	AbortGrace = 5 * time.Second
)

// RequestIDHeader carries the request id on every render response.
const RequestIDHeader = "X-Sluice-Request-Id"

// documentExts are the file extensions served as documents.
var documentExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// Config configures a Server.
type Config struct {
	// Root is the directory documents are resolved in. Required.
	Root string
	// Registry resolves components. Defaults to tree.NewRegistry().
	Registry *tree.Registry
	// ProgressiveChunkSize is passed to every request.
	ProgressiveChunkSize int
	// IDPrefix prefixes generated DOM ids.
	IDPrefix string
	// HighWaterMark is the destination backpressure threshold in bytes.
	HighWaterMark int
	// AbortAfter aborts renders still pending after this long. Zero
	// disables the timer.
	AbortAfter time.Duration
	// Logger defaults to log.Nop().
	Logger *log.Logger
	// OnComplete is called after every render closes. Optional.
	OnComplete func(ctx context.Context, res *Result)
}

// Result describes one finished render.
type Result struct {
	Meta     types.RequestMeta
	Outcome  types.RenderOutcome
	Metrics  metrics.Snapshot
	Started  time.Time
	Finished time.Time
}

// Server is an http.Handler that renders documents.
type Server struct {
	config Config
	root   *os.Root
	mux    *http.ServeMux
	logger *log.Logger
}

// New validates cfg and opens the document root.
func New(cfg Config) (*Server, error) {
	if cfg.Root == "" {
		return nil, errors.New("document root is required")
	}
	root, err := os.OpenRoot(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("open document root: %w", err)
	}
	if cfg.Registry == nil {
		cfg.Registry = tree.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}

	s := &Server{
		config: cfg,
		root:   root,
		mux:    http.NewServeMux(),
		logger: cfg.Logger,
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /render/{doc...}", s.handleRender)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases the document root.
func (s *Server) Close() error {
	return s.root.Close()
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: ReadHeaderTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	name, ok := documentName(r.PathValue("doc"))
	if !ok {
		http.Error(w, "not a document", http.StatusNotFound)
		return
	}

	data, err := s.root.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "document not found", http.StatusNotFound)
			return
		}
		s.logger.Error("document read failed", map[string]any{"document": name, "error": err.Error()})
		http.Error(w, "document unreadable", http.StatusInternalServerError)
		return
	}

	doc, err := tree.Decode(data, s.config.Registry)
	if err != nil {
		s.logger.Warn("document invalid", map[string]any{"document": name, "error": err.Error()})
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	root, err := doc.Build()
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	meta := types.RequestMeta{RequestID: engine.NewRequestID(), Document: name, Attempt: 1}
	collector := metrics.NewCollector("html", "http", "", meta.RequestID)
	logger := s.logger.With(map[string]any{"request_id": meta.RequestID, "document": name})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(RequestIDHeader, meta.RequestID)

	dest := destination.NewHTTP(w, destination.WriterOptions{
		HighWaterMark: s.config.HighWaterMark,
		Collector:     collector,
	})
	req := engine.NewRequest(root, dest, html.New(html.Options{IDPrefix: s.config.IDPrefix}), engine.Options{
		RequestID:            meta.RequestID,
		ProgressiveChunkSize: s.config.ProgressiveChunkSize,
		Scheduler:            engine.NewTrampoline(),
		Logger:               logger,
		Collector:            collector,
		OnError: func(err error) {
			logger.Warn("render error", map[string]any{"error": err.Error()})
		},
	})

	started := time.Now()
	if s.config.AbortAfter > 0 {
		stop := req.AbortAfter(s.config.AbortAfter)
		defer stop()
	}
	outcome, err := req.Run(r.Context(), AbortGrace)
	if err != nil {
		logger.Error("render did not close", map[string]any{"error": err.Error()})
	}

	if outcome.Status == types.OutcomeRenderError && collector.Snapshot().BytesWritten == 0 {
		w.Header().Del(RequestIDHeader)
		http.Error(w, outcome.Message, http.StatusInternalServerError)
	}

	if s.config.OnComplete != nil {
		s.config.OnComplete(context.WithoutCancel(r.Context()), &Result{
			Meta:     meta,
			Outcome:  outcome,
			Metrics:  collector.Snapshot(),
			Started:  started,
			Finished: time.Now(),
		})
	}
}

// documentName cleans a request path into a root-relative document name.
func documentName(p string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+p), "/")
	if name == "" || !documentExts[path.Ext(name)] {
		return "", false
	}
	return name, true
}
