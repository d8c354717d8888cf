// Package server exposes the SQL front end over HTTP.
//
// JSON endpoints tokenize, parse, format and canonicalize SQL. Row change
// events posted to the server are routed through a changefeed router and
// streamed to subscribers as server-sent events.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/sqlfront/internal/server/notifier"
	"github.com/leapstack-labs/sqlfront/pkg/canon"
	"github.com/leapstack-labs/sqlfront/pkg/changefeed"
	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"golang.org/x/sync/errgroup"
)

// Server is the HTTP API server.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	feed     *changefeed.Router
	notifier *notifier.Notifier
}

// Config holds configuration for the server.
type Config struct {
	Addr string
	// Dialect and ToDialect are the defaults for requests that name none.
	Dialect     *dialect.Dialect
	ToDialect   *dialect.Dialect
	IndentWidth int
	MaxDepth    int
	// Transform is applied by the canonicalize endpoint. May be nil.
	Transform canon.Transform
	// DedupSize bounds the event IDs remembered for de-duplication.
	DedupSize int
	Logger    *slog.Logger
}

// New creates a server. Delivered change events are de-duplicated by ID
// before they reach stream subscribers.
func New(cfg Config) *Server {
	if cfg.Dialect == nil {
		cfg.Dialect = dialect.Default()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		feed:     changefeed.NewRouter(logger),
		notifier: notifier.New(),
	}
	dedup := changefeed.NewDedup(cfg.DedupSize)
	s.feed.Subscribe(changefeed.Wildcard, dedup.Wrap(func(_ context.Context, ev changefeed.Event) error {
		s.notifier.Broadcast(ev)
		return nil
	}))
	return s
}

// Feed returns the router change events are delivered through. Callers may
// add their own subscribers.
func (s *Server) Feed() *changefeed.Router {
	return s.feed
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
		middleware.Heartbeat("/healthz"),
	)
	s.routes(r)
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.logger.Info("starting server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs each request through the server's logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
