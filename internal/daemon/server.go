// Package daemon serves the local HTTP bridge the browser extension talks
// to. Every write is a message dispatched to the coordinator; reads come
// straight from the store.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/metrics"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/surface"
)

// Options tunes the HTTP surface.
type Options struct {
	AuthToken      string
	MaxRequestSize int64
	RequestTimeout time.Duration
}

// Server wires the coordinator, router and store behind an http.Handler.
type Server struct {
	coord   *coordinator.Coordinator
	router  *messaging.Router
	store   settings.Reader
	metrics *metrics.Metrics
	content *surface.Content
	opts    Options
	logger  *slog.Logger
	started time.Time
}

// New creates a server. m may be nil.
func New(coord *coordinator.Coordinator, router *messaging.Router, store settings.Reader, m *metrics.Metrics, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = 10 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = messaging.DefaultTimeout
	}
	local := messaging.NewClient(messaging.LocalTransport{Router: router}, opts.RequestTimeout)
	return &Server{
		coord:   coord,
		router:  router,
		store:   store,
		metrics: m,
		content: surface.NewContent(store, local, nil, logger),
		opts:    opts,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	h := NewHandlers(s)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", h.HandleStatus)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.Handle("POST /message", s.protect(h.HandleMessage))
	mux.Handle("POST /menu-click", s.protect(h.HandleMenuClick))
	mux.Handle("GET /collections/{name}", s.protect(h.HandleCollection))
	mux.Handle("GET /settings", s.protect(h.HandleSettings))
	mux.Handle("GET /badge", s.protect(h.HandleBadge))
	mux.Handle("GET /menus", s.protect(h.HandleMenus))
	mux.Handle("GET /export", s.protect(h.HandleExport))

	mux.Handle("GET /content/config", s.protect(h.HandleContentConfig))
	mux.Handle("POST /content/save-page", s.protect(h.HandleSavePage))
	mux.Handle("POST /content/save-selection", s.protect(h.HandleSaveSelection))
	return mux
}

// Run starts the coordinator, boots the install lifecycle and serves on ln
// until ctx is done or either side fails.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.coord.Run(ctx)
	})

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		reason, err := s.coord.Boot(ctx)
		if err != nil {
			return fmt.Errorf("boot: %w", err)
		}
		s.logger.Info("daemon listening", "addr", ln.Addr().String(), "boot", reason, "version", s.coord.Version())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
