// Package server exposes the resolver over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/cache"
	"github.com/ralt/relserve/internal/events"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/resolver"
	"github.com/ralt/relserve/internal/signer"
)

const shutdownTimeout = 10 * time.Second

// Server serves downloads, updates and release metadata
type Server struct {
	cfg      models.ServerConfig
	backend  backend.Backend
	cache    *cache.Cache
	resolver *resolver.Resolver
	events   *events.Emitter
	signer   signer.Signer
	now      func() time.Time
	started  time.Time
	handler  http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithSigner publishes RELEASES.asc signatures made by s
func WithSigner(s signer.Signer) Option {
	return func(srv *Server) { srv.signer = s }
}

// WithEmitter replaces the download event emitter
func WithEmitter(e *events.Emitter) Option {
	return func(srv *Server) { srv.events = e }
}

// WithClock replaces time.Now, for uptime reporting and the cache
func WithClock(now func() time.Time) Option {
	return func(srv *Server) { srv.now = now }
}

// New wires a server around b
func New(cfg models.ServerConfig, b backend.Backend, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		backend: b,
		events:  events.NewEmitter(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.started = s.now()
	s.cache = cache.New(b.FetchReleases, cfg.CacheMaxAge, cache.WithClock(s.now))
	s.resolver = resolver.New(s.cache, b, cfg.PreferUniversal)
	s.events.OnAfterServe(logDownload)
	s.handler = s.buildHandler()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Events returns the emitter download subscribers attach to
func (s *Server) Events() *events.Emitter {
	return s.events
}

// Resolver returns the resolver behind the routes
func (s *Server) Resolver() *resolver.Resolver {
	return s.resolver
}

// Cache returns the release cache
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

func (s *Server) buildHandler() http.Handler {
	var h http.Handler = s.routes()

	if base := strings.TrimRight(s.cfg.BasePath, "/"); base != "" {
		mux := http.NewServeMux()
		mux.Handle(base+"/", http.StripPrefix(base, h))
		h = mux
	}
	if s.cfg.Gzip {
		h = gzhttp.GzipHandler(h)
	}
	return logRequests(h)
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	if err := s.cache.Warm(ctx); err != nil {
		logrus.Warnf("Failed to warm release cache: %v", err)
	}

	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Listening on %s", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logDownload(d events.Download) {
	logrus.WithFields(logrus.Fields{
		"id":       d.ID,
		"version":  d.Release.Version,
		"channel":  d.Release.Channel,
		"asset":    d.Asset.Filename,
		"platform": d.Asset.PlatformTag,
	}).Info("Served download")
}
