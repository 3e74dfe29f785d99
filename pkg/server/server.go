// Package server assembles the HTTP router, global middleware and
// lifecycle management.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/tester-platform/tester/pkg/common"
	"github.com/tester-platform/tester/pkg/envelope"
	"github.com/tester-platform/tester/pkg/metrics"
	"github.com/tester-platform/tester/pkg/middleware"
	"github.com/tester-platform/tester/pkg/pipeline"
	"github.com/tester-platform/tester/pkg/ratelimit"
)

// Every route is registered for the full method set so that requests with
// a wrong method still reach the pipeline and get the envelope response
// instead of the router's plain-text 405.
var routedMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete,
}

// Config wires a Server.
type Config struct {
	ListenAddr string
	APIPrefix  string
	FloodRPS   int

	Routes   []pipeline.RouteOptions
	Pipeline *pipeline.Pipeline
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// Server is the HTTP server with graceful shutdown support.
type Server struct {
	httpServer   *http.Server
	logger       *zap.Logger
	stopSweeper  func()
	wg           sync.WaitGroup
	shuttingDown atomic.Bool
}

// New builds the router, applies the global middleware chain and prepares
// the server. Call Start to begin serving.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger: logger.Named("server"),
	}

	router := httprouter.New()
	for _, opts := range cfg.Routes {
		handler := cfg.Pipeline.Wrap(opts)
		for _, method := range routedMethods {
			router.Handler(method, cfg.APIPrefix+opts.Path, handler)
		}
	}

	if cfg.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	chain := common.NewMiddlewareChain(
		s.trackRequests,
		middleware.Trace(middleware.NewIDGenerator(1024)),
	)
	if cfg.FloodRPS > 0 {
		chain = chain.Append(middleware.FloodGuard(cfg.FloodRPS))
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           chain.Then(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Limiter != nil {
		s.stopSweeper = cfg.Limiter.StartSweeper(time.Minute, time.Hour)
	}

	return s
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting new requests, waits for in-flight requests to
// complete and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shuttingDown.Store(true)
	s.logger.Info("server shutting down")

	if s.stopSweeper != nil {
		s.stopSweeper()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with requests in flight")
	}

	return s.httpServer.Shutdown(ctx)
}

// trackRequests counts in-flight requests and rejects new ones once
// shutdown has begun.
func (s *Server) trackRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.shuttingDown.Load() {
			envelope.Send(w, http.StatusServiceUnavailable, "Server is shutting down.", nil)
			return
		}

		s.wg.Add(1)
		defer s.wg.Done()
		next.ServeHTTP(w, r)
	})
}
