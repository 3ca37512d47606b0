// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PermitCounter reports how many permits the store holds. Used by /health.
type PermitCounter interface {
	CountPermits(ctx context.Context) (int, error)
}

// Server exposes a Searcher over HTTP.
type Server struct {
	searcher      *search.Searcher
	counter       PermitCounter
	metrics       *Metrics
	engine        *gin.Engine
	defaultStatus string
	defaultLimit  int
	maxLimit      int
	corsOrigin    string
	rateLimit     float64
	rateBurst     int
	logger        *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithDefaultStatus sets the status used when a request has no status parameter.
func WithDefaultStatus(status string) Option {
	return func(s *Server) error {
		s.defaultStatus = status
		return nil
	}
}

// WithLimits sets the limit used when a request has none and the largest limit allowed.
func WithLimits(defaultLimit, maxLimit int) Option {
	return func(s *Server) error {
		if defaultLimit < 1 || maxLimit < defaultLimit {
			return errors.New("limits must satisfy 1 <= default <= max")
		}
		s.defaultLimit = defaultLimit
		s.maxLimit = maxLimit
		return nil
	}
}

// WithCORSOrigin sets the allowed CORS origin. Default is "*".
func WithCORSOrigin(origin string) Option {
	return func(s *Server) error {
		s.corsOrigin = origin
		return nil
	}
}

// WithRateLimit limits each client IP to perSecond requests with the given burst.
// A zero rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) error {
		if perSecond < 0 || (perSecond > 0 && burst < 1) {
			return errors.New("invalid rate limit")
		}
		s.rateLimit = perSecond
		s.rateBurst = burst
		return nil
	}
}

// WithCounter enables the permit count in /health.
func WithCounter(counter PermitCounter) Option {
	return func(s *Server) error {
		s.counter = counter
		return nil
	}
}

// WithMetrics uses metrics instead of a fresh set of collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// NewServer creates an HTTP server for searcher.
func NewServer(searcher *search.Searcher, opts ...Option) (*Server, error) {
	if searcher == nil {
		return nil, errors.New("searcher required")
	}

	s := &Server{
		searcher:      searcher,
		defaultStatus: core.StatusApproved,
		defaultLimit:  core.DefaultLimit,
		maxLimit:      500,
		corsOrigin:    "*",
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(s.logger, s.metrics), cors(s.corsOrigin))

	api := engine.Group("/api/search")
	if s.rateLimit > 0 {
		api.Use(rateLimit(newClientLimiter(s.rateLimit, s.rateBurst)))
	}
	api.GET("", s.handleSearch)
	api.GET("/openapi.json", s.handleOpenAPI)
	api.GET("/docs", s.handleDocs)

	engine.GET("/health", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
	return engine
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
