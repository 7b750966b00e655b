// Package server exposes the service over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/probgen/internal/config"
	"github.com/abhisek/probgen/internal/metrics"
	"github.com/abhisek/probgen/internal/service"
	"github.com/abhisek/probgen/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// Server routes API requests to a service.Service.
type Server struct {
	svc     *service.Service
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics
	addr    string
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger         *zap.Logger
	metrics        *metrics.Metrics
	tracerProvider trace.TracerProvider
	rateLimit      config.RateLimitConfig
}

func WithLogger(l *zap.Logger) Option { return func(o *serverOptions) { o.logger = l } }

// WithMetrics instruments requests and serves /metrics from m.
func WithMetrics(m *metrics.Metrics) Option { return func(o *serverOptions) { o.metrics = m } }

// WithTracerProvider sets the provider for request spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *serverOptions) { o.tracerProvider = tp }
}

// WithRateLimit enables per-IP rate limiting on /api.
func WithRateLimit(rl config.RateLimitConfig) Option {
	return func(o *serverOptions) { o.rateLimit = rl }
}

// New builds the router. cfg.Mode selects the gin mode.
func New(svc *service.Service, cfg config.ServerConfig, opts ...Option) *Server {
	o := serverOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(o.logger.Named("http")), tracing.GinMiddleware(o.tracerProvider))
	if o.metrics != nil {
		r.Use(o.metrics.Middleware())
	}

	s := &Server{
		svc:     svc,
		router:  r,
		logger:  o.logger,
		metrics: o.metrics,
		addr:    cfg.Addr,
	}
	s.routes(o.rateLimit)
	return s
}

func (s *Server) routes(rl config.RateLimitConfig) {
	s.router.GET("/health", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", s.metrics.GinHandler())
	}

	api := s.router.Group("/api")
	if rl.MaxRequests > 0 && rl.Window > 0 {
		api.Use(rateLimiter(rl.MaxRequests, rl.Window))
	}

	templates := api.Group("/templates")
	templates.POST("/validate", s.validateTemplate)
	templates.POST("/preview", s.previewDraft)
	templates.POST("", s.createTemplate)
	templates.GET("", s.listTemplates)
	templates.GET("/:id", s.getTemplate)
	templates.PUT("/:id", s.updateTemplate)
	templates.DELETE("/:id", s.deleteTemplate)
	templates.POST("/:id/preview", s.previewTemplate)
	templates.POST("/:id/publish", s.publishTemplate)

	api.GET("/questions/:id", s.getQuestion)
	api.POST("/grade", s.grade)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
