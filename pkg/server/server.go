// Package server provides the hello HTTP server built on gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/earthbuild/hello-earthly/pkg/config"
	"github.com/earthbuild/hello-earthly/pkg/greeting"
	"github.com/earthbuild/hello-earthly/pkg/stats"
)

// ErrAddressInUse is returned by Listen when another process is bound to the address
var ErrAddressInUse = errors.New("address already in use")

// Server serves the hello endpoint plus health and metrics routes
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	metrics    *stats.MetricsRecorder
	logger     *logrus.Logger

	mu       sync.Mutex
	listener net.Listener
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger used for lifecycle and access logs
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(mr *stats.MetricsRecorder) Option {
	return func(s *Server) {
		s.metrics = mr
	}
}

// New creates a new Server from cfg
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		config: cfg,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = stats.NewMetricsRecorder()
	}

	s.engine = s.buildEngine()

	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// GinMode maps an environment name to the matching gin mode.
// New leaves the process-wide mode alone; the caller sets it once at startup.
func GinMode(environment string) string {
	switch environment {
	case config.EnvProduction:
		return gin.ReleaseMode
	case config.EnvTest:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestID())
	engine.Use(AccessLog(s.logger))
	engine.Use(s.metrics.GinMiddleware())

	if s.config.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", RequestIDHeader}
		engine.Use(cors.New(corsConfig))
	}

	handler := NewGinHandler(greeting.NewGreeter(s.config.DefaultName), s.metrics)
	engine.GET("/hello", handler.HelloHandler)
	engine.GET("/health", handler.HealthHandler)
	engine.GET("/readyz", handler.HealthHandler)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

// Handler returns the HTTP handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Metrics returns the metrics recorder used by the server
func (s *Server) Metrics() *stats.MetricsRecorder {
	return s.metrics
}

// Listen binds the configured address. A bind failure caused by another
// listener on the same address is reported as ErrAddressInUse.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		if isAddrInUse(err) {
			return nil, fmt.Errorf("listen %s: %w", s.config.Address(), ErrAddressInUse)
		}
		return nil, fmt.Errorf("listen %s: %w", s.config.Address(), err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return ln, nil
}

// Serve accepts connections on ln until Shutdown is called.
// A graceful shutdown is not reported as an error.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.WithField("addr", ln.Addr().String()).Info("🚀 Serving hello endpoint")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start binds the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address()
}

// Shutdown gracefully stops the server, waiting for in-flight requests until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.WithField("addr", s.Addr()).Info("🛑 Shutting down hello server")
	return s.httpServer.Shutdown(ctx)
}

// Close stops the server immediately, dropping open connections
func (s *Server) Close() error {
	return s.httpServer.Close()
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
