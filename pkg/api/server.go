package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codeready-toolchain/logmask/pkg/catalog"
	"github.com/codeready-toolchain/logmask/pkg/logger"
)

// DefaultMaxBodyBytes limits request bodies when Options.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	// Logger masks and forwards ingested records. Its pipeline also serves
	// the mask endpoints.
	Logger *logger.Logger
	// Catalog is listed by GET /api/v1/catalog. Defaults to catalog.Builtin().
	Catalog *catalog.Catalog
	// Gatherer is exposed on GET /metrics. Nil omits the endpoint.
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
	// Diagnostics receives request logs and server errors.
	Diagnostics *slog.Logger
}

// Server is the HTTP API of the masking engine.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     *logger.Logger
	catalog    *catalog.Catalog
	maxBody    int64
	log        *slog.Logger
}

// NewServer creates a new API server with all routes registered.
func NewServer(opts Options) *Server {
	s := &Server{
		logger:  opts.Logger,
		catalog: opts.Catalog,
		maxBody: opts.MaxBodyBytes,
		log:     opts.Diagnostics,
	}
	if s.catalog == nil {
		s.catalog = catalog.Builtin()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	e := gin.New()
	e.Use(gin.Recovery(), requestLogger(s.log), securityHeaders())

	e.GET("/health", s.healthHandler)
	if opts.Gatherer != nil {
		e.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := e.Group("/api/v1")
	v1.GET("/catalog", s.catalogHandler)
	v1.POST("/mask", s.maskHandler)
	v1.POST("/mask/batch", s.maskBatchHandler)
	v1.POST("/logs", s.ingestHandler)

	s.engine = e
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("HTTP server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
