// ABOUTME: Gin HTTP server exposing POST /predict plus health and Prometheus endpoints.
// ABOUTME: Every error leaves as a JSON {"Error": msg} envelope.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/stress/internal/logging"
	"github.com/harperreed/stress/internal/metrics"
	"github.com/harperreed/stress/internal/predict"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Predictor turns one feature row into a stress score.
type Predictor interface {
	Predict(ctx context.Context, row predict.Row) (float64, error)
}

// Options configures a Server. Every field is optional.
type Options struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Server holds the Gin engine and the predictor it serves.
type Server struct {
	router    *gin.Engine
	predictor Predictor
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
}

// NewServer creates a server around predictor.
func NewServer(predictor Predictor, opts Options) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:    router,
		predictor: predictor,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		logger:    logging.OrNop(opts.Logger),
	}
	router.Use(s.requestLogger(), corsMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
	s.router.POST("/predict", s.handlePredict)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
