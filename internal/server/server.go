// Package server exposes the sweep trigger and the health endpoints over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Avisafety/avisafe-sub001/internal/common/config"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
	"github.com/Avisafety/avisafe-sub001/internal/sweep"
)

const TriggerPath = "/functions/v1/check-document-expiry"

// corsAllowHeaders are the headers browser clients of the dashboard send with
// a function invocation.
var corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

type Runner interface {
	Run(ctx context.Context, req sweep.RunRequest) (*sweep.Report, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one dependency checked by /ready.
type Check struct {
	Name   string
	Pinger Pinger
}

type Server struct {
	cfg    config.ServerConfig
	engine *gin.Engine
	runner Runner
	loc    *time.Location
	checks []Check
	logger logger.Logger
	now    func() time.Time
}

// New builds the router. loc is the timezone that decides the run date when
// the request does not name one.
func New(cfg config.ServerConfig, runner Runner, loc *time.Location, log logger.Logger, checks ...Check) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		loc:    loc,
		checks: checks,
		logger: log.WithFields(map[string]interface{}{"component": "http"}),
		now:    time.Now,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.Use(cors.New(s.corsConfig()))

	engine.Any(TriggerPath, s.handleSweep)
	engine.Any("/sweep", s.handleSweep)
	engine.GET("/health", s.handleHealth)
	engine.GET("/ready", s.handleReady)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.engine = engine
	return s
}

func (s *Server) corsConfig() cors.Config {
	c := cors.Config{
		AllowMethods:              []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:              corsAllowHeaders,
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if len(s.cfg.AllowedOrigins) == 0 || (len(s.cfg.AllowedOrigins) == 1 && s.cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = s.cfg.AllowedOrigins
	}
	return c
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the router with the configured address and timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.engine,
		ReadTimeout:  config.GetDuration(s.cfg.ReadTimeout),
		WriteTimeout: config.GetDuration(s.cfg.WriteTimeout),
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"latencyMs": time.Since(start).Milliseconds(),
		}
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/health" {
			s.logger.Debug("request", fields)
			return
		}
		s.logger.Info("request", fields)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for _, check := range s.checks {
		if err := check.Pinger.Ping(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}

	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"failed": failed})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}
