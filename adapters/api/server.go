// Package api is the HTTP front door: it validates requests, invokes the
// pipeline and shapes responses. No decision logic lives here.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ideaforge/app"
	"ideaforge/internal"
	"ideaforge/ports"
)

// Server wraps the gin engine and its dependencies.
type Server struct {
	router    *gin.Engine
	pipeline  *app.Pipeline
	profiles  ports.ProfileStore
	reports   ports.ReportWriter
	reportDir string
	maxIdeas  int
	log       *internal.Logger
}

// Config holds front-door settings.
type Config struct {
	GinMode          string
	ReportDir        string
	DefaultIdeaCount int
	MaxIdeaCount     int
}

// NewServer builds the router. reports may be nil to disable export.
func NewServer(cfg Config, pipeline *app.Pipeline, profiles ports.ProfileStore, reports ports.ReportWriter, log *internal.Logger) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	s := &Server{
		router:    gin.New(),
		pipeline:  pipeline,
		profiles:  profiles,
		reports:   reports,
		reportDir: cfg.ReportDir,
		maxIdeas:  cfg.MaxIdeaCount,
		log:       log.WithTag("api"),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())

	s.router.GET("/health", s.handleHealth)
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/brainstorm", s.handleBrainstorm(cfg.DefaultIdeaCount))
		v1.POST("/outcome", s.handleOutcome)
	}
	return s
}

// Run starts serving on the given port until the context is cancelled.
func (s *Server) Run(ctx context.Context, port string) error {
	srv := &http.Server{Addr: ":" + port, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
