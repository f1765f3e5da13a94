// Package server exposes a search session over HTTP.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/japaniel/cognates/pkg/config"
	"github.com/japaniel/cognates/pkg/search"
)

// Session is the search session served by the API.
type Session interface {
	Submit(ctx context.Context, p search.Params) (*search.State, error)
	Resume(ctx context.Context, v url.Values) (*search.State, error)
	SetPage(n int) (*search.State, error)
	State() *search.State
}

// Definer looks up definition fragments.
type Definer interface {
	DefinitionHTML(ctx context.Context, word, langCode string) (string, error)
}

// Suggester completes partially typed words.
type Suggester interface {
	Suggest(ctx context.Context, input string) ([]string, error)
}

// Dependencies are the components behind the routes. Definitions,
// Suggestions and DB are optional; their routes answer 503 without them.
type Dependencies struct {
	Session     Session
	Definitions Definer
	Suggestions Suggester
	DB          *sql.DB
	Logger      *slog.Logger
}

// Server represents the HTTP server
type Server struct {
	config config.ServerConfig
	deps   Dependencies
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// New creates a new server instance
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{config: cfg, deps: deps, logger: logger}
}

// Setup sets up the server routes and middleware
func (s *Server) Setup() {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) setupRoutes() {
	h := &handlers{deps: s.deps, logger: s.logger}

	s.router.GET("/health", h.health)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/cognates", h.resume)
		v1.POST("/cognates", h.submit)
		v1.GET("/state", h.state)
		v1.PUT("/state/page", h.setPage)
		v1.GET("/history", h.history)
		v1.GET("/definition", h.definition)
		v1.GET("/suggest", h.suggest)
	}
}

// Handler returns the configured router. Setup must have been called.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
