// Package server hosts the reference backend the console talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"affconsole/internal/config"
	"affconsole/internal/handlers"
	"affconsole/internal/middleware"
)

// APIPrefix is where the console's base URL points.
const APIPrefix = "/api"

// NewEngine wires the middleware chain and the API routes.
func NewEngine(cfg *config.AppConfig, log zerolog.Logger, set handlers.HandlerSet) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, http.StatusNotFound, "route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		middleware.Abort(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log, APIPrefix+"/healthz"),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowCORSOrigins, cfg.API.BypassHeader),
	)
	set.Register(engine.Group(APIPrefix))
	return engine
}

type HTTPServer struct {
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, set handlers.HandlerSet) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:      NewEngine(cfg, log, set),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		},
		log: log.With().Str("component", "http").Logger(),
	}
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Str("base", APIPrefix).Msg("affiliate api listening")

	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("listen: %w", err)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("draining connections")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
