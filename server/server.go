// Package server wires the HTTP surface: health, metrics, and the v1 API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusfind/campusfind/internal/profile"
	apiv1 "github.com/campusfind/campusfind/server/router/api/v1"
	"github.com/campusfind/campusfind/store"
)

// Server is the campusfind HTTP server.
type Server struct {
	e *echo.Echo

	profile *profile.Profile
	store   *store.Store

	apiService *apiv1.APIV1Service
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(_ context.Context, profile *profile.Profile, store *store.Store, apiService *apiv1.APIV1Service, registry *prometheus.Registry) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			)
			return nil
		},
	}))

	s := &Server{
		e:          e,
		profile:    profile,
		store:      store,
		apiService: apiService,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	apiService.Register(e.Group("/api/v1"))

	return s, nil
}

// Start starts the server in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.e.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
		}
	}()
	return nil
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("campusfind stopped properly")
}
