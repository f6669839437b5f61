// Package server hosts the HTTP surface of the digest service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/usedigest/digest/internal/profile"
	apiv1 "github.com/usedigest/digest/server/router/api/v1"
	"github.com/usedigest/digest/store"
)

// Server bundles the echo instance with its collaborators.
type Server struct {
	e *echo.Echo

	Profile *profile.Profile
	Store   *store.Store
}

// NewServer creates a server with routes registered.
func NewServer(ctx context.Context, p *profile.Profile, s *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		e:       e,
		Profile: p,
		Store:   s,
	}

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			slog.Info("request",
				slog.String("method", c.Request().Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status))
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{p.FrontendOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	apiService, err := apiv1.NewAPIV1Service(p, s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create API v1 service")
	}
	apiService.Register(e.Group("/api/v1"))

	return server, nil
}

// Start runs the HTTP listener until the context is canceled or the listener
// fails.
func (s *Server) Start(ctx context.Context) error {
	return s.e.Start(fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port))
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		fmt.Printf("failed to shut down server, error: %+v\n", err)
	}
	if err := s.Store.Close(); err != nil {
		fmt.Printf("failed to close store, error: %+v\n", err)
	}
}
